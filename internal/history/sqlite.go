package history

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const createComputationsTable = `
CREATE TABLE IF NOT EXISTS computations (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    worksheet_id TEXT NOT NULL,
    cell_id      INTEGER NOT NULL,
    exec_number  INTEGER NOT NULL,
    user_name    TEXT NOT NULL DEFAULT '',
    outcome      TEXT NOT NULL,
    truncated    INTEGER NOT NULL DEFAULT 0,
    output_bytes INTEGER NOT NULL DEFAULT 0,
    started_at   DATETIME NOT NULL,
    finished_at  DATETIME NOT NULL
)`

const createWorksheetIndex = `
CREATE INDEX IF NOT EXISTS computations_worksheet ON computations (worksheet_id, id)`

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 100

var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
// ":memory:" gives a private in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serialises
	// writers, which is all the throughput a worksheet server needs.
	db.SetMaxOpenConns(1)

	for _, stmt := range []struct{ what, sql string }{
		{"set WAL mode", "PRAGMA journal_mode=WAL"},
		{"set busy timeout", "PRAGMA busy_timeout = 5000"},
		{"create computations table", createComputationsTable},
		{"create worksheet index", createWorksheetIndex},
	} {
		if _, err := db.Exec(stmt.sql); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", stmt.what, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Record appends e. The ID field is ignored.
func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO computations (
			worksheet_id, cell_id, exec_number, user_name, outcome,
			truncated, output_bytes, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.WorksheetID, e.CellID, e.ExecNumber, e.User, e.Outcome,
		e.Truncated, e.OutputBytes, e.StartedAt.UTC(), e.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert computation: %w", err)
	}
	return nil
}

// List returns the most recent entries for worksheetID, newest first.
// An empty worksheetID lists across all worksheets.
func (s *SQLiteStore) List(ctx context.Context, worksheetID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `SELECT id, worksheet_id, cell_id, exec_number, user_name, outcome,
			truncated, output_bytes, started_at, finished_at
		FROM computations`
	args := []any{}
	if worksheetID != "" {
		query += ` WHERE worksheet_id = ?`
		args = append(args, worksheetID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list computations: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID, &e.WorksheetID, &e.CellID, &e.ExecNumber, &e.User, &e.Outcome,
			&e.Truncated, &e.OutputBytes, &e.StartedAt, &e.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan computation: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate computations: %w", err)
	}
	return out, nil
}
