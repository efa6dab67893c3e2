// Package history keeps an append-only record of finished computations so that
// operators can see what ran where, and for how long.
package history

import (
	"context"
	"time"
)

// Entry is one finished computation.
type Entry struct {
	ID          int64     `json:"id"`
	WorksheetID string    `json:"worksheet_id"`
	CellID      int       `json:"cell_id"`
	ExecNumber  int       `json:"exec_number"`
	User        string    `json:"user,omitempty"`
	Outcome     string    `json:"outcome"`
	Truncated   bool      `json:"truncated"`
	OutputBytes int       `json:"output_bytes"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Duration reports how long the computation ran.
func (e Entry) Duration() time.Duration { return e.FinishedAt.Sub(e.StartedAt) }

// Recorder appends entries.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Store is a Recorder that can also be queried.
type Store interface {
	Recorder
	List(ctx context.Context, worksheetID string, limit int) ([]Entry, error)
	Close() error
}
