package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func makeEntry(ws string, cell, exec int) Entry {
	start := time.Date(2024, 3, 1, 12, 0, exec, 0, time.UTC)
	return Entry{
		WorksheetID: ws,
		CellID:      cell,
		ExecNumber:  exec,
		User:        "alice",
		Outcome:     "done",
		OutputBytes: 12,
		StartedAt:   start,
		FinishedAt:  start.Add(1500 * time.Millisecond),
	}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		if err := s.Record(ctx, makeEntry("ws1", i, i)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	trunc := makeEntry("ws2", 7, 1)
	trunc.Truncated = true
	trunc.Outcome = "crashed"
	if err := s.Record(ctx, trunc); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := s.List(ctx, "ws1", 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].CellID != 3 || got[2].CellID != 1 {
		t.Fatalf("expected newest first, got cells %d..%d", got[0].CellID, got[2].CellID)
	}
	if got[0].Duration() != 1500*time.Millisecond {
		t.Errorf("Duration = %v", got[0].Duration())
	}
	if got[0].User != "alice" {
		t.Errorf("User = %q", got[0].User)
	}

	all, err := s.List(ctx, "", 2)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 || all[0].WorksheetID != "ws2" || !all[0].Truncated || all[0].Outcome != "crashed" {
		t.Fatalf("unexpected list across worksheets: %+v", all)
	}
}

func TestSQLiteStoreRecordAndList(t *testing.T) {
	exerciseStore(t, newTestStore(t))
}

func TestMemoryStoreRecordAndList(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := s.Record(context.Background(), makeEntry("ws", 1, 1)); err != nil {
		t.Fatalf("Record: %v", err)
	}
	s.Close()

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.List(context.Background(), "ws", 10)
	if err != nil || len(got) != 1 {
		t.Fatalf("after reopen got %v err=%v", got, err)
	}
	if !got[0].StartedAt.Equal(makeEntry("ws", 1, 1).StartedAt) {
		t.Errorf("StartedAt = %v", got[0].StartedAt)
	}
}
