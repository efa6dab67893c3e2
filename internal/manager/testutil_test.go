package manager

import (
	"sync"
	"testing"
	"time"

	"worksheetd/internal/events"
	"worksheetd/internal/history"
	"worksheetd/internal/worksheet"
)

// testClock is a settable clock shared by the manager and its worksheets.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// newReferenceManager builds a Manager on the in-process interpreter.
func newReferenceManager(t *testing.T, mutate func(*ManagerConfig)) (*Manager, *testClock, *events.MemoryPublisher) {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	pub := events.NewMemoryPublisher()
	cfg := ManagerConfig{
		DataDir:     t.TempDir(),
		Interpreter: InterpreterReference,
		IdleTimeout: time.Minute,
		History:     history.NewMemoryStore(),
		Publisher:   pub,
		Clock:       clock.Now,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	m := NewWithConfig(cfg)
	t.Cleanup(m.Close)
	return m, clock, pub
}

// runCell enqueues c and polls until its worksheet queue drains.
func runCell(t *testing.T, ws *worksheet.Worksheet, c *worksheet.Cell) worksheet.CellView {
	t.Helper()
	if err := ws.Enqueue(c, "tester"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	for i := 0; i < 50 && ws.QueueLength() > 0; i++ {
		if _, _, err := ws.CheckComputation(); err != nil {
			t.Fatalf("CheckComputation: %v", err)
		}
	}
	if ws.QueueLength() != 0 {
		t.Fatalf("queue did not drain")
	}
	return c.Snapshot()
}
