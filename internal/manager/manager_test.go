package manager

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"worksheetd/internal/compute"
)

func TestNewWithConfigDefaults(t *testing.T) {
	m := NewWithConfig(ManagerConfig{})
	if m.cfg.TickInterval != defaultTickInterval {
		t.Fatalf("expected default tick=%v got %v", defaultTickInterval, m.cfg.TickInterval)
	}
	if m.cfg.IdleTimeout != defaultIdleTimeout {
		t.Fatalf("expected default idle timeout=%v got %v", defaultIdleTimeout, m.cfg.IdleTimeout)
	}
	if m.cfg.Interpreter != InterpreterPython || m.Variant() != compute.VariantLocal {
		t.Fatalf("unexpected interpreter %q variant %q", m.cfg.Interpreter, m.Variant())
	}
}

func TestVariantSelection(t *testing.T) {
	remote := NewWithConfig(ManagerConfig{Remote: RemoteConfig{UserHost: "sage@compute1"}})
	if remote.Variant() != compute.VariantRemote {
		t.Fatalf("variant = %q", remote.Variant())
	}
	ref := NewWithConfig(ManagerConfig{Interpreter: InterpreterReference, Remote: RemoteConfig{UserHost: "x@y"}})
	if ref.Variant() != compute.VariantReference {
		t.Fatalf("variant = %q", ref.Variant())
	}
	if _, ok := ref.dialect().(compute.ReferenceDialect); !ok {
		t.Fatalf("reference interpreter must use the reference dialect")
	}
	py := NewWithConfig(ManagerConfig{Prompt: "XX>"})
	if d, ok := py.dialect().(compute.PythonDialect); !ok || d.Prompt() != "XX>" {
		t.Fatalf("python dialect = %#v", py.dialect())
	}
}

func TestCreateGetListDelete(t *testing.T) {
	m, _, pub := newReferenceManager(t, nil)
	ws, err := m.Create("first", []string{"x = 1", "x + 1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(ws.Cells()) != 2 || m.Name(ws.ID()) != "first" {
		t.Fatalf("unexpected worksheet: cells=%d name=%q", len(ws.Cells()), m.Name(ws.ID()))
	}
	dir := filepath.Join(m.cfg.DataDir, "worksheets", ws.ID())
	if fi, err := os.Stat(filepath.Join(dir, "data")); err != nil || !fi.IsDir() {
		t.Fatalf("data dir missing: %v", err)
	}
	ws2, _ := m.Create("second", nil)
	list := m.List()
	if len(list) != 2 || list[0].ID() != ws.ID() || list[1].ID() != ws2.ID() {
		t.Fatalf("List order wrong")
	}
	got, err := m.Get(ws.ID())
	if err != nil || got != ws {
		t.Fatalf("Get = %v, %v", got, err)
	}

	if err := m.Delete(ws.ID()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := m.Get(ws.ID()); !IsWorksheetNotFound(err) {
		t.Fatalf("Get after delete err = %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("worksheet dir should be removed, err=%v", err)
	}
	if err := m.Delete(ws.ID()); !IsWorksheetNotFound(err) {
		t.Fatalf("second delete err = %v", err)
	}
	if err := m.Delete(""); !IsWorksheetNotFound(err) {
		t.Fatalf("empty id err = %v", err)
	}
	names := pub.Names()
	if len(names) < 3 || names[0] != "worksheet_created" || names[len(names)-1] != "worksheet_deleted" {
		t.Fatalf("events = %v", names)
	}
}

func TestEvaluateThroughManager(t *testing.T) {
	m, _, _ := newReferenceManager(t, nil)
	ws, _ := m.Create("", []string{"x = 40", "x + 2"})
	cells := ws.Cells()
	c1, _ := ws.Cell(cells[0].ID)
	c2, _ := ws.Cell(cells[1].ID)
	runCell(t, ws, c1)
	if v := runCell(t, ws, c2); v.Output != "42\n" {
		t.Fatalf("output = %q", v.Output)
	}
	if m.Registry().Len() != 1 || m.liveProcesses() != 1 {
		t.Fatalf("registry len=%d live=%d", m.Registry().Len(), m.liveProcesses())
	}

	entries, err := m.History(context.Background(), ws.ID(), 10)
	if err != nil || len(entries) != 2 {
		t.Fatalf("history = %v err=%v", entries, err)
	}
	if entries[0].CellID != c2.ID() || entries[0].User != "tester" {
		t.Fatalf("newest entry = %+v", entries[0])
	}
	if _, err := m.History(context.Background(), "missing", 10); !IsWorksheetNotFound(err) {
		t.Fatalf("history for missing worksheet err = %v", err)
	}
}

func TestTickEvictsIdleWorksheets(t *testing.T) {
	m, clock, _ := newReferenceManager(t, nil)
	busy, _ := m.Create("busy", []string{"1"})
	idle, _ := m.Create("idle", []string{"2"})
	for _, ws := range m.List() {
		c, _ := ws.Cell(ws.Cells()[0].ID)
		runCell(t, ws, c)
	}

	clock.Advance(45 * time.Second)
	c, _ := busy.Cell(busy.Cells()[0].ID)
	runCell(t, busy, c)
	clock.Advance(30 * time.Second)

	if n := m.Tick(clock.Now()); n != 1 {
		t.Fatalf("evicted %d, want 1", n)
	}
	if idle.ProcessStarted() || !busy.ProcessStarted() {
		t.Fatalf("idle started=%v busy started=%v", idle.ProcessStarted(), busy.ProcessStarted())
	}
	st := m.Status()
	if st.IdleEvictionsTotal != 1 || st.LiveProcesses != 1 || len(st.Worksheets) != 2 {
		t.Fatalf("status = %+v", st)
	}
	if st.IdleTimeoutSeconds != 60 || st.Variant != compute.VariantReference {
		t.Fatalf("status = %+v", st)
	}
}

func TestTickEnforcesWallTime(t *testing.T) {
	m, clock, _ := newReferenceManager(t, func(c *ManagerConfig) {
		c.IdleTimeout = -1
		c.Limits = compute.NewProcessLimits(0, 0, 0, 10)
	})
	ws, _ := m.Create("", []string{"1"})
	c, _ := ws.Cell(ws.Cells()[0].ID)
	runCell(t, ws, c)
	clock.Advance(11 * time.Second)
	if n := m.Tick(clock.Now()); n != 0 {
		t.Fatalf("idle eviction disabled, got %d", n)
	}
	if ws.ProcessStarted() {
		t.Fatalf("wall-time limit should have stopped the process")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	m, _, _ := newReferenceManager(t, func(c *ManagerConfig) { c.TickInterval = time.Millisecond })
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}
