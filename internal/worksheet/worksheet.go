package worksheet

import (
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"worksheetd/internal/compute"
	"worksheetd/internal/events"
	"worksheetd/internal/history"
)

// Defaults for Config.
const (
	DefaultInterruptAttempts = 5
	DefaultInterruptWait     = 100 * time.Millisecond
)

// DefaultFatalMarkers are output fragments that mean the interpreter died in
// a way it cannot recover from.
var DefaultFatalMarkers = []string{
	"Unhandled SIGSEGV",
	"Fatal Python error: Segmentation fault",
}

// Config wires a worksheet to its capabilities.
type Config struct {
	ID string
	// Dir holds per-cell artifacts under Dir/cells/<id>. Empty disables
	// harvesting.
	Dir string
	// DataDir is linked into each execution's scratch directory.
	DataDir string
	// NewProcess builds the interpreter; it is called lazily, once.
	NewProcess func() compute.Process
	// Registry, when set, tracks the process for timeouts and shutdown.
	Registry *compute.ProcessRegistry
	Dialect  compute.Dialect

	Truncation        TruncationPolicy
	FatalMarkers      []string
	DefaultSystem     string
	InterruptAttempts int
	InterruptWait     time.Duration

	Recorder  history.Recorder
	Publisher events.Publisher
	Logger    zerolog.Logger
	Clock     func() time.Time
}

// Worksheet owns an ordered list of cells, an evaluation queue and (lazily)
// one compute process. At most one cell computes at a time.
type Worksheet struct {
	mu  sync.Mutex
	cfg Config
	log zerolog.Logger
	pub events.Publisher

	cells  []*Cell
	nextID int
	queue  evaluationQueue
	proc   compute.Process

	stateNumber  int
	lastActivity time.Time
	lastUser     string
	system       string
	needsRestart bool
}

// New constructs a worksheet with no cells.
func New(cfg Config) *Worksheet {
	if cfg.Dialect == nil {
		cfg.Dialect = compute.ReferenceDialect{}
	}
	if cfg.NewProcess == nil {
		cfg.NewProcess = func() compute.Process { return compute.NewReferenceProcess(compute.ProcessLimits{}) }
	}
	if cfg.FatalMarkers == nil {
		cfg.FatalMarkers = DefaultFatalMarkers
	}
	if cfg.InterruptAttempts <= 0 {
		cfg.InterruptAttempts = DefaultInterruptAttempts
	}
	if cfg.InterruptWait <= 0 {
		cfg.InterruptWait = DefaultInterruptWait
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	cfg.Truncation = cfg.Truncation.withDefaults()
	w := &Worksheet{
		cfg:    cfg,
		log:    cfg.Logger.With().Str("worksheet", cfg.ID).Logger(),
		pub:    events.OrNoop(cfg.Publisher),
		system: cfg.DefaultSystem,
	}
	w.lastActivity = cfg.Clock()
	return w
}

// ID returns the worksheet identifier.
func (w *Worksheet) ID() string { return w.cfg.ID }

// StateNumber increases on every structural or output change.
func (w *Worksheet) StateNumber() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateNumber
}

// NewCell appends a cell with the given input.
func (w *Worksheet) NewCell(input string) *Cell {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.newCellLocked(input)
	w.cells = append(w.cells, c)
	return c
}

// InsertCellAfter inserts a new cell after the cell with id afterID; an
// afterID of 0 inserts at the top.
func (w *Worksheet) InsertCellAfter(afterID int, input string) (*Cell, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	pos := 0
	if afterID != 0 {
		i := w.indexLocked(afterID)
		if i < 0 {
			return nil, CellNotFoundError{ID: afterID}
		}
		pos = i + 1
	}
	c := w.newCellLocked(input)
	w.cells = append(w.cells, nil)
	copy(w.cells[pos+1:], w.cells[pos:])
	w.cells[pos] = c
	return c, nil
}

// DeleteCell removes a cell that is not queued or computing.
func (w *Worksheet) DeleteCell(id int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	i := w.indexLocked(id)
	if i < 0 {
		return CellNotFoundError{ID: id}
	}
	c := w.cells[i]
	if w.queue.contains(c) {
		if c.state == StateComputing {
			return ErrCellComputing
		}
		c.markInterrupted()
		w.queue.remove(c)
	}
	w.cells = append(w.cells[:i], w.cells[i+1:]...)
	w.stateNumber++
	return nil
}

// EditCell replaces a cell's input, bumping its version when it changed.
func (w *Worksheet) EditCell(id int, input string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.cellLocked(id)
	if c == nil {
		return CellNotFoundError{ID: id}
	}
	c.setInput(input)
	w.stateNumber++
	w.touchLocked("")
	return nil
}

// SetCellFlags sets whether a cell jumps the queue and whether its output is
// kept.
func (w *Worksheet) SetCellFlags(id int, asap, noOutput bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.cellLocked(id)
	if c == nil {
		return CellNotFoundError{ID: id}
	}
	c.asap = asap
	c.noOutput = noOutput
	return nil
}

// SetIntrospection turns the cell's next evaluation into a completion or
// documentation request. The result lands in the cell's introspection text;
// its output is left alone. A cell that is queued or computing is refused.
func (w *Worksheet) SetIntrospection(id int, before, after string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.cellLocked(id)
	if c == nil {
		return CellNotFoundError{ID: id}
	}
	if w.queue.contains(c) {
		if c.state == StateComputing {
			return ErrCellComputing
		}
		return ErrCellQueued
	}
	c.introspect = &Introspection{Before: before, After: after}
	return nil
}

// Cell returns the cell with the given id.
func (w *Worksheet) Cell(id int) (*Cell, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.cellLocked(id)
	return c, c != nil
}

// Cells returns snapshots of all cells in worksheet order.
func (w *Worksheet) Cells() []CellView {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]CellView, len(w.cells))
	for i, c := range w.cells {
		out[i] = c.view()
	}
	return out
}

// QueueLength is the number of queued cells, including the running one.
func (w *Worksheet) QueueLength() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.queue.len()
}

// QueuedIDs lists queued cell ids in evaluation order.
func (w *Worksheet) QueuedIDs() []int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.queue.ids()
}

// IsComputing reports whether a cell is currently being evaluated.
func (w *Worksheet) IsComputing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	h := w.queue.head()
	return h != nil && h.state == StateComputing
}

// ProcessStarted reports whether the interpreter is running.
func (w *Worksheet) ProcessStarted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.proc != nil && w.proc.IsStarted()
}

// IdleFor is the time since the last user activity.
func (w *Worksheet) IdleFor(now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return now.Sub(w.lastActivity)
}

// System is the system used by cells without a %system directive.
func (w *Worksheet) System() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.system
}

// Close quits the interpreter and drops it from the registry.
func (w *Worksheet) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.quitLocked("close")
	if w.proc != nil && w.cfg.Registry != nil {
		w.cfg.Registry.Unregister(w.proc)
	}
	w.proc = nil
}

func (w *Worksheet) newCellLocked(input string) *Cell {
	w.nextID++
	w.stateNumber++
	return &Cell{ws: w, id: w.nextID, input: input}
}

func (w *Worksheet) indexLocked(id int) int {
	for i, c := range w.cells {
		if c.id == id {
			return i
		}
	}
	return -1
}

func (w *Worksheet) cellLocked(id int) *Cell {
	if i := w.indexLocked(id); i >= 0 {
		return w.cells[i]
	}
	return nil
}

func (w *Worksheet) touchLocked(user string) {
	w.lastActivity = w.cfg.Clock()
	if user != "" {
		w.lastUser = user
	}
}

// processLocked returns the interpreter, creating and registering it first.
func (w *Worksheet) processLocked() compute.Process {
	if w.proc == nil {
		w.proc = w.cfg.NewProcess()
		if w.cfg.Registry != nil {
			w.cfg.Registry.Register(w.proc)
		}
	}
	return w.proc
}

func (w *Worksheet) cellDir(id int) string {
	if w.cfg.Dir == "" {
		return ""
	}
	return filepath.Join(w.cfg.Dir, "cells", strconv.Itoa(id))
}

func (w *Worksheet) publish(name string, fields map[string]any) {
	w.pub.Publish(events.Event{Name: name, WorksheetID: w.cfg.ID, Fields: fields})
}
