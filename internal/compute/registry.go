package compute

import (
	"sync"
	"time"
)

// ProcessRegistry tracks live compute processes for the periodic driver.
type ProcessRegistry struct {
	mu    sync.Mutex
	procs map[Process]struct{}
}

func NewProcessRegistry() *ProcessRegistry {
	return &ProcessRegistry{procs: make(map[Process]struct{})}
}

func (r *ProcessRegistry) Register(p Process) {
	if p == nil {
		return
	}
	r.mu.Lock()
	r.procs[p] = struct{}{}
	r.mu.Unlock()
}

func (r *ProcessRegistry) Unregister(p Process) {
	r.mu.Lock()
	delete(r.procs, p)
	r.mu.Unlock()
}

func (r *ProcessRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.procs)
}

// Each calls fn for a snapshot of the registered processes; fn runs without
// the registry lock held.
func (r *ProcessRegistry) Each(fn func(Process)) {
	r.mu.Lock()
	snap := make([]Process, 0, len(r.procs))
	for p := range r.procs {
		snap = append(snap, p)
	}
	r.mu.Unlock()
	for _, p := range snap {
		fn(p)
	}
}

// UpdateAll runs the wall-time check of every registered process.
func (r *ProcessRegistry) UpdateAll(now time.Time) {
	r.Each(func(p Process) { p.Update(now) })
}

// QuitAll stops every registered process. Best effort.
func (r *ProcessRegistry) QuitAll() {
	r.Each(func(p Process) { p.Quit() })
}
