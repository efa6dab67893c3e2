package worksheet

import (
	"strings"
	"sync"
	"time"

	"worksheetd/internal/compute"
)

// fakeProcess is a scripted compute.Process. Code containing "slow" keeps
// computing until release or an honored interrupt.
type fakeProcess struct {
	mu sync.Mutex

	spawnErr        error
	ignoreInterrupt bool
	// result overrides the default "out:<code>" output.
	result func(code string) compute.OutputStatus

	started    bool
	computing  bool
	code       string
	released   bool
	interrupt  bool
	execs      []string
	interrupts int
	quits      int
	exec       int
}

func (p *fakeProcess) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startLocked()
}

func (p *fakeProcess) startLocked() error {
	if p.spawnErr != nil {
		return &compute.SpawnError{Command: "fake", Err: p.spawnErr}
	}
	p.started = true
	return nil
}

func (p *fakeProcess) Execute(code, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		if err := p.startLocked(); err != nil {
			return err
		}
	}
	p.exec++
	p.execs = append(p.execs, code)
	p.code = code
	p.computing = true
	p.released = false
	p.interrupt = false
	return nil
}

func (p *fakeProcess) Interrupt() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interrupts++
	if !p.ignoreInterrupt {
		p.interrupt = true
	}
	return nil
}

func (p *fakeProcess) Quit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return
	}
	p.quits++
	p.started = false
	p.computing = false
}

// kill simulates the registry tick stopping the process.
func (p *fakeProcess) kill() {
	p.mu.Lock()
	p.started = false
	p.computing = false
	p.mu.Unlock()
}

func (p *fakeProcess) release() {
	p.mu.Lock()
	p.released = true
	p.mu.Unlock()
}

func (p *fakeProcess) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

func (p *fakeProcess) IsComputing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.computing
}

func (p *fakeProcess) PollOutput() compute.OutputStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.computing {
		return compute.OutputStatus{Done: true}
	}
	if p.interrupt {
		p.computing = false
		return compute.OutputStatus{Text: "KeyboardInterrupt\n", Done: true}
	}
	if strings.Contains(p.code, "slow") && !p.released {
		return compute.OutputStatus{Text: "partial:" + p.code + "\n"}
	}
	p.computing = false
	if p.result != nil {
		return p.result(p.code)
	}
	return compute.OutputStatus{Text: "out:" + p.code + "\n", Done: true}
}

func (p *fakeProcess) Update(time.Time) {}

func (p *fakeProcess) ExecNumber() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exec
}

func (p *fakeProcess) Variant() string { return "fake" }

func (p *fakeProcess) executed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.execs...)
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
