package compute

import "time"

// Variant names used in logs and metric labels.
const (
	VariantLocal     = "local"
	VariantRemote    = "remote"
	VariantReference = "reference"
)

// OutputStatus is the result of one PollOutput call.
type OutputStatus struct {
	// Text is the output captured for the current execution so far.
	Text string
	// Done reports that the execution finished (or the process went away).
	Done bool
	// Dir is the scratch directory of the execution; Files are relative to it.
	Dir string
	// Files lists what the execution produced in Dir. Only set when Done.
	Files []string
}

// Process is a controllable interpreter backing one worksheet.
type Process interface {
	// Start spawns the interpreter. Spawn failures are returned as *SpawnError.
	Start() error
	// Execute starts evaluating code, starting the interpreter first if needed.
	// dataDir, when non-empty, is linked into the scratch directory.
	Execute(code, dataDir string) error
	// Interrupt asks the interpreter to abandon the current execution.
	// It is advisory; callers re-poll IsComputing to learn the effect.
	Interrupt() error
	// Quit terminates the interpreter and removes its scratch directories.
	// It is a no-op on a process that is not started.
	Quit()
	IsStarted() bool
	IsComputing() bool
	// PollOutput waits briefly for new output and reports progress.
	PollOutput() OutputStatus
	// Update enforces the wall-clock limit as of now.
	Update(now time.Time)
	// ExecNumber is the number of the most recent execution.
	ExecNumber() int
	// Variant returns one of the Variant* names.
	Variant() string
}
