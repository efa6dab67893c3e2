package manager

import (
	"time"

	"github.com/rs/zerolog"

	"worksheetd/internal/compute"
	"worksheetd/internal/events"
	"worksheetd/internal/history"
	"worksheetd/internal/worksheet"
)

// Interpreter kinds.
const (
	InterpreterPython    = "python"
	InterpreterReference = "reference"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultTickInterval = time.Second
	defaultIdleTimeout  = time.Hour
)

// RemoteConfig runs interpreters on another host over ssh.
type RemoteConfig struct {
	// UserHost enables the remote variant, e.g. "sage@compute1".
	UserHost     string
	SSHCommand   []string
	LocalPrefix  string
	RemotePrefix string
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// DataDir holds one directory per worksheet.
	DataDir string
	// Interpreter is InterpreterPython (default) or InterpreterReference.
	Interpreter string
	// InterpreterCmd overrides the interpreter argv.
	InterpreterCmd []string
	// Prompt overrides the interpreter prompt used for framing.
	Prompt string
	Remote RemoteConfig
	Limits compute.ProcessLimits

	// IdleTimeout stops interpreters of worksheets nobody touched for this
	// long. Negative disables it; zero uses the default.
	IdleTimeout  time.Duration
	TickInterval time.Duration
	PollTimeout  time.Duration

	Truncation   worksheet.TruncationPolicy
	FatalMarkers []string

	History   history.Store
	Publisher events.Publisher
	Logger    zerolog.Logger
	Clock     func() time.Time
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.Interpreter == "" {
		c.Interpreter = InterpreterPython
	}
	if c.TickInterval <= 0 {
		c.TickInterval = defaultTickInterval
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = defaultIdleTimeout
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	return c
}
