package manager

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"worksheetd/internal/compute"
)

func (m *Manager) dialect() compute.Dialect {
	if m.cfg.Interpreter == InterpreterReference {
		return compute.ReferenceDialect{}
	}
	return compute.PythonDialect{PromptString: m.cfg.Prompt}
}

// Variant is the process variant new worksheets get.
func (m *Manager) Variant() string {
	switch {
	case m.cfg.Interpreter == InterpreterReference:
		return compute.VariantReference
	case m.cfg.Remote.UserHost != "":
		return compute.VariantRemote
	default:
		return compute.VariantLocal
	}
}

// processFactory builds the interpreter constructor for one worksheet.
func (m *Manager) processFactory(worksheetID string) func() compute.Process {
	log := m.log.With().Str("worksheet", worksheetID).Logger()
	switch m.Variant() {
	case compute.VariantReference:
		return func() compute.Process {
			return compute.NewReferenceProcess(m.cfg.Limits,
				compute.WithReferenceClock(m.cfg.Clock),
				compute.WithReferenceLogger(log))
		}
	case compute.VariantRemote:
		r := m.cfg.Remote
		return func() compute.Process {
			return compute.NewRemoteProcess(compute.RemoteConfig{
				LocalConfig:  m.localConfig(log, ""),
				UserHost:     r.UserHost,
				SSHCommand:   r.SSHCommand,
				LocalPrefix:  r.LocalPrefix,
				RemotePrefix: r.RemotePrefix,
			})
		}
	default:
		scratch := ""
		if m.cfg.DataDir != "" {
			scratch = filepath.Join(m.cfg.DataDir, "scratch")
		}
		return func() compute.Process {
			return compute.NewLocalProcess(m.localConfig(log, scratch))
		}
	}
}

func (m *Manager) localConfig(log zerolog.Logger, scratch string) compute.LocalConfig {
	return compute.LocalConfig{
		Command:     m.cfg.InterpreterCmd,
		Dialect:     m.dialect(),
		Limits:      m.cfg.Limits,
		ScratchRoot: scratch,
		PollTimeout: m.cfg.PollTimeout,
		Logger:      log,
		Clock:       m.cfg.Clock,
	}
}
