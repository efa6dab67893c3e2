package config

import (
	"fmt"
	"path/filepath"
	"time"

	"worksheetd/internal/common/fsutil"
	"worksheetd/internal/compute"
	"worksheetd/internal/manager"
	"worksheetd/internal/worksheet"
)

// Defaults filled in by Config.Defaults.
const (
	DefaultAddr               = ":8080"
	DefaultDataDir            = "~/.worksheetd"
	DefaultIdleTimeoutSeconds = 3600
	DefaultTickIntervalMs     = 1000
	DefaultPollTimeoutMs      = 20
	DefaultMaxBodyBytes       = 1 << 20
	DefaultHistoryDB          = "history.db"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by Defaults.
type Config struct {
	Addr           string   `json:"addr" yaml:"addr" toml:"addr"`
	DataDir        string   `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	Interpreter    string   `json:"interpreter" yaml:"interpreter" toml:"interpreter"`
	InterpreterCmd []string `json:"interpreter_cmd" yaml:"interpreter_cmd" toml:"interpreter_cmd"`
	Prompt         string   `json:"prompt" yaml:"prompt" toml:"prompt"`
	Remote         Remote   `json:"remote" yaml:"remote" toml:"remote"`

	Limits compute.ProcessLimits `json:"limits" yaml:"limits" toml:"limits"`

	IdleTimeoutSeconds int `json:"idle_timeout_seconds" yaml:"idle_timeout_seconds" toml:"idle_timeout_seconds"`
	TickIntervalMs     int `json:"tick_interval_ms" yaml:"tick_interval_ms" toml:"tick_interval_ms"`
	PollTimeoutMs      int `json:"poll_timeout_ms" yaml:"poll_timeout_ms" toml:"poll_timeout_ms"`

	Output       worksheet.TruncationPolicy `json:"output" yaml:"output" toml:"output"`
	FatalMarkers []string                   `json:"fatal_markers" yaml:"fatal_markers" toml:"fatal_markers"`

	// HistoryDB is the sqlite file, relative to DataDir unless absolute.
	// "memory" keeps history in process.
	HistoryDB    string `json:"history_db" yaml:"history_db" toml:"history_db"`
	CORS         CORS   `json:"cors" yaml:"cors" toml:"cors"`
	MaxBodyBytes int64  `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	LogLevel     string `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Remote runs interpreters on another host over ssh.
type Remote struct {
	UserHost     string   `json:"user_host" yaml:"user_host" toml:"user_host"`
	LocalPrefix  string   `json:"local_prefix" yaml:"local_prefix" toml:"local_prefix"`
	RemotePrefix string   `json:"remote_prefix" yaml:"remote_prefix" toml:"remote_prefix"`
	SSHCmd       []string `json:"ssh_cmd" yaml:"ssh_cmd" toml:"ssh_cmd"`
}

// CORS is opt-in cross-origin configuration for the HTTP API.
type CORS struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Defaults returns a copy of c with zero values replaced.
func (c Config) Defaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.Interpreter == "" {
		c.Interpreter = manager.InterpreterPython
	}
	if c.IdleTimeoutSeconds == 0 {
		c.IdleTimeoutSeconds = DefaultIdleTimeoutSeconds
	}
	if c.TickIntervalMs <= 0 {
		c.TickIntervalMs = DefaultTickIntervalMs
	}
	if c.PollTimeoutMs <= 0 {
		c.PollTimeoutMs = DefaultPollTimeoutMs
	}
	if c.HistoryDB == "" {
		c.HistoryDB = DefaultHistoryDB
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return c
}

// Validate rejects values Defaults cannot fix.
func (c Config) Validate() error {
	switch c.Interpreter {
	case "", manager.InterpreterPython, manager.InterpreterReference:
	default:
		return fmt.Errorf("unknown interpreter %q (want %s or %s)", c.Interpreter, manager.InterpreterPython, manager.InterpreterReference)
	}
	if c.Remote.UserHost != "" && c.Remote.LocalPrefix == "" {
		return fmt.Errorf("remote.local_prefix is required with remote.user_host")
	}
	return nil
}

// ResolvedDataDir expands a leading '~' in DataDir.
func (c Config) ResolvedDataDir() (string, error) {
	return fsutil.ExpandHome(c.DataDir)
}

// HistoryPath is where the history database lives, or "" for in-memory
// history.
func (c Config) HistoryPath() (string, error) {
	if c.HistoryDB == "memory" {
		return "", nil
	}
	p, err := fsutil.ExpandHome(c.HistoryDB)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(p) {
		return p, nil
	}
	dir, err := c.ResolvedDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, p), nil
}

// ManagerConfig converts c into manager settings. The caller adds the
// history store, publisher and logger.
func (c Config) ManagerConfig() (manager.ManagerConfig, error) {
	dir, err := c.ResolvedDataDir()
	if err != nil {
		return manager.ManagerConfig{}, err
	}
	idle := time.Duration(c.IdleTimeoutSeconds) * time.Second
	if c.IdleTimeoutSeconds < 0 {
		idle = -1
	}
	return manager.ManagerConfig{
		DataDir:        dir,
		Interpreter:    c.Interpreter,
		InterpreterCmd: c.InterpreterCmd,
		Prompt:         c.Prompt,
		Remote: manager.RemoteConfig{
			UserHost:     c.Remote.UserHost,
			SSHCommand:   c.Remote.SSHCmd,
			LocalPrefix:  c.Remote.LocalPrefix,
			RemotePrefix: c.Remote.RemotePrefix,
		},
		Limits:       compute.NewProcessLimits(c.Limits.MaxMemoryKB, c.Limits.MaxCPUSeconds, c.Limits.MaxProcesses, c.Limits.MaxWallSeconds),
		IdleTimeout:  idle,
		TickInterval: time.Duration(c.TickIntervalMs) * time.Millisecond,
		PollTimeout:  time.Duration(c.PollTimeoutMs) * time.Millisecond,
		Truncation:   c.Output,
		FatalMarkers: c.FatalMarkers,
	}, nil
}
