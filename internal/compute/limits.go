package compute

import (
	"fmt"
	"strings"
	"time"
)

// ProcessLimits describes optional resource caps for a compute process.
//
// A zero field imposes no limit. Values are copied on construction so a
// ProcessLimits never changes once handed to a process.
type ProcessLimits struct {
	MaxMemoryKB    int `json:"max_memory_kb" yaml:"max_memory_kb" toml:"max_memory_kb"`
	MaxCPUSeconds  int `json:"max_cpu_seconds" yaml:"max_cpu_seconds" toml:"max_cpu_seconds"`
	MaxProcesses   int `json:"max_processes" yaml:"max_processes" toml:"max_processes"`
	MaxWallSeconds int `json:"max_wall_seconds" yaml:"max_wall_seconds" toml:"max_wall_seconds"`
}

// NewProcessLimits builds a normalized ProcessLimits. Negative values mean "no limit".
func NewProcessLimits(memoryKB, cpuSeconds, processes, wallSeconds int) ProcessLimits {
	return ProcessLimits{
		MaxMemoryKB:    memoryKB,
		MaxCPUSeconds:  cpuSeconds,
		MaxProcesses:   processes,
		MaxWallSeconds: wallSeconds,
	}.normalize()
}

func (l ProcessLimits) normalize() ProcessLimits {
	if l.MaxMemoryKB < 0 {
		l.MaxMemoryKB = 0
	}
	if l.MaxCPUSeconds < 0 {
		l.MaxCPUSeconds = 0
	}
	if l.MaxProcesses < 0 {
		l.MaxProcesses = 0
	}
	if l.MaxWallSeconds < 0 {
		l.MaxWallSeconds = 0
	}
	return l
}

// WallTimeout returns the wall-clock cap, or zero when unlimited.
func (l ProcessLimits) WallTimeout() time.Duration {
	return time.Duration(l.MaxWallSeconds) * time.Second
}

// ShellPrefix renders the limits as ulimit directives to prepend to a shell
// command line. Each directive tolerates a shell without that limit.
func (l ProcessLimits) ShellPrefix() string {
	var b strings.Builder
	if l.MaxMemoryKB > 0 {
		fmt.Fprintf(&b, "ulimit -v %d 2>/dev/null; ", l.MaxMemoryKB)
	}
	if l.MaxCPUSeconds > 0 {
		fmt.Fprintf(&b, "ulimit -t %d 2>/dev/null; ", l.MaxCPUSeconds)
	}
	if l.MaxProcesses > 0 {
		fmt.Fprintf(&b, "ulimit -u %d 2>/dev/null; ", l.MaxProcesses)
	}
	return b.String()
}

// expired reports whether a process started at startedAt has overrun the wall cap.
func (l ProcessLimits) expired(startedAt, now time.Time) bool {
	if l.MaxWallSeconds <= 0 || startedAt.IsZero() {
		return false
	}
	return now.Sub(startedAt) >= l.WallTimeout()
}
