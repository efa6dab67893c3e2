package compute

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

const (
	defaultPollTimeout = 20 * time.Millisecond
	defaultQuitGrace   = 250 * time.Millisecond
	readChunkSize      = 32 * 1024
	outputQueueDepth   = 256
)

// LocalConfig configures a LocalProcess.
type LocalConfig struct {
	// Command is the interpreter argv, e.g. ["python3", "-i", "-q"].
	Command []string
	Dialect Dialect
	Limits  ProcessLimits
	// ScratchRoot is where per-execution directories are created ("" = os.TempDir()).
	ScratchRoot string
	// Env is appended to the current environment.
	Env         []string
	PollTimeout time.Duration
	QuitGrace   time.Duration
	Logger      zerolog.Logger
	Clock       func() time.Time
}

// LocalProcess runs an interactive interpreter on a pseudo-terminal and
// frames each execution with START<n> ... <prompt>.
type LocalProcess struct {
	cfg     LocalConfig
	variant string
	// launch turns the shell command line into an argv.
	launch func(cmdline string) []string
	paths  pathMap

	mu         sync.Mutex
	cmd        *exec.Cmd
	tty        *os.File
	out        chan []byte
	exited     chan struct{}
	started    bool
	computing  bool
	startedAt  time.Time
	execNumber int
	program    string
	scanner    *sentinelScanner
	curDir     string
	inputFile  string
	dataLink   string
	scratch    []string
	pending    *OutputStatus
}

// NewLocalProcess constructs a not-started LocalProcess.
func NewLocalProcess(cfg LocalConfig) *LocalProcess {
	cfg = cfg.withDefaults()
	return &LocalProcess{
		cfg:     cfg,
		variant: VariantLocal,
		launch:  func(cmdline string) []string { return []string{"/bin/sh", "-c", cmdline} },
	}
}

func (c LocalConfig) withDefaults() LocalConfig {
	if c.Dialect == nil {
		c.Dialect = PythonDialect{}
	}
	if len(c.Command) == 0 {
		c.Command = []string{"python3", "-i", "-q"}
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = defaultPollTimeout
	}
	if c.QuitGrace <= 0 {
		c.QuitGrace = defaultQuitGrace
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	c.Limits = c.Limits.normalize()
	return c
}

func (p *LocalProcess) Variant() string { return p.variant }

// CommandLine is the shell command that starts the interpreter under its limits.
func (p *LocalProcess) CommandLine() string {
	return p.cfg.Limits.ShellPrefix() + "exec " + shellquote.Join(p.cfg.Command...)
}

func (p *LocalProcess) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startLocked()
}

func (p *LocalProcess) startLocked() error {
	if p.started {
		return nil
	}
	cmdline := p.CommandLine()
	argv := p.launch(cmdline)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), "PYTHONUNBUFFERED=1", "TERM=dumb")
	cmd.Env = append(cmd.Env, p.cfg.Env...)
	tty, err := pty.Start(cmd)
	if err != nil {
		p.cfg.Logger.Error().Str("event", "spawn_error").Str("variant", p.variant).Str("cmd", cmdline).Err(err).Msg("compute process failed to start")
		return &SpawnError{Command: cmdline, Err: err}
	}
	out := make(chan []byte, outputQueueDepth)
	exited := make(chan struct{})
	go readLoop(tty, out)
	go func() {
		_ = cmd.Wait()
		close(exited)
	}()
	p.cmd, p.tty, p.out, p.exited = cmd, tty, out, exited
	p.started = true
	p.computing = false
	p.startedAt = p.cfg.Clock()
	processesLive.Inc()
	processSpawnsTotal.WithLabelValues(p.variant).Inc()
	p.cfg.Logger.Info().Str("event", "spawn").Str("variant", p.variant).Int("pid", cmd.Process.Pid).Str("cmd", cmdline).Msg("compute process started")
	for _, line := range p.cfg.Dialect.InitCommands() {
		if _, err := io.WriteString(tty, line+"\n"); err != nil {
			p.quitLocked("spawn_error")
			return &SpawnError{Command: cmdline, Err: err}
		}
	}
	return nil
}

// readLoop forwards pty output until the far end closes. Linux reports EIO
// on the master once the child exits; every error is treated as EOF.
func readLoop(r io.Reader, out chan<- []byte) {
	defer close(out)
	buf := make([]byte, readChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			out <- chunk
		}
		if err != nil {
			return
		}
	}
}

func (p *LocalProcess) Execute(code, dataDir string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.startLocked(); err != nil {
		return err
	}
	p.dropScratchLocked()
	p.execNumber++
	n := p.execNumber
	executionsTotal.WithLabelValues(p.variant).Inc()

	dir, err := newScratchDir(p.cfg.ScratchRoot)
	if err != nil {
		p.failLocked(err.Error())
		return nil
	}
	p.scratch = append(p.scratch, dir)
	p.curDir = dir
	p.dataLink = ""
	if dataDir != "" {
		link := filepath.Base(filepath.Clean(dataDir))
		if err := os.Symlink(p.paths.toRemote(dataDir), filepath.Join(dir, link)); err != nil {
			p.cfg.Logger.Warn().Str("event", "data_link_error").Str("data_dir", dataDir).Err(err).Msg("cannot link data directory")
		} else {
			p.dataLink = link
		}
	}
	p.inputFile = InputFileName(n, p.cfg.Dialect.FileExt())
	p.program = p.cfg.Dialect.Program(n, code)
	if err := os.WriteFile(filepath.Join(dir, p.inputFile), []byte(p.program), 0o644); err != nil {
		p.failLocked(fmt.Sprintf("cannot write input file: %v", err))
		return nil
	}
	p.scanner = newSentinelScanner(n, p.cfg.Dialect.Prompt())
	p.pending = nil
	p.computing = true
	line := p.cfg.Dialect.RunCommand(p.paths.toRemote(dir), p.inputFile)
	if _, err := io.WriteString(p.tty, line+"\n"); err != nil {
		p.failLocked(fmt.Sprintf("error sending input to the interpreter: %v", err))
		return nil
	}
	p.cfg.Logger.Debug().Str("event", "execute").Str("variant", p.variant).Int("exec", n).Str("dir", dir).Msg("execution sent")
	return nil
}

// failLocked records msg as the output of the current execution.
func (p *LocalProcess) failLocked(msg string) {
	p.computing = false
	p.pending = &OutputStatus{Text: msg, Done: true, Dir: p.curDir}
	p.cfg.Logger.Warn().Str("event", "execute_error").Str("variant", p.variant).Int("exec", p.execNumber).Msg(msg)
}

func (p *LocalProcess) Interrupt() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return nil
	}
	// ETX is turned into SIGINT for the foreground group by the terminal.
	if _, err := p.tty.Write([]byte{0x03}); err != nil {
		return fmt.Errorf("interrupt: %w", err)
	}
	return nil
}

func (p *LocalProcess) Quit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quitLocked("quit")
}

func (p *LocalProcess) quitLocked(reason string) {
	if !p.started {
		return
	}
	pid := p.cmd.Process.Pid
	_, _ = p.tty.Write([]byte{0x03})
	if exit := p.cfg.Dialect.ExitCommand(); exit != "" {
		_, _ = io.WriteString(p.tty, exit+"\n")
	}
	select {
	case <-p.exited:
	case <-time.After(p.cfg.QuitGrace):
	}
	// pty.Start makes the child a session leader, so its pid is the group id.
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		p.cfg.Logger.Warn().Str("event", "kill_error").Int("pid", pid).Err(err).Msg("cannot kill process group")
	}
	_ = p.tty.Close()
	// Unblock readLoop if it is waiting on a full queue.
	go func(ch <-chan []byte) {
		for range ch {
		}
	}(p.out)
	for _, d := range p.scratch {
		_ = os.RemoveAll(d)
	}
	p.scratch = nil
	p.curDir = ""
	p.started = false
	p.computing = false
	p.startedAt = time.Time{}
	p.cmd, p.tty, p.out = nil, nil, nil
	processesLive.Dec()
	processQuitsTotal.WithLabelValues(reason).Inc()
	p.cfg.Logger.Info().Str("event", "quit").Str("variant", p.variant).Str("reason", reason).Int("pid", pid).Msg("compute process stopped")
}

// dropScratchLocked removes scratch directories of earlier executions; their
// files have been harvested by the time the next execution starts.
func (p *LocalProcess) dropScratchLocked() {
	for _, d := range p.scratch {
		_ = os.RemoveAll(d)
	}
	p.scratch = nil
}

func (p *LocalProcess) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

func (p *LocalProcess) IsComputing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.computing
}

func (p *LocalProcess) ExecNumber() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.execNumber
}

// PollOutput waits up to the poll timeout for output, then drains whatever
// else is already queued without waiting.
func (p *LocalProcess) PollOutput() OutputStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending != nil {
		st := *p.pending
		p.pending = nil
		return st
	}
	if !p.started || !p.computing {
		return OutputStatus{Done: true}
	}
	outcome := p.scanner.outcome()
	eof := false
	timer := time.NewTimer(p.cfg.PollTimeout)
	defer timer.Stop()
	select {
	case chunk, ok := <-p.out:
		if !ok {
			eof = true
		} else {
			outcome = p.scanner.feed(chunk)
		}
	case <-timer.C:
	}
drain:
	for !eof && outcome.Kind != Complete {
		select {
		case chunk, ok := <-p.out:
			if !ok {
				eof = true
				break drain
			}
			outcome = p.scanner.feed(chunk)
		default:
			break drain
		}
	}

	switch {
	case outcome.Kind == Complete:
		p.computing = false
		files := producedFiles(p.curDir, p.inputFile, p.dataLink)
		return OutputStatus{Text: outcome.Text, Done: true, Dir: p.curDir, Files: files}
	case eof:
		text := outcome.Text
		if outcome.Kind == NotFound {
			text = p.scanner.raw()
		}
		p.cfg.Logger.Warn().Str("event", "eof").Str("variant", p.variant).Int("exec", p.execNumber).Msg("interpreter closed its output")
		p.quitLocked("eof")
		return OutputStatus{Text: text, Done: true}
	default:
		return OutputStatus{Text: outcome.Text}
	}
}

func (p *LocalProcess) Update(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started && p.cfg.Limits.expired(p.startedAt, now) {
		p.cfg.Logger.Info().Str("event", "wall_timeout").Str("variant", p.variant).Int("max_wall_seconds", p.cfg.Limits.MaxWallSeconds).Msg("compute process exceeded wall time")
		p.quitLocked("wall_timeout")
	}
}
