package compute

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// fakeDialect speaks the command language of testdata/fake_interp.go.
type fakeDialect struct{}

func (fakeDialect) Name() string           { return "fake" }
func (fakeDialect) Prompt() string         { return "PROMPT>" }
func (fakeDialect) InitCommands() []string { return nil }
func (fakeDialect) FileExt() string        { return "fake" }
func (fakeDialect) ExitCommand() string    { return "exit" }

func (fakeDialect) Program(n int, code string) string {
	return fmt.Sprintf("echo %s\n%s\n", StartMarker(n), code)
}

func (fakeDialect) RunCommand(dir, file string) string { return "run " + filepath.Join(dir, file) }

func (fakeDialect) WrapSystem(system, code string) (string, error) { return code, nil }
func (fakeDialect) Introspect(before, after string) string         { return "echo " + before }

func buildFakeInterp(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := filepath.Join(t.TempDir(), "fake_interp")
	cmd := exec.Command("go", "build", "-o", bin, "./testdata/fake_interp.go")
	cmd.Dir = "."
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build fake interpreter: %v: %s", err, string(out))
	}
	return bin
}

func newFakeLocal(t *testing.T, limits ProcessLimits) *LocalProcess {
	t.Helper()
	bin := buildFakeInterp(t)
	p := NewLocalProcess(LocalConfig{
		Command:     []string{bin},
		Dialect:     fakeDialect{},
		Limits:      limits,
		ScratchRoot: t.TempDir(),
	})
	t.Cleanup(p.Quit)
	return p
}

// pollUntilDone polls until the execution finishes or the deadline passes.
func pollUntilDone(t *testing.T, p Process, timeout time.Duration) OutputStatus {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		st := p.PollOutput()
		if st.Done {
			return st
		}
	}
	t.Fatalf("execution did not finish within %s", timeout)
	return OutputStatus{}
}

func TestLocalProcessRoundTrip(t *testing.T) {
	p := newFakeLocal(t, ProcessLimits{})
	if p.IsStarted() {
		t.Fatalf("new process must not be started")
	}
	if err := p.Execute("echo hello\necho world", ""); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !p.IsStarted() || !p.IsComputing() {
		t.Fatalf("execute should start the process and mark it busy")
	}
	st := pollUntilDone(t, p, 5*time.Second)
	if st.Text != "hello\nworld\n" {
		t.Fatalf("output = %q", st.Text)
	}
	if p.IsComputing() {
		t.Fatalf("process should be idle after completion")
	}
	if err := p.Execute("echo again", ""); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if st := pollUntilDone(t, p, 5*time.Second); st.Text != "again\n" {
		t.Fatalf("second output = %q", st.Text)
	}
	if p.ExecNumber() != 2 {
		t.Fatalf("exec number = %d", p.ExecNumber())
	}
}

func TestLocalProcessPartialOutput(t *testing.T) {
	p := newFakeLocal(t, ProcessLimits{})
	if err := p.Execute("echo early\nsleep 400\necho late", ""); err != nil {
		t.Fatalf("execute: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		st := p.PollOutput()
		if st.Done {
			t.Fatalf("finished before partial output was observed: %q", st.Text)
		}
		if st.Text == "early\n" {
			break
		}
	}
	if st := pollUntilDone(t, p, 5*time.Second); st.Text != "early\nlate\n" {
		t.Fatalf("final output = %q", st.Text)
	}
}

func TestLocalProcessProducedFilesAndDataLink(t *testing.T) {
	p := newFakeLocal(t, ProcessLimits{})
	data := filepath.Join(t.TempDir(), "attached")
	if err := os.MkdirAll(data, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := p.Execute("touch plot.png\nls", data); err != nil {
		t.Fatalf("execute: %v", err)
	}
	st := pollUntilDone(t, p, 5*time.Second)
	if !strings.Contains(st.Text, "attached") {
		t.Fatalf("data link not visible to the interpreter: %q", st.Text)
	}
	if len(st.Files) != 1 || st.Files[0] != "plot.png" {
		t.Fatalf("produced files = %v", st.Files)
	}
	if _, err := os.Stat(filepath.Join(st.Dir, "plot.png")); err != nil {
		t.Fatalf("produced file missing from scratch dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(st.Dir, InputFileName(1, "fake"))); err != nil {
		t.Fatalf("input file missing: %v", err)
	}
}

func TestLocalProcessEOFRestartsLazily(t *testing.T) {
	p := newFakeLocal(t, ProcessLimits{})
	if err := p.Execute("echo bye\ncrash", ""); err != nil {
		t.Fatalf("execute: %v", err)
	}
	st := pollUntilDone(t, p, 5*time.Second)
	if !strings.Contains(st.Text, "Unhandled SIGSEGV") || !strings.Contains(st.Text, "bye") {
		t.Fatalf("output captured before the crash was lost: %q", st.Text)
	}
	if p.IsStarted() {
		t.Fatalf("process should be torn down after EOF")
	}
	if err := p.Execute("echo back", ""); err != nil {
		t.Fatalf("execute after EOF: %v", err)
	}
	if st := pollUntilDone(t, p, 5*time.Second); st.Text != "back\n" {
		t.Fatalf("output after restart = %q", st.Text)
	}
}

func TestLocalProcessInterrupt(t *testing.T) {
	p := newFakeLocal(t, ProcessLimits{})
	if err := p.Execute("sleep 10000\necho unreachable", ""); err != nil {
		t.Fatalf("execute: %v", err)
	}
	// Let the interpreter reach the sleep.
	for i := 0; i < 10; i++ {
		if st := p.PollOutput(); st.Done {
			t.Fatalf("finished early: %q", st.Text)
		}
	}
	if err := p.Interrupt(); err != nil {
		t.Fatalf("interrupt: %v", err)
	}
	st := pollUntilDone(t, p, 3*time.Second)
	if !strings.Contains(st.Text, "KeyboardInterrupt") || strings.Contains(st.Text, "unreachable") {
		t.Fatalf("output = %q", st.Text)
	}
	if !p.IsStarted() {
		t.Fatalf("interrupt should not kill the interpreter")
	}
}

func TestLocalProcessQuitRemovesScratchAndIsIdempotent(t *testing.T) {
	p := newFakeLocal(t, ProcessLimits{})
	if err := p.Execute("echo x", ""); err != nil {
		t.Fatalf("execute: %v", err)
	}
	st := pollUntilDone(t, p, 5*time.Second)
	p.Quit()
	p.Quit()
	if p.IsStarted() || p.IsComputing() {
		t.Fatalf("expected stopped process")
	}
	if _, err := os.Stat(st.Dir); !os.IsNotExist(err) {
		t.Fatalf("scratch dir should be removed on quit, stat err = %v", err)
	}
}

func TestLocalProcessWallTimeout(t *testing.T) {
	now := time.Now()
	p := newFakeLocal(t, NewProcessLimits(0, 0, 0, 1))
	p.cfg.Clock = func() time.Time { return now }
	if err := p.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	p.Update(now.Add(2 * time.Second))
	if p.IsStarted() {
		t.Fatalf("expected wall timeout to stop the process")
	}
}

func TestLocalProcessSpawnFailure(t *testing.T) {
	p := NewLocalProcess(LocalConfig{Command: []string{"/nonexistent/interpreter"}, Dialect: fakeDialect{}, ScratchRoot: t.TempDir()})
	p.launch = func(string) []string { return []string{"/nonexistent/interpreter"} }
	err := p.Start()
	if !IsSpawnError(err) {
		t.Fatalf("expected spawn error, got %v", err)
	}
	if p.IsStarted() {
		t.Fatalf("failed spawn must leave the process stopped")
	}
}

func TestLocalProcessCommandLineAppliesLimits(t *testing.T) {
	p := NewLocalProcess(LocalConfig{Command: []string{"python3", "-i", "/tmp/start up.py"}, Limits: NewProcessLimits(2048, 0, 0, 0)})
	got := p.CommandLine()
	want := `ulimit -v 2048 2>/dev/null; exec python3 -i '/tmp/start up.py'`
	if got != want {
		t.Fatalf("command line = %q, want %q", got, want)
	}
}

func TestRemoteProcessPaths(t *testing.T) {
	p := NewRemoteProcess(RemoteConfig{
		LocalConfig:  LocalConfig{Command: []string{"python3", "-i"}},
		UserHost:     "sage@compute1",
		LocalPrefix:  "/mnt/shared",
		RemotePrefix: "/export/shared",
	})
	if p.Variant() != VariantRemote {
		t.Fatalf("variant = %s", p.Variant())
	}
	if got := p.RemotePath("/mnt/shared/worksheetd/ws_exec_1"); got != "/export/shared/worksheetd/ws_exec_1" {
		t.Fatalf("remote path = %s", got)
	}
	if got := p.RemotePath("/home/user/data"); got != "/home/user/data" {
		t.Fatalf("paths outside the shared prefix are unchanged, got %s", got)
	}
	argv := p.RemoteArgv()
	if argv != "ssh -tt -o BatchMode=yes sage@compute1 'exec python3 -i'" {
		t.Fatalf("argv = %s", argv)
	}
	if p.cfg.ScratchRoot != filepath.Join("/mnt/shared", "worksheetd") {
		t.Fatalf("scratch root = %s", p.cfg.ScratchRoot)
	}
}
