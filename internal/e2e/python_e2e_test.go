package e2e

import (
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"worksheetd/internal/manager"
	"worksheetd/pkg/types"
)

// TestPythonInterpreter_RoundTrip evaluates cells in a real python3 behind a
// pty. Skips unless WORKSHEETD_E2E_PYTHON=1 and python3 is on PATH.
func TestPythonInterpreter_RoundTrip(t *testing.T) {
	if os.Getenv("WORKSHEETD_E2E_PYTHON") != "1" {
		t.Skip("set WORKSHEETD_E2E_PYTHON=1 to run the python interpreter test")
	}
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not found on PATH")
	}
	srv, _ := newServerWithConfig(t, manager.ManagerConfig{
		Interpreter: manager.InterpreterPython,
		PollTimeout: 20 * time.Millisecond,
	})
	ws := createWorksheet(t, srv.URL, types.CreateWorksheetRequest{Name: "py"})

	evaluate(t, srv.URL, ws.ID, "x = 40", 10*time.Second)
	got := evaluate(t, srv.URL, ws.ID, "print(x + 2)", 10*time.Second)
	if strings.TrimSpace(got.Output) != "42" {
		t.Fatalf("output = %q", got.Output)
	}

	got = evaluate(t, srv.URL, ws.ID, "open('result.txt', 'w').write('hi')", 10*time.Second)
	found := false
	for _, f := range got.Files {
		if f == "result.txt" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected result.txt to be harvested, files=%v", got.Files)
	}
}
