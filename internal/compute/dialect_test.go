package compute

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestPythonDialectProgram(t *testing.T) {
	d := PythonDialect{}
	code := "x = '''quotes'''\nx"
	prog := d.Program(4, code)
	if !strings.HasPrefix(prog, `print("START4")`) {
		t.Fatalf("program must print the start marker first:\n%s", prog)
	}
	if !strings.Contains(prog, base64.StdEncoding.EncodeToString([]byte(code))) {
		t.Fatalf("program must embed the encoded source:\n%s", prog)
	}
	if strings.Contains(prog, "quotes") {
		t.Fatalf("raw source leaked into the program")
	}
}

func TestPythonDialectCommands(t *testing.T) {
	d := PythonDialect{PromptString: "XX"}
	if d.Prompt() != "XX" {
		t.Fatalf("prompt override ignored")
	}
	if init := d.InitCommands(); len(init) != 1 || !strings.Contains(init[0], `sys.ps1 = "XX"`) {
		t.Fatalf("unexpected init commands: %v", init)
	}
	run := d.RunCommand("/tmp/s d", "_sage_input_1.py")
	if !strings.Contains(run, `os.chdir("/tmp/s d")`) || !strings.Contains(run, `open("_sage_input_1.py")`) {
		t.Fatalf("unexpected run command: %s", run)
	}
	if (PythonDialect{}).Prompt() != defaultPythonPrompt {
		t.Fatalf("default prompt not used")
	}
}

func TestWrapSystem(t *testing.T) {
	d := PythonDialect{}
	if got, err := d.WrapSystem("python", "1+1"); err != nil || got != "1+1" {
		t.Fatalf("python passthrough: %q %v", got, err)
	}
	got, err := d.WrapSystem("sh", "ls -l")
	if err != nil || !strings.Contains(got, `"ls -l"`) {
		t.Fatalf("sh wrap: %q %v", got, err)
	}
	_, err = d.WrapSystem("gap", "1")
	var use UnknownSystemError
	if !errors.As(err, &use) || use.System != "gap" {
		t.Fatalf("expected UnknownSystemError, got %v", err)
	}
	if _, err := (ReferenceDialect{}).WrapSystem("sh", "x"); err == nil {
		t.Fatalf("reference dialect must reject sh")
	}
}

func TestIntrospect(t *testing.T) {
	d := PythonDialect{}
	if got := d.Introspect("math.sq", ""); !strings.Contains(got, "dir(math)") || !strings.Contains(got, `"sq"`) {
		t.Fatalf("attribute completion: %s", got)
	}
	if got := d.Introspect("foo(pri", ""); !strings.Contains(got, `startswith("pri")`) {
		t.Fatalf("name completion: %s", got)
	}
	if got := d.Introspect("os.path.join?", ""); !strings.Contains(got, "render_doc(os.path.join") {
		t.Fatalf("doc request: %s", got)
	}
	if got := (ReferenceDialect{}).Introspect("va", ""); got != `print(completions("va"))` {
		t.Fatalf("reference completion: %s", got)
	}
}

func TestTrailingName(t *testing.T) {
	cases := map[string]string{"a + bc": "bc", "f(x.y": "x.y", "": "", "1 + ": ""}
	for in, want := range cases {
		if got := trailingName(in); got != want {
			t.Fatalf("trailingName(%q) = %q, want %q", in, got, want)
		}
	}
}
