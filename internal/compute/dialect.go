package compute

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Dialect tells a driver how to talk to one kind of interpreter.
type Dialect interface {
	Name() string
	// Prompt is the string the interpreter prints when it is ready for input.
	Prompt() string
	// InitCommands are sent once after spawn.
	InitCommands() []string
	FileExt() string
	// Program renders the file that runs code as execution n; it must print
	// StartMarker(n) on its own line before any output of code.
	Program(execNumber int, code string) string
	// RunCommand is the single input line that runs file from inside dir.
	RunCommand(dir, file string) string
	ExitCommand() string
	// WrapSystem rewrites code so it is evaluated by the named sub-evaluator.
	WrapSystem(system, code string) (string, error)
	// Introspect renders code that prints completions for before, or the
	// documentation of the object when before ends with '?'.
	Introspect(before, after string) string
}

// UnknownSystemError is returned by WrapSystem for an unsupported %system.
type UnknownSystemError struct{ System string }

func (e UnknownSystemError) Error() string { return "unknown system: %" + e.System }

const defaultPythonPrompt = "__WS_PROMPT__"

// PythonDialect drives `python3 -i` on a pseudo-terminal.
type PythonDialect struct {
	// PromptString overrides the default prompt sentinel.
	PromptString string
}

func (PythonDialect) Name() string { return "python" }

func (d PythonDialect) Prompt() string {
	if d.PromptString != "" {
		return d.PromptString
	}
	return defaultPythonPrompt
}

func (d PythonDialect) InitCommands() []string {
	return []string{fmt.Sprintf("import sys; sys.ps1 = %s; sys.ps2 = ''", strconv.Quote(d.Prompt()))}
}

func (PythonDialect) FileExt() string { return "py" }

// pythonProgram runs the cell source from base64 so no quoting of user code is
// needed, and echoes the value of a trailing expression statement the way an
// interactive session does.
const pythonProgram = `print(%q)
import ast as _ws_ast, base64 as _ws_b64
_ws_tree = _ws_ast.parse(_ws_b64.b64decode(%q).decode('utf-8'), '<cell>')
_ws_last = _ws_tree.body.pop() if _ws_tree.body and isinstance(_ws_tree.body[-1], _ws_ast.Expr) else None
exec(compile(_ws_tree, '<cell>', 'exec'))
if _ws_last is not None:
    _ws_val = eval(compile(_ws_ast.Expression(_ws_last.value), '<cell>', 'eval'))
    if _ws_val is not None:
        print(repr(_ws_val))
`

func (PythonDialect) Program(execNumber int, code string) string {
	return fmt.Sprintf(pythonProgram, StartMarker(execNumber), base64.StdEncoding.EncodeToString([]byte(code)))
}

func (PythonDialect) RunCommand(dir, file string) string {
	return fmt.Sprintf("import os; os.chdir(%s); exec(open(%s).read())", strconv.Quote(dir), strconv.Quote(file))
}

func (PythonDialect) ExitCommand() string { return "quit()" }

func (PythonDialect) WrapSystem(system, code string) (string, error) {
	switch system {
	case "", "python":
		return code, nil
	case "sh":
		return fmt.Sprintf("_ = __import__('subprocess').run(['/bin/sh', '-c', %s])", strconv.Quote(code)), nil
	default:
		return "", UnknownSystemError{System: system}
	}
}

func (PythonDialect) Introspect(before, after string) string {
	if name, ok := docTarget(before); ok {
		return fmt.Sprintf("import pydoc\nprint(pydoc.render_doc(%s, renderer=pydoc.plaintext))", name)
	}
	token := trailingName(before)
	if i := strings.LastIndex(token, "."); i >= 0 {
		return fmt.Sprintf("print('\\n'.join(sorted(n for n in dir(%s) if n.startswith(%s))))",
			token[:i], strconv.Quote(token[i+1:]))
	}
	return fmt.Sprintf("print('\\n'.join(sorted(n for n in set(globals()) | set(dir(__builtins__)) if n.startswith(%s) and not n.startswith('_ws_'))))",
		strconv.Quote(token))
}

// docTarget returns the dotted name before a trailing '?'.
func docTarget(before string) (string, bool) {
	s := strings.TrimRight(before, " \t")
	if !strings.HasSuffix(s, "?") {
		return "", false
	}
	name := trailingName(strings.TrimRight(s, "?"))
	return name, name != ""
}

// trailingName returns the dotted identifier at the end of s ("" if none).
func trailingName(s string) string {
	i := len(s)
	for i > 0 {
		r := rune(s[i-1])
		if r == '.' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			i--
			continue
		}
		break
	}
	return s[i:]
}
