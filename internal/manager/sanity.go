package manager

import (
	"os"
	"os/exec"
	"path/filepath"
)

// Check is one named sanity check.
type Check struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// SanityReport describes runtime checks for external dependencies.
type SanityReport struct {
	OK          bool    `json:"ok"`
	Interpreter string  `json:"interpreter"`
	Variant     string  `json:"variant"`
	Checks      []Check `json:"checks"`
}

// SanityCheck validates that the interpreter (or ssh, for the remote
// variant) can be found and that the data directory is writable.
// It does not mutate state and is safe to call at any time.
func (m *Manager) SanityCheck() SanityReport {
	r := SanityReport{OK: true, Interpreter: m.cfg.Interpreter, Variant: m.Variant()}
	add := func(c Check) {
		r.Checks = append(r.Checks, c)
		if !c.OK {
			r.OK = false
		}
	}

	if m.cfg.DataDir != "" {
		add(checkWritable("data_dir_writable", m.cfg.DataDir))
	}
	switch r.Variant {
	case "remote":
		ssh := "ssh"
		if len(m.cfg.Remote.SSHCommand) > 0 {
			ssh = m.cfg.Remote.SSHCommand[0]
		}
		add(checkBinary("ssh_found", ssh))
		if m.cfg.Remote.LocalPrefix != "" {
			add(checkWritable("shared_prefix_writable", m.cfg.Remote.LocalPrefix))
		}
	case "local":
		bin := "python3"
		if len(m.cfg.InterpreterCmd) > 0 {
			bin = m.cfg.InterpreterCmd[0]
		}
		add(checkBinary("interpreter_found", bin))
	}
	return r
}

func checkBinary(name, bin string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: name, OK: false, Message: err.Error()}
	}
	return Check{Name: name, OK: true, Message: path}
}

func checkWritable(name, dir string) Check {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Check{Name: name, OK: false, Message: err.Error()}
	}
	f, err := os.CreateTemp(dir, ".sanity-")
	if err != nil {
		return Check{Name: name, OK: false, Message: err.Error()}
	}
	f.Close()
	_ = os.Remove(f.Name())
	return Check{Name: name, OK: true, Message: filepath.Clean(dir)}
}
