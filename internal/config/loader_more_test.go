package config

import (
	"path/filepath"
	"testing"
	"time"

	"worksheetd/internal/manager"
)

func TestLoadInvalidYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.yaml", "addr: [unterminated\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected yaml parse error")
	}
}

func TestLoadInvalidJSONAndTOML(t *testing.T) {
	d := t.TempDir()
	if _, err := Load(writeTempFile(t, d, "bad.json", "{")); err == nil {
		t.Fatalf("expected json parse error")
	}
	if _, err := Load(writeTempFile(t, d, "bad.toml", "addr = ")); err == nil {
		t.Fatalf("expected toml parse error")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Config{}.Defaults()
	if cfg.Addr != DefaultAddr || cfg.Interpreter != manager.InterpreterPython || cfg.IdleTimeoutSeconds != DefaultIdleTimeoutSeconds {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.TickIntervalMs != DefaultTickIntervalMs || cfg.PollTimeoutMs != DefaultPollTimeoutMs || cfg.MaxBodyBytes != DefaultMaxBodyBytes {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	kept := Config{Addr: ":1", IdleTimeoutSeconds: -1}.Defaults()
	if kept.Addr != ":1" || kept.IdleTimeoutSeconds != -1 {
		t.Fatalf("explicit values must survive: %+v", kept)
	}
}

func TestValidate(t *testing.T) {
	if err := (Config{Interpreter: "ruby"}).Validate(); err == nil {
		t.Fatalf("expected unknown interpreter error")
	}
	if err := (Config{Remote: Remote{UserHost: "a@b"}}).Validate(); err == nil {
		t.Fatalf("expected missing local prefix error")
	}
	if err := (Config{Interpreter: "python", Remote: Remote{UserHost: "a@b", LocalPrefix: "/s"}}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestManagerConfigConversion(t *testing.T) {
	d := t.TempDir()
	cfg := Config{
		DataDir:            d,
		Interpreter:        "reference",
		IdleTimeoutSeconds: -1,
		Remote:             Remote{UserHost: "u@h", LocalPrefix: "/l", RemotePrefix: "/r", SSHCmd: []string{"ssh"}},
	}.Defaults()
	cfg.Limits.MaxWallSeconds = 5
	mc, err := cfg.ManagerConfig()
	if err != nil {
		t.Fatalf("ManagerConfig: %v", err)
	}
	if mc.DataDir != d || mc.Interpreter != "reference" || mc.IdleTimeout >= 0 {
		t.Fatalf("unexpected manager config: %+v", mc)
	}
	if mc.TickInterval != time.Second || mc.PollTimeout != 20*time.Millisecond {
		t.Fatalf("durations: tick=%v poll=%v", mc.TickInterval, mc.PollTimeout)
	}
	if mc.Limits.WallTimeout() != 5*time.Second || mc.Remote.RemotePrefix != "/r" {
		t.Fatalf("limits/remote: %+v %+v", mc.Limits, mc.Remote)
	}
}

func TestHistoryPath(t *testing.T) {
	cfg := Config{DataDir: "/srv/ws"}.Defaults()
	p, err := cfg.HistoryPath()
	if err != nil || p != filepath.Join("/srv/ws", DefaultHistoryDB) {
		t.Fatalf("HistoryPath = %q, %v", p, err)
	}
	cfg.HistoryDB = "/var/lib/h.db"
	if p, _ := cfg.HistoryPath(); p != "/var/lib/h.db" {
		t.Fatalf("absolute path not kept: %q", p)
	}
	cfg.HistoryDB = "memory"
	if p, _ := cfg.HistoryPath(); p != "" {
		t.Fatalf("memory history should have no path, got %q", p)
	}
}
