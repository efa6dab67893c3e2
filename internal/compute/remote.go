package compute

import (
	"path/filepath"

	"github.com/kballard/go-shellquote"
)

// RemoteConfig configures a RemoteProcess.
//
// Executions are staged under LocalPrefix, which must be a filesystem shared
// with the remote host where it is mounted at RemotePrefix. Every user of the
// remote account can read the scratch directories of running executions
// until their files are harvested.
type RemoteConfig struct {
	LocalConfig
	// UserHost is the ssh destination, e.g. "sage@compute1".
	UserHost string
	// SSHCommand defaults to ["ssh"]; the key-based channel is assumed trusted.
	SSHCommand   []string
	LocalPrefix  string
	RemotePrefix string
}

// NewRemoteProcess constructs a LocalProcess whose interpreter runs on
// cfg.UserHost. Scratch directories default to a subdirectory of LocalPrefix.
func NewRemoteProcess(cfg RemoteConfig) *LocalProcess {
	local := cfg.LocalConfig
	if local.ScratchRoot == "" && cfg.LocalPrefix != "" {
		local.ScratchRoot = filepath.Join(cfg.LocalPrefix, "worksheetd")
	}
	p := NewLocalProcess(local)
	p.variant = VariantRemote
	p.paths = pathMap{local: cfg.LocalPrefix, remote: cfg.RemotePrefix}
	ssh := cfg.SSHCommand
	if len(ssh) == 0 {
		ssh = []string{"ssh"}
	}
	userHost := cfg.UserHost
	p.launch = func(cmdline string) []string {
		argv := append([]string(nil), ssh...)
		// -tt allocates a remote terminal so ETX interrupts the remote interpreter.
		argv = append(argv, "-tt", "-o", "BatchMode=yes", userHost, cmdline)
		return argv
	}
	return p
}

// RemotePath maps a local path under the shared prefix to the remote view.
func (p *LocalProcess) RemotePath(local string) string {
	return p.paths.toRemote(local)
}

// RemoteArgv is the argv used to spawn the interpreter, for diagnostics.
func (p *LocalProcess) RemoteArgv() string {
	return shellquote.Join(p.launch(p.CommandLine())...)
}
