package compute

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// InputFileName is the per-execution command file written into the scratch directory.
func InputFileName(execNumber int, ext string) string {
	return fmt.Sprintf("_sage_input_%d.%s", execNumber, ext)
}

// pathMap translates between the local view of the shared scratch filesystem
// and the view of the interpreter. Both prefixes are empty for local processes.
type pathMap struct {
	local  string
	remote string
}

func (m pathMap) toRemote(p string) string {
	if m.local == "" || m.remote == "" {
		return p
	}
	rel, err := filepath.Rel(m.local, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return filepath.Join(m.remote, rel)
}

// newScratchDir creates a fresh directory the interpreter can write to.
func newScratchDir(root string) (string, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return "", fmt.Errorf("scratch root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(root, "ws_exec_")
	if err != nil {
		return "", fmt.Errorf("scratch dir: %w", err)
	}
	// The interpreter may run as another user on the remote side.
	if err := os.Chmod(dir, 0o777); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("scratch dir: %w", err)
	}
	return dir, nil
}

// producedFiles lists entries of dir other than the command file and the
// attached data link.
func producedFiles(dir string, skip ...string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		skipped := false
		for _, s := range skip {
			if s != "" && name == s {
				skipped = true
				break
			}
		}
		if !skipped {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
