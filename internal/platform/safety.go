package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// IsDevRun reports whether the binary was built by `go run` or `go test`.
func IsDevRun() bool {
	exe, err := os.Executable()
	if err != nil {
		return false
	}
	if strings.HasSuffix(exe, ".test") || strings.HasSuffix(exe, ".test.exe") {
		return true
	}
	return strings.HasPrefix(strings.ToLower(exe), strings.ToLower(os.TempDir()))
}

// ResolveDataPath returns where the fs store should live.
// In sandbox mode paths outside the system temp dir are re-rooted under
// <tmp>/daybook-dev/<base>, so dev runs never touch real notes.
func ResolveDataPath(userPath string, sandbox bool) string {
	if userPath == "" {
		userPath = "."
	}
	if !sandbox {
		return userPath
	}

	clean := filepath.Clean(userPath)
	if abs, err := filepath.Abs(clean); err == nil {
		if rel, err := filepath.Rel(os.TempDir(), abs); err == nil && filepath.IsLocal(rel) {
			return clean
		}
	}

	name := filepath.Base(clean)
	if name == "." || name == ".." || name == string(os.PathSeparator) {
		name = "default"
	}
	return filepath.Join(os.TempDir(), "daybook-dev", name)
}
