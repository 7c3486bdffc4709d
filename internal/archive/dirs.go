package archive

import (
	"errors"
	"fmt"
	"strings"

	"snapvault/internal/platform"
)

// ErrDegeneratePath rejects empty and root-only directory paths.
var ErrDegeneratePath = errors.New("archive: degenerate directory path")

// EnsureDir creates every missing ancestor of p, shortest prefix first. A
// failure part way leaves the already-created prefixes in place.
func EnsureDir(fsys platform.FS, p string) error {
	trimmed := strings.Trim(strings.TrimSpace(p), "/")
	if trimmed == "" {
		return fmt.Errorf("%w: %q", ErrDegeneratePath, p)
	}

	prefix := ""
	for _, segment := range strings.Split(trimmed, "/") {
		if segment == "" || segment == "." {
			continue
		}
		if segment == ".." {
			return fmt.Errorf("%w: %q contains ..", ErrDegeneratePath, p)
		}
		prefix += "/" + segment
		if DirExists(fsys, prefix) {
			continue
		}
		if err := fsys.CreateDir(prefix); err != nil {
			return fmt.Errorf("create directory %s: %w", prefix, err)
		}
		if !DirExists(fsys, prefix) {
			return fmt.Errorf("create directory %s: not present after create", prefix)
		}
	}
	return nil
}

// DirExists reports whether p opens as a directory.
func DirExists(fsys platform.FS, p string) bool {
	dir, err := fsys.OpenDir(p)
	if err != nil {
		return false
	}
	_ = dir.Close()
	return true
}
