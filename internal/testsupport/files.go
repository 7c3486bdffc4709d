package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteFile creates path under the album root with size bytes of filler and
// sets its modification time when mtime is non-zero.
func WriteFile(t testing.TB, root, slashPath string, size int, mtime time.Time) string {
	t.Helper()

	host := filepath.Join(root, filepath.FromSlash(slashPath))
	if err := os.MkdirAll(filepath.Dir(host), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", host, err)
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = 0x42
	}
	if err := os.WriteFile(host, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", host, err)
	}
	if !mtime.IsZero() {
		if err := os.Chtimes(host, mtime, mtime); err != nil {
			t.Fatalf("chtimes %s: %v", host, err)
		}
	}
	return host
}

// Exists reports whether slashPath exists under root.
func Exists(root, slashPath string) bool {
	_, err := os.Lstat(filepath.Join(root, filepath.FromSlash(slashPath)))
	return err == nil
}
