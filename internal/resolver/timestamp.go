package resolver

import (
	"errors"
	"fmt"
	"path"
	"time"

	"snapvault/internal/platform"
)

// Timestamp sources reported on a Result.
const (
	SourcePlatform = "platform"
	SourceFilename = "filename"
)

const stampWidth = len("20060102150405")

// ErrNoTimestamp means neither source produced a timestamp for a file.
var ErrNoTimestamp = errors.New("resolver: no timestamp for file")

// fileTimestamp prefers the platform creation time and falls back to the
// file name prefix when the platform cannot report one.
func fileTimestamp(fsys platform.FS, p string, loc *time.Location) (time.Time, string, error) {
	created, err := fsys.CreationTime(p)
	if err == nil {
		return created, SourcePlatform, nil
	}
	if !errors.Is(err, platform.ErrTimestampUnavailable) {
		return time.Time{}, "", err
	}
	if t, ok := parseNamePrefix(path.Base(p), loc); ok {
		return t, SourceFilename, nil
	}
	return time.Time{}, "", fmt.Errorf("%w: %s", ErrNoTimestamp, p)
}

// parseNamePrefix reads a YYYYMMDDHHMMSS prefix, as used by album file names
// like 2024050112304500-0123ABCD.jpg.
func parseNamePrefix(name string, loc *time.Location) (time.Time, bool) {
	if len(name) < stampWidth {
		return time.Time{}, false
	}
	prefix := name[:stampWidth]
	for i := 0; i < len(prefix); i++ {
		if prefix[i] < '0' || prefix[i] > '9' {
			return time.Time{}, false
		}
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("20060102150405", prefix, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// absDelta returns |a-b| in whole seconds without overflow.
func absDelta(a, b int64) uint64 {
	if a > b {
		return uint64(a) - uint64(b)
	}
	return uint64(b) - uint64(a)
}
