package platform

import (
	"errors"
	"time"
)

// ErrTimestampUnavailable reports that the platform cannot provide a creation
// time for a path. Callers fall back to another timestamp source.
var ErrTimestampUnavailable = errors.New("creation timestamp unavailable")

// EntryType classifies a directory entry.
type EntryType int

const (
	EntryFile EntryType = iota
	EntryDir
	EntryOther
)

func (t EntryType) String() string {
	switch t {
	case EntryFile:
		return "file"
	case EntryDir:
		return "dir"
	default:
		return "other"
	}
}

// Entry is one directory entry returned by Dir.Next.
type Entry struct {
	Name string
	Type EntryType
}

// File is an open output handle.
type File interface {
	WriteAt(p []byte, off int64) (int, error)
	SetSize(size int64) error
	Flush() error
	Close() error
}

// Dir is an open directory handle. Next returns ok=false once the directory is
// exhausted. Close must be called exactly once.
type Dir interface {
	Next() (entry Entry, ok bool, err error)
	Close() error
}

// FS is the filesystem boundary. Paths are rooted slash paths.
type FS interface {
	Exists(path string) bool
	CreateFile(path string) error
	OpenForWrite(path string) (File, error)
	Delete(path string) error
	// Rename never replaces an existing destination.
	Rename(from, to string) error
	// CreateDir succeeds when the directory already exists.
	CreateDir(path string) error
	OpenDir(path string) (Dir, error)
	CreationTime(path string) (time.Time, error)
}
