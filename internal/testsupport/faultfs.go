package testsupport

import (
	"errors"
	"fmt"
	"path"
	"sync"
	"time"

	"snapvault/internal/platform"
)

// ErrInjected is returned by every fault FaultFS injects unless a specific
// error was supplied.
var ErrInjected = errors.New("injected fault")

// FaultFS wraps an FS and fails chosen operations. It also tracks directory
// handles so tests can assert every opened handle was closed.
type FaultFS struct {
	platform.FS

	mu            sync.Mutex
	openDirErrs   map[string]error
	createDirErrs map[string]error
	renameErr     error
	createErr     error
	timestamps    map[string]time.Time
	noTimestamps  bool
	writeLimit    int64
	written       int64
	openDirs      int
	closedDirs    int
	renames       [][2]string
	deletes       []string
}

// NewFaultFS wraps base without any faults armed.
func NewFaultFS(base platform.FS) *FaultFS {
	return &FaultFS{
		FS:            base,
		openDirErrs:   make(map[string]error),
		createDirErrs: make(map[string]error),
		timestamps:    make(map[string]time.Time),
		writeLimit:    -1,
	}
}

func clean(p string) string { return path.Clean("/" + p) }

// FailOpenDir makes OpenDir(p) fail.
func (f *FaultFS) FailOpenDir(p string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openDirErrs[clean(p)] = orInjected(err)
}

// FailCreateDir makes CreateDir(p) fail.
func (f *FaultFS) FailCreateDir(p string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createDirErrs[clean(p)] = orInjected(err)
}

// FailRename makes every Rename fail.
func (f *FaultFS) FailRename(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renameErr = orInjected(err)
}

// FailCreateFile makes every CreateFile fail.
func (f *FaultFS) FailCreateFile(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = orInjected(err)
}

// FailWritesAfter lets n bytes through across all files, then fails.
func (f *FaultFS) FailWritesAfter(n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeLimit = n
}

// SetCreationTime overrides the creation time reported for p.
func (f *FaultFS) SetCreationTime(p string, t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timestamps[clean(p)] = t
}

// DisableTimestamps makes CreationTime report ErrTimestampUnavailable for
// every path without an override.
func (f *FaultFS) DisableTimestamps() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noTimestamps = true
}

// OpenDirHandles returns how many directory handles are still open.
func (f *FaultFS) OpenDirHandles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.openDirs - f.closedDirs
}

// DirOpens returns how many directory handles were opened.
func (f *FaultFS) DirOpens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.openDirs
}

// Renames lists successful renames in order.
func (f *FaultFS) Renames() [][2]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][2]string(nil), f.renames...)
}

// Deletes lists successful deletions in order.
func (f *FaultFS) Deletes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deletes...)
}

// Written returns the bytes accepted by WriteAt across all files.
func (f *FaultFS) Written() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written
}

func (f *FaultFS) CreateFile(p string) error {
	f.mu.Lock()
	err := f.createErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.FS.CreateFile(p)
}

func (f *FaultFS) OpenForWrite(p string) (platform.File, error) {
	file, err := f.FS.OpenForWrite(p)
	if err != nil {
		return nil, err
	}
	return &faultFile{File: file, owner: f}, nil
}

func (f *FaultFS) Delete(p string) error {
	if err := f.FS.Delete(p); err != nil {
		return err
	}
	f.mu.Lock()
	f.deletes = append(f.deletes, clean(p))
	f.mu.Unlock()
	return nil
}

func (f *FaultFS) Rename(from, to string) error {
	f.mu.Lock()
	err := f.renameErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if err := f.FS.Rename(from, to); err != nil {
		return err
	}
	f.mu.Lock()
	f.renames = append(f.renames, [2]string{clean(from), clean(to)})
	if t, ok := f.timestamps[clean(from)]; ok {
		delete(f.timestamps, clean(from))
		f.timestamps[clean(to)] = t
	}
	f.mu.Unlock()
	return nil
}

func (f *FaultFS) CreateDir(p string) error {
	f.mu.Lock()
	err := f.createDirErrs[clean(p)]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.FS.CreateDir(p)
}

func (f *FaultFS) OpenDir(p string) (platform.Dir, error) {
	f.mu.Lock()
	err := f.openDirErrs[clean(p)]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	dir, err := f.FS.OpenDir(p)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.openDirs++
	f.mu.Unlock()
	return &faultDir{Dir: dir, owner: f}, nil
}

func (f *FaultFS) CreationTime(p string) (time.Time, error) {
	f.mu.Lock()
	t, ok := f.timestamps[clean(p)]
	disabled := f.noTimestamps
	f.mu.Unlock()
	if ok {
		return t, nil
	}
	if disabled {
		return time.Time{}, fmt.Errorf("%s: %w", p, platform.ErrTimestampUnavailable)
	}
	return f.FS.CreationTime(p)
}

type faultFile struct {
	platform.File
	owner *FaultFS
}

func (ff *faultFile) WriteAt(p []byte, off int64) (int, error) {
	f := ff.owner
	f.mu.Lock()
	allowed := int64(len(p))
	if f.writeLimit >= 0 {
		if remaining := f.writeLimit - f.written; remaining < allowed {
			allowed = max(remaining, 0)
		}
	}
	f.mu.Unlock()

	n, err := ff.File.WriteAt(p[:allowed], off)
	f.mu.Lock()
	f.written += int64(n)
	f.mu.Unlock()
	if err != nil {
		return n, err
	}
	if allowed < int64(len(p)) {
		return n, fmt.Errorf("write at %d: %w", off, ErrInjected)
	}
	return n, nil
}

type faultDir struct {
	platform.Dir
	owner  *FaultFS
	closed bool
}

func (d *faultDir) Close() error {
	if !d.closed {
		d.closed = true
		d.owner.mu.Lock()
		d.owner.closedDirs++
		d.owner.mu.Unlock()
	}
	return d.Dir.Close()
}

func orInjected(err error) error {
	if err == nil {
		return ErrInjected
	}
	return err
}
