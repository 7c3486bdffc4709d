package platform

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// OSFS serves FS paths from a host directory.
type OSFS struct {
	root string
}

// NewOSFS roots an FS at dir, which must already exist.
func NewOSFS(dir string) (*OSFS, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("platform: root directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("platform: resolve root %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("platform: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("platform: root %q is not a directory", abs)
	}
	return &OSFS{root: abs}, nil
}

// Root returns the host directory backing "/".
func (o *OSFS) Root() string {
	return o.root
}

// HostPath maps a rooted slash path onto the host filesystem. ".." segments
// cannot escape the root.
func (o *OSFS) HostPath(p string) string {
	cleaned := path.Clean("/" + p)
	return filepath.Join(o.root, filepath.FromSlash(cleaned))
}

func (o *OSFS) Exists(p string) bool {
	_, err := os.Lstat(o.HostPath(p))
	return err == nil
}

func (o *OSFS) CreateFile(p string) error {
	f, err := os.OpenFile(o.HostPath(p), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func (o *OSFS) OpenForWrite(p string) (File, error) {
	f, err := os.OpenFile(o.HostPath(p), os.O_WRONLY, 0)
	if err != nil {
		return nil, err
	}
	return &osFile{f: f}, nil
}

func (o *OSFS) Delete(p string) error {
	return os.Remove(o.HostPath(p))
}

func (o *OSFS) Rename(from, to string) error {
	return renameNoReplace(o.HostPath(from), o.HostPath(to))
}

func (o *OSFS) CreateDir(p string) error {
	host := o.HostPath(p)
	err := os.Mkdir(host, 0o755)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		if info, statErr := os.Stat(host); statErr == nil && info.IsDir() {
			return nil
		}
	}
	return err
}

func (o *OSFS) OpenDir(p string) (Dir, error) {
	host := o.HostPath(p)
	f, err := os.Open(host)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if !info.IsDir() {
		_ = f.Close()
		return nil, &fs.PathError{Op: "opendir", Path: host, Err: errors.New("not a directory")}
	}
	return &osDir{f: f, read: f.ReadDir}, nil
}

func (o *OSFS) CreationTime(p string) (time.Time, error) {
	return creationTime(o.HostPath(p))
}

type osFile struct {
	f *os.File
}

func (f *osFile) WriteAt(p []byte, off int64) (int, error) { return f.f.WriteAt(p, off) }

func (f *osFile) SetSize(size int64) error { return f.f.Truncate(size) }

func (f *osFile) Flush() error { return f.f.Sync() }

func (f *osFile) Close() error { return f.f.Close() }

const dirBatch = 64

type osDir struct {
	f       *os.File
	read    func(n int) ([]fs.DirEntry, error)
	pending []fs.DirEntry
	// err is reported once the entries read alongside it are drained.
	err  error
	done bool
}

func (d *osDir) Next() (Entry, bool, error) {
	if len(d.pending) == 0 {
		if d.err != nil {
			err := d.err
			d.err = nil
			return Entry{}, false, err
		}
		if d.done {
			return Entry{}, false, nil
		}
		batch, err := d.read(dirBatch)
		if err != nil {
			d.done = true
			if !errors.Is(err, io.EOF) {
				if len(batch) == 0 {
					return Entry{}, false, err
				}
				d.err = err
			}
		}
		if len(batch) == 0 {
			d.done = true
			return Entry{}, false, nil
		}
		d.pending = batch
	}
	entry := d.pending[0]
	d.pending = d.pending[1:]
	return Entry{Name: entry.Name(), Type: entryType(entry.Type())}, true, nil
}

func (d *osDir) Close() error {
	return d.f.Close()
}

func entryType(mode fs.FileMode) EntryType {
	switch {
	case mode.IsDir():
		return EntryDir
	case mode.IsRegular():
		return EntryFile
	default:
		return EntryOther
	}
}
