package platform

import (
	"fmt"
	"io"
)

// Writer is an append-style output handle over an FS file. Each Write grows the
// file to offset+len before writing at the tracked offset. The first failure is
// sticky: later calls return it without touching the file.
type Writer struct {
	path   string
	file   File
	offset int64
	err    error
	closed bool
}

// OpenWriter replaces any file at p with a fresh empty file and opens it.
func OpenWriter(fsys FS, p string) (*Writer, error) {
	if fsys.Exists(p) {
		if err := fsys.Delete(p); err != nil {
			return nil, fmt.Errorf("remove stale %s: %w", p, err)
		}
	}
	if err := fsys.CreateFile(p); err != nil {
		return nil, fmt.Errorf("create %s: %w", p, err)
	}
	f, err := fsys.OpenForWrite(p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	return &Writer{path: p, file: f}, nil
}

// Path returns the FS path the writer targets.
func (w *Writer) Path() string { return w.path }

// Offset returns the number of bytes written so far.
func (w *Writer) Offset() int64 { return w.offset }

func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	if w.closed {
		return 0, fmt.Errorf("write %s: %w", w.path, io.ErrClosedPipe)
	}
	if len(p) == 0 {
		return 0, nil
	}
	end := w.offset + int64(len(p))
	if err := w.file.SetSize(end); err != nil {
		w.err = fmt.Errorf("grow %s to %d: %w", w.path, end, err)
		return 0, w.err
	}
	n, err := w.file.WriteAt(p, w.offset)
	w.offset += int64(n)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		w.err = fmt.Errorf("write %s at %d: %w", w.path, w.offset, err)
		return n, w.err
	}
	return n, nil
}

// Flush commits written data to stable storage.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return nil
	}
	if err := w.file.Flush(); err != nil {
		w.err = fmt.Errorf("flush %s: %w", w.path, err)
		return w.err
	}
	return nil
}

// Close releases the handle. It is safe to call more than once.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close %s: %w", w.path, err)
	}
	return nil
}
