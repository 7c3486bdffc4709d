package framesource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"
)

// RawFile reads frames from a file or device node holding width*height*4 bytes
// of RGBA data. Regular files are read positionally; character devices and
// pipes are read sequentially and must be consumed top row first.
type RawFile struct {
	Path string
}

type openResult struct {
	file *os.File
	err  error
}

func (r RawFile) Open(ctx context.Context, d Descriptor, timeout time.Duration) (Stream, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// Opening a FIFO blocks until a writer appears, so the handshake runs
	// in the background and is abandoned on timeout.
	done := make(chan openResult, 1)
	go func() {
		f, err := os.Open(r.Path)
		done <- openResult{file: f, err: err}
	}()

	var res openResult
	select {
	case res = <-done:
	case <-ctx.Done():
		go func() {
			if late := <-done; late.file != nil {
				_ = late.file.Close()
			}
		}()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, r.Path, timeout)
		}
		return nil, ctx.Err()
	}
	if res.err != nil {
		if errors.Is(res.err, fs.ErrNotExist) || errors.Is(res.err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, res.err)
		}
		return nil, res.err
	}

	info, err := res.file.Stat()
	if err != nil {
		_ = res.file.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", ErrUnavailable, r.Path, err)
	}
	if info.IsDir() {
		_ = res.file.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnavailable, r.Path)
	}
	positional := info.Mode().IsRegular()
	if positional && info.Size() != d.FrameBytes() {
		_ = res.file.Close()
		return nil, fmt.Errorf("%w: %s holds %d bytes, %s frame needs %d", ErrSizeMismatch, r.Path, info.Size(), d, d.FrameBytes())
	}
	return &rawStream{file: res.file, desc: d, positional: positional}, nil
}

type rawStream struct {
	file       *os.File
	desc       Descriptor
	positional bool
	next       int
	closed     bool
}

func (s *rawStream) Descriptor() Descriptor { return s.desc }

func (s *rawStream) ReadRow(row int, buf []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if err := checkRow(s.desc, row, buf); err != nil {
		return 0, err
	}
	rowBytes := s.desc.RowBytes()
	buf = buf[:rowBytes]

	var (
		n   int
		err error
	)
	if s.positional {
		n, err = s.file.ReadAt(buf, int64(row)*int64(rowBytes))
	} else {
		if row != s.next {
			return 0, fmt.Errorf("%w: sequential stream at row %d, asked for %d", ErrRowRange, s.next, row)
		}
		n, err = io.ReadFull(s.file, buf)
	}
	if n == rowBytes {
		s.next = row + 1
		return n, nil
	}
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return n, fmt.Errorf("%w: row %d got %d of %d bytes", ErrShortRead, row, n, rowBytes)
	}
	return n, fmt.Errorf("read row %d: %w", row, err)
}

func (s *rawStream) Close() error {
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	return s.file.Close()
}
