// Package framesource opens capture streams and serves raw RGBA rows on demand.
package framesource

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// BytesPerPixel is the source stride: R, G, B, then alpha.
	BytesPerPixel = 4
	// BitDepth is the per-channel depth of source and output pixels.
	BitDepth = 8
)

var (
	ErrUnavailable  = errors.New("frame source unavailable")
	ErrTimeout      = errors.New("frame source open timed out")
	ErrSizeMismatch = errors.New("frame source size mismatch")
	ErrShortRead    = errors.New("frame source short read")
	ErrRowRange     = errors.New("frame source row out of range")
	ErrClosed       = errors.New("frame source stream closed")
)

// Descriptor fixes the geometry of one frame.
type Descriptor struct {
	Width  int
	Height int
}

func (d Descriptor) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("invalid frame geometry %dx%d", d.Width, d.Height)
	}
	return nil
}

// RowBytes is the source length of one row.
func (d Descriptor) RowBytes() int { return d.Width * BytesPerPixel }

// FrameBytes is the source length of the whole frame.
func (d Descriptor) FrameBytes() int64 { return int64(d.RowBytes()) * int64(d.Height) }

func (d Descriptor) String() string { return fmt.Sprintf("%dx%d", d.Width, d.Height) }

// Source opens capture streams. Open fails with ErrUnavailable when nothing can
// be captured and ErrTimeout when the handshake exceeds timeout.
type Source interface {
	Open(ctx context.Context, d Descriptor, timeout time.Duration) (Stream, error)
}

// Stream serves rows of one captured frame. ReadRow fills buf with exactly
// RowBytes bytes for the given row; a short read is an error. Close must be
// called exactly once.
type Stream interface {
	Descriptor() Descriptor
	ReadRow(row int, buf []byte) (int, error)
	Close() error
}

func checkRow(d Descriptor, row int, buf []byte) error {
	if row < 0 || row >= d.Height {
		return fmt.Errorf("%w: row %d of %d", ErrRowRange, row, d.Height)
	}
	if len(buf) < d.RowBytes() {
		return fmt.Errorf("%w: buffer holds %d of %d bytes", ErrShortRead, len(buf), d.RowBytes())
	}
	return nil
}

// Source kinds accepted by New.
const (
	KindRaw     = "raw"
	KindPattern = "pattern"
)

// New builds the source named by kind. device is the raw frame path.
func New(kind, device string) (Source, error) {
	switch kind {
	case KindRaw:
		if device == "" {
			return nil, fmt.Errorf("%w: raw source needs a device path", ErrUnavailable)
		}
		return RawFile{Path: device}, nil
	case KindPattern:
		return Pattern{Blue: 0x80}, nil
	default:
		return nil, fmt.Errorf("unknown frame source %q", kind)
	}
}
