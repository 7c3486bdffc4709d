package framesource

import (
	"context"
	"time"
)

// Pattern is a synthetic source. Each pixel carries its row index in red, its
// column in green, a fixed blue, and opaque alpha.
type Pattern struct {
	Blue byte
}

func (p Pattern) Open(ctx context.Context, d Descriptor, _ time.Duration) (Stream, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &patternStream{desc: d, blue: p.Blue}, nil
}

type patternStream struct {
	desc   Descriptor
	blue   byte
	closed bool
}

func (s *patternStream) Descriptor() Descriptor { return s.desc }

func (s *patternStream) ReadRow(row int, buf []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if err := checkRow(s.desc, row, buf); err != nil {
		return 0, err
	}
	for x := 0; x < s.desc.Width; x++ {
		o := x * BytesPerPixel
		buf[o] = byte(row)
		buf[o+1] = byte(x)
		buf[o+2] = s.blue
		buf[o+3] = 0xFF
	}
	return s.desc.RowBytes(), nil
}

func (s *patternStream) Close() error {
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	return nil
}
