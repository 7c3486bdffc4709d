package capture

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"

	"snapvault/internal/config"
	"snapvault/internal/pixel"
	"snapvault/internal/pngstream"
	"snapvault/internal/services"
)

// strategy encodes the open stream into the temp file.
type strategy interface {
	name() string
	encode(ctx context.Context, c *run) error
}

func newStrategy(kind string, level int) (strategy, error) {
	switch kind {
	case config.StrategyRows, "":
		return rowStrategy{level: level}, nil
	case config.StrategyFrame:
		return &frameStrategy{enc: &png.Encoder{
			CompressionLevel: pngLevel(level),
			BufferPool:       newEncoderPool(),
		}}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", kind)
	}
}

// rowStrategy holds one source row and one RGB row at a time.
type rowStrategy struct {
	level int
}

func (rowStrategy) name() string { return config.StrategyRows }

func (s rowStrategy) encode(_ context.Context, c *run) error {
	d := c.p.desc
	enc, err := pngstream.NewEncoder(pngstream.Options{Width: d.Width, Height: d.Height, CompressionLevel: s.level})
	if err != nil {
		return services.Wrap(services.ErrEncoderInit, "capture", "init encoder", d.String(), err)
	}
	c.acquired(enc.Close)
	src := make([]byte, d.RowBytes())
	dst := make([]byte, enc.RowBytes())
	c.advance(StateEncoderInitialized)

	w, err := c.openSink()
	if err != nil {
		return err
	}
	if err := enc.Bind(w); err != nil {
		return services.Wrap(services.ErrSinkIO, "capture", "bind sink", w.Path(), err)
	}
	c.advance(StateSinkBound)

	c.advance(StateRowsWriting)
	for row := 0; row < d.Height; row++ {
		if err := c.readRow(row, src); err != nil {
			return err
		}
		pixel.StripAlpha(dst, src)
		if err := enc.WriteRow(dst); err != nil {
			return services.Wrap(services.ErrSinkIO, "capture", "write row", fmt.Sprintf("row %d", row), err)
		}
		c.res.Rows++
	}

	if err := enc.Finish(); err != nil {
		return services.Wrap(services.ErrSinkIO, "capture", "finish image", w.Path(), err)
	}
	return nil
}

// frameStrategy reads the whole frame before encoding it with image/png. It
// trades a frame-sized buffer for the standard encoder.
type frameStrategy struct {
	mu  sync.Mutex
	enc *png.Encoder
}

func (*frameStrategy) name() string { return config.StrategyFrame }

func (s *frameStrategy) encode(_ context.Context, c *run) error {
	d := c.p.desc
	img := image.NewRGBA(image.Rect(0, 0, d.Width, d.Height))
	c.advance(StateEncoderInitialized)

	for row := 0; row < d.Height; row++ {
		line := img.Pix[row*img.Stride : row*img.Stride+d.RowBytes()]
		if err := c.readRow(row, line); err != nil {
			return err
		}
		for i := pixel.SourceBytesPerPixel - 1; i < len(line); i += pixel.SourceBytesPerPixel {
			line[i] = 0xFF
		}
		c.res.Rows++
	}

	w, err := c.openSink()
	if err != nil {
		return err
	}
	c.advance(StateSinkBound)
	c.advance(StateRowsWriting)

	s.mu.Lock()
	err = s.enc.Encode(w, img)
	s.mu.Unlock()
	if err != nil {
		return services.Wrap(services.ErrSinkIO, "capture", "encode frame", w.Path(), err)
	}
	if err := w.Flush(); err != nil {
		return services.Wrap(services.ErrSinkIO, "capture", "flush", w.Path(), err)
	}
	return nil
}

func pngLevel(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

type encoderPool struct{ sync.Pool }

func newEncoderPool() *encoderPool {
	return &encoderPool{sync.Pool{New: func() any { return &png.EncoderBuffer{} }}}
}

func (p *encoderPool) Get() *png.EncoderBuffer  { return p.Pool.Get().(*png.EncoderBuffer) }
func (p *encoderPool) Put(b *png.EncoderBuffer) { p.Pool.Put(b) }
