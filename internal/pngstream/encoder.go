package pngstream

import (
	"bufio"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

var (
	ErrInvalidConfig = errors.New("pngstream: invalid configuration")
	ErrState         = errors.New("pngstream: operation not valid in current state")
	ErrRowSize       = errors.New("pngstream: row length mismatch")
	ErrIncomplete    = errors.New("pngstream: fewer rows written than image height")
)

// Sink receives encoded bytes. A Write error aborts the encode. Flush marks the
// end of the image and runs once, from Finish.
type Sink interface {
	io.Writer
	Flush() error
}

// SinkError reports a failure returned by the bound Sink.
type SinkError struct {
	Op  string
	Err error
}

func (e *SinkError) Error() string { return "pngstream: sink " + e.Op + ": " + e.Err.Error() }

func (e *SinkError) Unwrap() error { return e.Err }

// Options configures an Encoder.
type Options struct {
	Width  int
	Height int
	// CompressionLevel is a zlib level, 0 (store) through 9 (smallest).
	CompressionLevel int
}

const (
	bytesPerPixel = 3
	idatBufSize   = 1 << 15
	maxDimension  = 1 << 24
)

var signature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

type phase int

const (
	phaseAllocated phase = iota
	phaseBound
	phaseFinished
	phaseClosed
)

// Encoder is a row-streaming PNG writer. It is not safe for concurrent use.
type Encoder struct {
	opts     Options
	rowBytes int
	phase    phase
	rows     int
	err      error
	finished bool

	sink Sink
	// cr[0] holds the unfiltered row; cr[1..4] hold sub, up, average, paeth.
	cr [nFilter][]byte
	pr []byte

	bw *bufio.Writer
	zw *zlib.Writer
}

// NewEncoder validates options and allocates the row buffers.
func NewEncoder(opts Options) (*Encoder, error) {
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width > maxDimension || opts.Height > maxDimension {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidConfig, opts.Width, opts.Height)
	}
	if opts.CompressionLevel < zlib.NoCompression || opts.CompressionLevel > zlib.BestCompression {
		return nil, fmt.Errorf("%w: compression level %d", ErrInvalidConfig, opts.CompressionLevel)
	}
	rowBytes := opts.Width * bytesPerPixel
	e := &Encoder{opts: opts, rowBytes: rowBytes}
	for i := range e.cr {
		e.cr[i] = make([]byte, 1+rowBytes)
		e.cr[i][0] = byte(i)
	}
	e.pr = make([]byte, 1+rowBytes)
	return e, nil
}

// RowBytes is the RGB length WriteRow expects.
func (e *Encoder) RowBytes() int { return e.rowBytes }

// Rows reports how many rows have been accepted.
func (e *Encoder) Rows() int { return e.rows }

// Bind attaches the sink and emits the PNG signature and IHDR chunk.
func (e *Encoder) Bind(sink Sink) error {
	if e.phase != phaseAllocated {
		return ErrState
	}
	if sink == nil {
		return fmt.Errorf("%w: nil sink", ErrInvalidConfig)
	}
	e.sink = sink
	e.phase = phaseBound

	if _, err := sink.Write(signature); err != nil {
		return e.fail(&SinkError{Op: "write signature", Err: err})
	}
	var ihdr [13]byte
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(e.opts.Width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(e.opts.Height))
	ihdr[8] = 8  // bit depth
	ihdr[9] = 2  // color type: truecolor
	ihdr[10] = 0 // compression method
	ihdr[11] = 0 // filter method
	ihdr[12] = 0 // no interlace
	if err := writeChunk(sink, "IHDR", ihdr[:]); err != nil {
		return e.fail(err)
	}

	e.bw = bufio.NewWriterSize(&idatWriter{sink: sink}, idatBufSize)
	zw, err := zlib.NewWriterLevel(e.bw, e.opts.CompressionLevel)
	if err != nil {
		return e.fail(fmt.Errorf("%w: %v", ErrInvalidConfig, err))
	}
	e.zw = zw
	return nil
}

// WriteRow filters and compresses one RGB row. Rows must arrive top first.
func (e *Encoder) WriteRow(row []byte) error {
	if e.err != nil {
		return e.err
	}
	if e.phase != phaseBound {
		return ErrState
	}
	if len(row) != e.rowBytes {
		return e.fail(fmt.Errorf("%w: got %d bytes, want %d", ErrRowSize, len(row), e.rowBytes))
	}
	if e.rows >= e.opts.Height {
		return e.fail(fmt.Errorf("%w: row %d beyond height %d", ErrState, e.rows, e.opts.Height))
	}

	copy(e.cr[0][1:], row)
	f := ftNone
	if e.opts.CompressionLevel != zlib.NoCompression {
		f = filter(&e.cr, e.pr, bytesPerPixel)
	}
	if _, err := e.zw.Write(e.cr[f]); err != nil {
		return e.fail(err)
	}
	e.pr, e.cr[0] = e.cr[0], e.pr
	e.cr[0][0] = ftNone
	e.rows++
	return nil
}

// Finish closes the compressed stream, writes IEND, and flushes the sink.
func (e *Encoder) Finish() error {
	if e.err != nil {
		return e.err
	}
	if e.phase != phaseBound {
		return ErrState
	}
	if e.rows != e.opts.Height {
		return e.fail(fmt.Errorf("%w: %d of %d", ErrIncomplete, e.rows, e.opts.Height))
	}
	if err := e.zw.Close(); err != nil {
		return e.fail(err)
	}
	if err := e.bw.Flush(); err != nil {
		return e.fail(err)
	}
	if err := writeChunk(e.sink, "IEND", nil); err != nil {
		return e.fail(err)
	}
	if err := e.sink.Flush(); err != nil {
		return e.fail(&SinkError{Op: "flush", Err: err})
	}
	e.phase = phaseFinished
	e.finished = true
	e.release()
	return nil
}

// Close releases buffers. It never touches the sink, so a closed-early image
// stays truncated. Safe to call repeatedly.
func (e *Encoder) Close() {
	if e.phase == phaseClosed {
		return
	}
	e.phase = phaseClosed
	e.release()
}

// Finished reports whether Finish completed successfully.
func (e *Encoder) Finished() bool { return e.finished }

func (e *Encoder) fail(err error) error {
	if e.err == nil {
		e.err = err
	}
	return e.err
}

func (e *Encoder) release() {
	for i := range e.cr {
		e.cr[i] = nil
	}
	e.pr = nil
	e.zw = nil
	e.bw = nil
	e.sink = nil
}

// idatWriter turns each buffered flush into one IDAT chunk.
type idatWriter struct {
	sink Sink
}

func (w *idatWriter) Write(p []byte) (int, error) {
	if err := writeChunk(w.sink, "IDAT", p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func writeChunk(w io.Writer, name string, data []byte) error {
	var header [8]byte
	binary.BigEndian.PutUint32(header[:4], uint32(len(data)))
	copy(header[4:], name)

	crc := crc32.NewIEEE()
	crc.Write(header[4:8])
	crc.Write(data)
	var footer [4]byte
	binary.BigEndian.PutUint32(footer[:], crc.Sum32())

	if _, err := w.Write(header[:]); err != nil {
		return &SinkError{Op: "write " + name, Err: err}
	}
	if len(data) > 0 {
		if _, err := w.Write(data); err != nil {
			return &SinkError{Op: "write " + name, Err: err}
		}
	}
	if _, err := w.Write(footer[:]); err != nil {
		return &SinkError{Op: "write " + name, Err: err}
	}
	return nil
}
