package pngstream

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"math/rand"
	"testing"
)

type bufferSink struct {
	bytes.Buffer
	flushes  int
	failAt   int
	writeErr error
}

func (s *bufferSink) Write(p []byte) (int, error) {
	if s.writeErr != nil && s.failAt >= 0 && s.Len()+len(p) > s.failAt {
		return 0, s.writeErr
	}
	return s.Buffer.Write(p)
}

func (s *bufferSink) Flush() error {
	s.flushes++
	return nil
}

func encodeRows(t *testing.T, opts Options, rows [][]byte) *bufferSink {
	t.Helper()
	enc, err := NewEncoder(opts)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	defer enc.Close()
	sink := &bufferSink{failAt: -1}
	if err := enc.Bind(sink); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	for i, row := range rows {
		if err := enc.WriteRow(row); err != nil {
			t.Fatalf("WriteRow %d: %v", i, err)
		}
	}
	if err := enc.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if !enc.Finished() {
		t.Fatal("expected encoder to report finished")
	}
	return sink
}

func TestRoundTripRowOrder(t *testing.T) {
	for _, level := range []int{0, 1, 6, 9} {
		const width, height = 37, 200
		rows := make([][]byte, height)
		for y := range rows {
			row := make([]byte, width*3)
			for x := 0; x < width; x++ {
				row[x*3] = byte(y)
				row[x*3+1] = byte(x * 5)
				row[x*3+2] = byte(x ^ y)
			}
			rows[y] = row
		}
		sink := encodeRows(t, Options{Width: width, Height: height, CompressionLevel: level}, rows)
		if sink.flushes != 1 {
			t.Fatalf("level %d: expected one sink flush, got %d", level, sink.flushes)
		}

		img, err := png.Decode(bytes.NewReader(sink.Bytes()))
		if err != nil {
			t.Fatalf("level %d: decode: %v", level, err)
		}
		if img.Bounds() != image.Rect(0, 0, width, height) {
			t.Fatalf("level %d: unexpected bounds %v", level, img.Bounds())
		}
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, g, b, a := img.At(x, y).RGBA()
				want := rows[y][x*3 : x*3+3]
				if byte(r>>8) != want[0] || byte(g>>8) != want[1] || byte(b>>8) != want[2] || a != 0xffff {
					t.Fatalf("level %d: pixel (%d,%d) = %d,%d,%d,%d want %v", level, x, y, r>>8, g>>8, b>>8, a>>8, want)
				}
			}
		}
	}
}

func TestRoundTripNoisyRows(t *testing.T) {
	const width, height = 120, 90
	rng := rand.New(rand.NewSource(7))
	rows := make([][]byte, height)
	for y := range rows {
		rows[y] = make([]byte, width*3)
		rng.Read(rows[y])
	}
	sink := encodeRows(t, Options{Width: width, Height: height, CompressionLevel: 9}, rows)
	img, err := png.Decode(bytes.NewReader(sink.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	rgba, ok := img.(*image.RGBA)
	if !ok {
		t.Fatalf("expected *image.RGBA, got %T", img)
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := rgba.PixOffset(x, y)
			if !bytes.Equal(rgba.Pix[off:off+3], rows[y][x*3:x*3+3]) {
				t.Fatalf("pixel (%d,%d) mismatch", x, y)
			}
		}
	}
}

func TestSinkFailureAbortsAndIsSticky(t *testing.T) {
	const width, height = 256, 256
	enc, err := NewEncoder(Options{Width: width, Height: height, CompressionLevel: 9})
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	defer enc.Close()
	diskFull := errors.New("disk full")
	sink := &bufferSink{failAt: 4096, writeErr: diskFull}
	if err := enc.Bind(sink); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	row := make([]byte, width*3)
	var writeErr error
	for y := 0; y < height; y++ {
		rng.Read(row)
		if writeErr = enc.WriteRow(row); writeErr != nil {
			break
		}
	}
	var sinkErr *SinkError
	if !errors.As(writeErr, &sinkErr) || !errors.Is(writeErr, diskFull) {
		t.Fatalf("expected SinkError wrapping disk full, got %v", writeErr)
	}
	if err := enc.WriteRow(row); !errors.Is(err, diskFull) {
		t.Fatalf("expected sticky error, got %v", err)
	}
	if err := enc.Finish(); !errors.Is(err, diskFull) {
		t.Fatalf("expected Finish to return sticky error, got %v", err)
	}
	if enc.Finished() {
		t.Fatal("encoder must not report finished after sink failure")
	}
	if sink.flushes != 0 {
		t.Fatalf("expected no flush after failure, got %d", sink.flushes)
	}
}

func TestCloseBeforeFinishLeavesTruncatedImage(t *testing.T) {
	enc, err := NewEncoder(Options{Width: 8, Height: 8, CompressionLevel: 9})
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	sink := &bufferSink{failAt: -1}
	if err := enc.Bind(sink); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	for y := 0; y < 3; y++ {
		if err := enc.WriteRow(make([]byte, 24)); err != nil {
			t.Fatalf("WriteRow: %v", err)
		}
	}
	enc.Close()
	enc.Close()

	if sink.flushes != 0 {
		t.Fatalf("sink flushed %d times without Finish", sink.flushes)
	}
	if bytes.Contains(sink.Bytes(), []byte("IEND")) {
		t.Fatal("closed-early image must not contain IEND")
	}
	if _, err := png.Decode(bytes.NewReader(sink.Bytes())); err == nil {
		t.Fatal("expected decode of truncated image to fail")
	}
	if err := enc.WriteRow(make([]byte, 24)); !errors.Is(err, ErrState) {
		t.Fatalf("expected ErrState after Close, got %v", err)
	}
}

func TestLifecycleErrors(t *testing.T) {
	if _, err := NewEncoder(Options{Width: 0, Height: 10, CompressionLevel: 9}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for zero width, got %v", err)
	}
	if _, err := NewEncoder(Options{Width: 10, Height: 10, CompressionLevel: 10}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for level 10, got %v", err)
	}

	enc, err := NewEncoder(Options{Width: 4, Height: 2, CompressionLevel: 9})
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	defer enc.Close()
	if err := enc.WriteRow(make([]byte, 12)); !errors.Is(err, ErrState) {
		t.Fatalf("expected ErrState before Bind, got %v", err)
	}
	if err := enc.Bind(&bufferSink{failAt: -1}); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := enc.Bind(&bufferSink{failAt: -1}); !errors.Is(err, ErrState) {
		t.Fatalf("expected ErrState on second Bind, got %v", err)
	}
	if err := enc.WriteRow(make([]byte, 12)); err != nil {
		t.Fatalf("WriteRow: %v", err)
	}
	if err := enc.Finish(); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
}

func TestRowSizeMismatch(t *testing.T) {
	enc, err := NewEncoder(Options{Width: 4, Height: 2, CompressionLevel: 9})
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	defer enc.Close()
	if err := enc.Bind(&bufferSink{failAt: -1}); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := enc.WriteRow(make([]byte, 16)); !errors.Is(err, ErrRowSize) {
		t.Fatalf("expected ErrRowSize for RGBA-sized row, got %v", err)
	}
}

func TestPaethPredictor(t *testing.T) {
	cases := []struct{ a, b, c, want uint8 }{
		{10, 20, 10, 20},
		{20, 10, 10, 20},
		{0, 0, 0, 0},
		{100, 50, 200, 50},
	}
	for _, tc := range cases {
		if got := paeth(tc.a, tc.b, tc.c); got != tc.want {
			t.Fatalf("paeth(%d,%d,%d) = %d want %d", tc.a, tc.b, tc.c, got, tc.want)
		}
	}
}
