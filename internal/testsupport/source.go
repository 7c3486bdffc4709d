package testsupport

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"snapvault/internal/framesource"
)

// ScriptedSource wraps a frame source and injects open or row failures. It
// counts Open and Close calls so tests can check stream ownership.
type ScriptedSource struct {
	Inner framesource.Source
	// OpenErr fails Open when set.
	OpenErr error
	// FailRow fails ReadRow for that row when >= 0.
	FailRow int
	RowErr  error
	// OnRow runs before each row is read.
	OnRow func(row int)
	// Reported overrides the descriptor the stream reports.
	Reported *framesource.Descriptor

	mu     sync.Mutex
	opens  int
	closes int
}

// NewScriptedSource wraps inner; a nil inner uses the pattern source.
func NewScriptedSource(inner framesource.Source) *ScriptedSource {
	if inner == nil {
		inner = framesource.Pattern{Blue: 0x80}
	}
	return &ScriptedSource{Inner: inner, FailRow: -1}
}

func (s *ScriptedSource) Open(ctx context.Context, d framesource.Descriptor, timeout time.Duration) (framesource.Stream, error) {
	s.mu.Lock()
	s.opens++
	s.mu.Unlock()
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	stream, err := s.Inner.Open(ctx, d, timeout)
	if err != nil {
		return nil, err
	}
	return &scriptedStream{Stream: stream, owner: s}, nil
}

// Opens returns how many times Open was called.
func (s *ScriptedSource) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

// Closes returns how many times a stream was closed.
func (s *ScriptedSource) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

type scriptedStream struct {
	framesource.Stream
	owner *ScriptedSource
}

func (s *scriptedStream) Descriptor() framesource.Descriptor {
	if s.owner.Reported != nil {
		return *s.owner.Reported
	}
	return s.Stream.Descriptor()
}

func (s *scriptedStream) ReadRow(row int, buf []byte) (int, error) {
	if s.owner.OnRow != nil {
		s.owner.OnRow(row)
	}
	if s.owner.FailRow >= 0 && row == s.owner.FailRow {
		err := s.owner.RowErr
		if err == nil {
			err = fmt.Errorf("%w: row %d", framesource.ErrShortRead, row)
		}
		return 0, err
	}
	return s.Stream.ReadRow(row, buf)
}

func (s *scriptedStream) Close() error {
	s.owner.mu.Lock()
	s.owner.closes++
	s.owner.mu.Unlock()
	return s.Stream.Close()
}

// NoiseSource yields deterministic pseudo-random RGBA rows that do not
// compress, so encoded size tracks rows written.
type NoiseSource struct {
	Seed int64
}

func (n NoiseSource) Open(ctx context.Context, d framesource.Descriptor, _ time.Duration) (framesource.Stream, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &noiseStream{desc: d, seed: n.Seed}, nil
}

type noiseStream struct {
	desc framesource.Descriptor
	seed int64
}

func (s *noiseStream) Descriptor() framesource.Descriptor { return s.desc }

func (s *noiseStream) ReadRow(row int, buf []byte) (int, error) {
	if row < 0 || row >= s.desc.Height {
		return 0, fmt.Errorf("%w: row %d", framesource.ErrRowRange, row)
	}
	rng := rand.New(rand.NewSource(s.seed + int64(row)))
	rng.Read(buf[:s.desc.RowBytes()])
	return s.desc.RowBytes(), nil
}

func (s *noiseStream) Close() error { return nil }
