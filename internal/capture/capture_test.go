package capture_test

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"snapvault/internal/capture"
	"snapvault/internal/config"
	"snapvault/internal/framesource"
	"snapvault/internal/platform"
	"snapvault/internal/resolver"
	"snapvault/internal/services"
	"snapvault/internal/testsupport"
)

var fixed = time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)

type harness struct {
	cfg    *config.Config
	fs     *testsupport.FaultFS
	source *testsupport.ScriptedSource
	root   string
}

func newHarness(t *testing.T, inner framesource.Source, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	base, err := platform.NewOSFS(cfg.Paths.AlbumRoot)
	if err != nil {
		t.Fatalf("NewOSFS: %v", err)
	}
	h := &harness{
		cfg:    cfg,
		fs:     testsupport.NewFaultFS(base),
		source: testsupport.NewScriptedSource(inner),
		root:   cfg.Paths.AlbumRoot,
	}
	h.fs.SetCreationTime("/PNGs/temp.png", fixed)
	return h
}

func (h *harness) pipeline(t *testing.T, evictor capture.Evictor) *capture.Pipeline {
	t.Helper()
	p, err := capture.New(h.cfg, capture.Deps{
		FS:      h.fs,
		Source:  h.source,
		Evictor: evictor,
		Now:     func() time.Time { return fixed },
	})
	if err != nil {
		t.Fatalf("capture.New: %v", err)
	}
	return p
}

func (h *harness) host(slashPath string) string {
	return filepath.Join(h.root, filepath.FromSlash(slashPath))
}

type recordingEvictor struct {
	calls int
	ref   time.Time
	ext   string
	err   error
}

func (r *recordingEvictor) EvictNearest(_ context.Context, reference time.Time, ext string) (resolver.Result, error) {
	r.calls++
	r.ref = reference
	r.ext = ext
	if r.err != nil {
		return resolver.Result{}, r.err
	}
	return resolver.Result{Found: true, Path: "/x.jpg", Deleted: true}, nil
}

func TestCapturePublishesDecodablePNG(t *testing.T) {
	for _, strategy := range []string{config.StrategyRows, config.StrategyFrame} {
		t.Run(strategy, func(t *testing.T) {
			h := newHarness(t, nil, testsupport.WithStrategy(strategy))
			res := h.pipeline(t, nil).Capture(context.Background(), capture.Request{})

			if !res.Published() {
				t.Fatalf("expected published, got %s: %v", res.State, res.Err)
			}
			if res.Strategy != strategy {
				t.Fatalf("strategy = %q", res.Strategy)
			}
			if res.ID == "" {
				t.Fatal("expected generated capture id")
			}
			want := "/PNGs/2024/05/01/2024-05-01_12-30-45.png"
			if res.Final != want {
				t.Fatalf("final = %q, want %q", res.Final, want)
			}
			if res.Rows != 24 {
				t.Fatalf("rows = %d", res.Rows)
			}
			if testsupport.Exists(h.root, "/PNGs/temp.png") {
				t.Fatal("temp file should be gone after publish")
			}

			data, err := os.ReadFile(h.host(res.Final))
			if err != nil {
				t.Fatalf("read final: %v", err)
			}
			if int64(len(data)) != res.Bytes {
				t.Fatalf("bytes = %d, file has %d", res.Bytes, len(data))
			}
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
				t.Fatalf("bounds = %v", b)
			}
			r, g, b, a := img.At(5, 7).RGBA()
			if r>>8 != 7 || g>>8 != 5 || b>>8 != 0x80 || a>>8 != 0xFF {
				t.Fatalf("pixel (5,7) = %d,%d,%d,%d", r>>8, g>>8, b>>8, a>>8)
			}
			if h.source.Closes() != 1 {
				t.Fatalf("stream closed %d times", h.source.Closes())
			}
		})
	}
}

func TestCaptureUsesGivenID(t *testing.T) {
	h := newHarness(t, nil)
	res := h.pipeline(t, nil).Capture(context.Background(), capture.Request{ID: "cap-1"})
	if res.ID != "cap-1" {
		t.Fatalf("id = %q", res.ID)
	}
}

func TestCaptureSinkFailureLeavesNoArchiveEntry(t *testing.T) {
	h := newHarness(t, testsupport.NoiseSource{Seed: 7}, testsupport.WithDimensions(1280, 720))
	h.fs.FailWritesAfter(300 * 3840)

	res := h.pipeline(t, nil).Capture(context.Background(), capture.Request{})

	if res.State != capture.StateAborted {
		t.Fatalf("expected abort, got %s", res.State)
	}
	if res.Failure != services.FailureSinkIO {
		t.Fatalf("failure = %q (%v)", res.Failure, res.Err)
	}
	if res.FailedIn != capture.StateRowsWriting {
		t.Fatalf("failed in %s", res.FailedIn)
	}
	if res.Rows == 0 || res.Rows >= 720 {
		t.Fatalf("rows = %d, expected a partial write", res.Rows)
	}
	if testsupport.Exists(h.root, "/PNGs/2024") {
		t.Fatal("no dated directory should exist after an aborted capture")
	}
	if len(h.fs.Renames()) != 0 {
		t.Fatalf("unexpected renames %v", h.fs.Renames())
	}
	if h.source.Closes() != 1 {
		t.Fatalf("stream closed %d times", h.source.Closes())
	}
}

func TestCaptureSourceOpenFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.source.OpenErr = framesource.ErrUnavailable

	res := h.pipeline(t, nil).Capture(context.Background(), capture.Request{})

	if res.Failure != services.FailureSourceUnavailable {
		t.Fatalf("failure = %q", res.Failure)
	}
	if res.FailedIn != capture.StateIdle {
		t.Fatalf("failed in %s", res.FailedIn)
	}
	if !errors.Is(res.Err, framesource.ErrUnavailable) {
		t.Fatalf("expected cause in chain: %v", res.Err)
	}
	if h.source.Closes() != 0 {
		t.Fatal("an unopened stream must not be closed")
	}
	if testsupport.Exists(h.root, "/PNGs/temp.png") {
		t.Fatal("no temp file should be created before the stream opens")
	}
}

func TestCaptureRowFailureReleasesStreamOnce(t *testing.T) {
	for _, strategy := range []string{config.StrategyRows, config.StrategyFrame} {
		t.Run(strategy, func(t *testing.T) {
			h := newHarness(t, nil, testsupport.WithStrategy(strategy))
			h.source.FailRow = 10

			res := h.pipeline(t, nil).Capture(context.Background(), capture.Request{})

			if res.Failure != services.FailureSourceUnavailable {
				t.Fatalf("failure = %q (%v)", res.Failure, res.Err)
			}
			if !errors.Is(res.Err, framesource.ErrShortRead) {
				t.Fatalf("expected short read in chain: %v", res.Err)
			}
			if res.Rows != 10 {
				t.Fatalf("rows = %d", res.Rows)
			}
			if h.source.Closes() != 1 {
				t.Fatalf("stream closed %d times", h.source.Closes())
			}
			if len(h.fs.Renames()) != 0 {
				t.Fatal("aborted capture must not publish")
			}
		})
	}
}

func TestCaptureIgnoresCancellationOnceStarted(t *testing.T) {
	for _, strategy := range []string{config.StrategyRows, config.StrategyFrame} {
		t.Run(strategy, func(t *testing.T) {
			h := newHarness(t, nil, testsupport.WithStrategy(strategy))
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			h.source.OnRow = func(row int) {
				if row == 2 {
					cancel()
				}
			}

			res := h.pipeline(t, nil).Capture(ctx, capture.Request{})

			if !res.Published() {
				t.Fatalf("expected published after mid-capture cancel, got %s/%s: %v", res.State, res.Failure, res.Err)
			}
			if res.Rows != h.cfg.Capture.Height {
				t.Fatalf("rows = %d, want %d", res.Rows, h.cfg.Capture.Height)
			}
			if ctx.Err() == nil {
				t.Fatal("context should have been cancelled during the capture")
			}
		})
	}
}

func TestCaptureRejectsGeometryMismatch(t *testing.T) {
	h := newHarness(t, nil)
	h.source.Reported = &framesource.Descriptor{Width: 64, Height: 24}

	res := h.pipeline(t, nil).Capture(context.Background(), capture.Request{})

	if res.Failure != services.FailureSourceUnavailable {
		t.Fatalf("failure = %q", res.Failure)
	}
	if !errors.Is(res.Err, framesource.ErrSizeMismatch) {
		t.Fatalf("expected size mismatch: %v", res.Err)
	}
	if res.FailedIn != capture.StateStreamOpened {
		t.Fatalf("failed in %s", res.FailedIn)
	}
	if h.source.Closes() != 1 {
		t.Fatalf("stream closed %d times", h.source.Closes())
	}
}

func TestCapturePublicationFailureKeepsTemp(t *testing.T) {
	h := newHarness(t, nil)
	h.fs.FailRename(nil)
	evictor := &recordingEvictor{}

	res := h.pipeline(t, evictor).Capture(context.Background(), capture.Request{EvictDuplicates: true})

	if res.Failure != services.FailurePublication {
		t.Fatalf("failure = %q (%v)", res.Failure, res.Err)
	}
	if res.FailedIn != capture.StateFinalizing {
		t.Fatalf("failed in %s", res.FailedIn)
	}
	if !testsupport.Exists(h.root, "/PNGs/temp.png") {
		t.Fatal("temp file should remain after a failed rename")
	}
	if evictor.calls != 0 {
		t.Fatal("eviction must not run after a failed publication")
	}
}

func TestCaptureDirectoryFailureIsPublicationFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.fs.FailCreateDir("/PNGs/2024", nil)

	res := h.pipeline(t, nil).Capture(context.Background(), capture.Request{})

	if res.Failure != services.FailurePublication {
		t.Fatalf("failure = %q (%v)", res.Failure, res.Err)
	}
	if !errors.Is(res.Err, services.ErrDirectoryCreate) {
		t.Fatalf("expected directory failure in chain: %v", res.Err)
	}
}

func TestCaptureFallsBackToStreamOpenTime(t *testing.T) {
	h := newHarness(t, nil)
	h.fs = testsupport.NewFaultFS(h.fs.FS)
	h.fs.DisableTimestamps()

	res := h.pipeline(t, nil).Capture(context.Background(), capture.Request{})

	if !res.Published() {
		t.Fatalf("expected published: %v", res.Err)
	}
	if res.TimestampSource != "stream_open" {
		t.Fatalf("timestamp source = %q", res.TimestampSource)
	}
	if !res.Created.Equal(fixed) {
		t.Fatalf("created = %v", res.Created)
	}
}

func TestCaptureEviction(t *testing.T) {
	t.Run("runs when enabled", func(t *testing.T) {
		h := newHarness(t, nil)
		evictor := &recordingEvictor{}
		res := h.pipeline(t, evictor).Capture(context.Background(), capture.Request{EvictDuplicates: true})
		if evictor.calls != 1 {
			t.Fatalf("evictor calls = %d", evictor.calls)
		}
		if !evictor.ref.Equal(fixed) || evictor.ext != "jpg" {
			t.Fatalf("evictor got %v %q", evictor.ref, evictor.ext)
		}
		if res.Eviction == nil || !res.Eviction.Deleted {
			t.Fatalf("eviction result = %+v", res.Eviction)
		}
	})
	t.Run("skipped when disabled", func(t *testing.T) {
		h := newHarness(t, nil)
		evictor := &recordingEvictor{}
		res := h.pipeline(t, evictor).Capture(context.Background(), capture.Request{})
		if evictor.calls != 0 || res.Eviction != nil {
			t.Fatal("eviction should not run")
		}
	})
	t.Run("failure keeps outcome", func(t *testing.T) {
		h := newHarness(t, nil)
		evictor := &recordingEvictor{err: services.ErrEviction}
		res := h.pipeline(t, evictor).Capture(context.Background(), capture.Request{EvictDuplicates: true})
		if !res.Published() {
			t.Fatalf("expected published despite eviction failure: %s", res.State)
		}
		if !errors.Is(res.EvictionErr, services.ErrEviction) {
			t.Fatalf("eviction err = %v", res.EvictionErr)
		}
	})
}

func TestCaptureEvictsNearestDuplicateOnDisk(t *testing.T) {
	h := newHarness(t, nil)
	h.fs = testsupport.NewFaultFS(h.fs.FS)
	h.fs.DisableTimestamps()
	testsupport.WriteFile(t, h.root, "/Camera/20240501123040.jpg", 16, time.Time{})
	testsupport.WriteFile(t, h.root, "/Camera/20240501120000.jpg", 16, time.Time{})

	res := resolver.New(h.fs, resolver.Options{Root: "/", Location: time.UTC}, nil)
	out := h.pipeline(t, res).Capture(context.Background(), capture.Request{EvictDuplicates: true})

	if !out.Published() {
		t.Fatalf("expected published: %v", out.Err)
	}
	if out.Eviction == nil || out.Eviction.Path != "/Camera/20240501123040.jpg" {
		t.Fatalf("eviction = %+v", out.Eviction)
	}
	if testsupport.Exists(h.root, "/Camera/20240501123040.jpg") {
		t.Fatal("nearest duplicate should be deleted")
	}
	if !testsupport.Exists(h.root, "/Camera/20240501120000.jpg") {
		t.Fatal("farther duplicate should be kept")
	}
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Capture.Strategy = "bogus"
	base, err := platform.NewOSFS(cfg.Paths.AlbumRoot)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := capture.New(cfg, capture.Deps{FS: base, Source: framesource.Pattern{}}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestStateTerminal(t *testing.T) {
	if !capture.StatePublished.Terminal() || !capture.StateAborted.Terminal() {
		t.Fatal("published and aborted are terminal")
	}
	if capture.StateRowsWriting.Terminal() {
		t.Fatal("rows_writing is not terminal")
	}
}
