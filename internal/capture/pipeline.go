package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"snapvault/internal/archive"
	"snapvault/internal/config"
	"snapvault/internal/framesource"
	"snapvault/internal/logging"
	"snapvault/internal/platform"
	"snapvault/internal/resolver"
	"snapvault/internal/services"
)

// Evictor removes the duplicate nearest to a published capture.
type Evictor interface {
	EvictNearest(ctx context.Context, reference time.Time, ext string) (resolver.Result, error)
}

// Deps are the collaborators a Pipeline drives.
type Deps struct {
	FS      platform.FS
	Source  framesource.Source
	Evictor Evictor
	Logger  *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Request carries per-capture inputs.
type Request struct {
	// ID tags logs and the journal; a UUID is generated when empty.
	ID string
	// EvictDuplicates is read once by the caller from the marker flag.
	EvictDuplicates bool
}

// Pipeline runs captures. It holds no per-capture state.
type Pipeline struct {
	fs          platform.FS
	source      framesource.Source
	evictor     Evictor
	logger      *slog.Logger
	now         func() time.Time
	layout      archive.Layout
	desc        framesource.Descriptor
	openTimeout time.Duration
	strategy    strategy
	dupExt      string
}

// New builds a Pipeline from configuration.
func New(cfg *config.Config, deps Deps) (*Pipeline, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "capture", "new", "config is required", nil)
	}
	if deps.FS == nil || deps.Source == nil {
		return nil, services.Wrap(services.ErrConfiguration, "capture", "new", "filesystem and frame source are required", nil)
	}
	desc := framesource.Descriptor{Width: cfg.Capture.Width, Height: cfg.Capture.Height}
	if err := desc.Validate(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "capture", "new", "frame geometry", err)
	}
	strat, err := newStrategy(cfg.Capture.Strategy, cfg.Capture.CompressionLevel)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "capture", "new", "strategy", err)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		fs:          deps.FS,
		source:      deps.Source,
		evictor:     deps.Evictor,
		logger:      logging.NewComponentLogger(deps.Logger, "capture"),
		now:         now,
		layout:      archive.NewLayout(cfg),
		desc:        desc,
		openTimeout: cfg.OpenTimeout(),
		strategy:    strat,
		dupExt:      cfg.Duplicates.Extension,
	}, nil
}

// Layout returns the archive layout captures are published into.
func (p *Pipeline) Layout() archive.Layout { return p.layout }

// run is the per-capture resource owner.
type run struct {
	p        *Pipeline
	res      *Result
	state    State
	releases []func()
	stream   framesource.Stream
	writer   *platform.Writer
}

func (c *run) advance(s State) { c.state = s }

// acquired registers fn to run once during release, after everything
// registered later.
func (c *run) acquired(fn func()) { c.releases = append(c.releases, fn) }

func (c *run) release() {
	for i := len(c.releases) - 1; i >= 0; i-- {
		c.releases[i]()
	}
	c.releases = nil
}

// Capture runs one capture to a terminal state. It never returns an error;
// the failure, if any, is described by the Result. Once started a capture is
// not cancellable: ctx contributes values only.
func (p *Pipeline) Capture(ctx context.Context, req Request) Result {
	ctx = context.WithoutCancel(ctx)
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	ctx = services.WithCaptureID(ctx, id)
	logger := logging.WithContext(ctx, p.logger)

	started := p.now()
	res := Result{ID: id, Strategy: p.strategy.name(), Temp: p.layout.TempPath()}
	c := &run{p: p, res: &res, state: StateIdle}

	err := c.encode(ctx)
	failedIn := c.state

	c.advance(StateFinalizing)
	if err == nil {
		failedIn = StateFinalizing
		err = c.finishSink()
	}
	if c.writer != nil {
		res.Bytes = c.writer.Offset()
	}
	c.release()

	if err == nil {
		pub, perr := archive.Publish(p.fs, p.layout, res.OpenedAt)
		res.Created = pub.Created
		res.TimestampSource = pub.TimestampSource
		if perr != nil {
			err = perr
		} else {
			res.Final = pub.Final
		}
	}

	if err != nil {
		res.FailedIn = failedIn
		c.advance(StateAborted)
		res.State = StateAborted
		res.Err = err
		res.Failure = services.Classify(err)
		res.Duration = p.now().Sub(started)
		p.logAbort(logger, res)
		return res
	}

	c.advance(StatePublished)
	res.State = StatePublished
	res.Duration = p.now().Sub(started)
	logger.Info("capture published",
		logging.String("final", res.Final),
		logging.Int("rows", res.Rows),
		logging.Int64("bytes", res.Bytes),
		logging.String("timestamp_source", res.TimestampSource),
		logging.Duration("duration", res.Duration),
		logging.String(logging.FieldEventType, "capture_published"),
	)

	if req.EvictDuplicates && p.evictor != nil {
		p.evict(ctx, logger, &res)
	}
	return res
}

func (c *run) encode(ctx context.Context) error {
	p := c.p
	c.res.OpenedAt = p.now()
	stream, err := p.source.Open(ctx, p.desc, p.openTimeout)
	if err != nil {
		return services.Wrap(services.ErrSourceUnavailable, "capture", "open stream", p.desc.String(), err)
	}
	c.stream = stream
	c.acquired(func() {
		if cerr := stream.Close(); cerr != nil {
			p.logger.Debug("stream close failed", logging.Error(cerr))
		}
	})
	c.advance(StateStreamOpened)

	if got := stream.Descriptor(); got != p.desc {
		return services.Wrap(services.ErrSourceUnavailable, "capture", "check geometry",
			fmt.Sprintf("stream reports %s, expected %s", got, p.desc), framesource.ErrSizeMismatch)
	}

	return p.strategy.encode(ctx, c)
}

// openSink ensures the archive directory exists and opens a fresh temp file.
func (c *run) openSink() (*platform.Writer, error) {
	p := c.p
	if err := archive.EnsureRoot(p.fs, p.layout); err != nil {
		return nil, services.Wrap(services.ErrSinkIO, "capture", "prepare archive", p.layout.Dir, err)
	}
	w, err := platform.OpenWriter(p.fs, p.layout.TempPath())
	if err != nil {
		return nil, services.Wrap(services.ErrSinkIO, "capture", "open temp", p.layout.TempPath(), err)
	}
	c.writer = w
	c.acquired(func() {
		if cerr := w.Close(); cerr != nil {
			p.logger.Debug("temp close failed", logging.Error(cerr))
		}
	})
	return w, nil
}

// finishSink closes the temp file so the rename sees complete contents.
func (c *run) finishSink() error {
	if c.writer == nil {
		return nil
	}
	if err := c.writer.Close(); err != nil {
		return services.Wrap(services.ErrSinkIO, "capture", "close temp", c.writer.Path(), err)
	}
	return nil
}

func (c *run) readRow(row int, buf []byte) error {
	n, err := c.stream.ReadRow(row, buf)
	if err == nil && n != len(buf) {
		err = fmt.Errorf("%w: row %d got %d of %d bytes", framesource.ErrShortRead, row, n, len(buf))
	}
	if err != nil {
		return services.Wrap(services.ErrSourceUnavailable, "capture", "read row", fmt.Sprintf("row %d", row), err)
	}
	return nil
}

func (p *Pipeline) evict(ctx context.Context, logger *slog.Logger, res *Result) {
	ev, err := p.evictor.EvictNearest(ctx, res.Created, p.dupExt)
	res.Eviction = &ev
	if err != nil {
		res.EvictionErr = err
		logging.WarnWithContext(logger, "duplicate eviction failed", "duplicate_eviction_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the duplicates root and its permissions"),
			logging.String(logging.FieldImpact, "the capture is archived; its duplicate was kept"),
		)
		return
	}
	if !ev.Found {
		logger.Debug("no duplicate candidate", logging.String(logging.FieldEventType, "duplicate_none"))
	}
}

func (p *Pipeline) logAbort(logger *slog.Logger, res Result) {
	hint := "check logs for details"
	impact := "no archive entry was created for this capture"
	switch res.Failure {
	case services.FailureSourceUnavailable:
		hint = "check that the frame source is connected and readable"
	case services.FailureEncoderInit:
		hint = "check capture.width, capture.height, and capture.compression_level"
	case services.FailureSinkIO:
		hint = "check free space and permissions under album_root"
		impact = "the temp file is truncated and will be replaced by the next capture"
	case services.FailurePublication:
		hint = "check archive directory permissions and the platform clock"
		impact = "the encoded image remains at the temp path and was not archived"
	}
	logging.WarnWithContext(logger, "capture aborted", "capture_aborted",
		logging.String("failure", res.Failure),
		logging.String("failed_in", res.FailedIn.String()),
		logging.Int("rows", res.Rows),
		logging.Error(res.Err),
		logging.String(logging.FieldErrorHint, hint),
		logging.String(logging.FieldImpact, impact),
	)
}
