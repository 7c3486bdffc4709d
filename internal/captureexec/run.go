// Package captureexec assembles a capture pipeline from configuration and runs
// captures under the cross-process capture lock, recording each result in the
// journal.
package captureexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"snapvault/internal/archive"
	"snapvault/internal/capture"
	"snapvault/internal/config"
	"snapvault/internal/framesource"
	"snapvault/internal/journal"
	"snapvault/internal/logging"
	"snapvault/internal/platform"
	"snapvault/internal/resolver"
	"snapvault/internal/services"
)

const lockRetryDelay = 50 * time.Millisecond

// Options carries the collaborators New would otherwise build from config.
type Options struct {
	Logger *slog.Logger
	// Store is optional; without it results are only logged.
	Store *journal.Store
	// FS and Source override the config-derived album filesystem and frame source.
	FS     platform.FS
	Source framesource.Source
	Now    func() time.Time
}

// Runner executes captures one at a time.
type Runner struct {
	cfg      *config.Config
	fs       platform.FS
	pipeline *capture.Pipeline
	resolver *resolver.Resolver
	store    *journal.Store
	logger   *slog.Logger
	lock     *flock.Flock
}

// New builds a Runner for cfg.
func New(cfg *config.Config, opts Options) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	fsys := opts.FS
	if fsys == nil {
		osfs, err := platform.NewOSFS(cfg.Paths.AlbumRoot)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "captureexec", "open album root", cfg.Paths.AlbumRoot, err)
		}
		fsys = osfs
	}
	source := opts.Source
	if source == nil {
		src, err := framesource.New(cfg.Capture.Source, cfg.Capture.Device)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "captureexec", "frame source", cfg.Capture.Source, err)
		}
		source = src
	}

	res := resolver.New(fsys, resolver.Options{
		Root:     cfg.Duplicates.Root,
		Scope:    cfg.Duplicates.Scope,
		Location: cfg.Location(),
	}, opts.Logger)

	pipeline, err := capture.New(cfg, capture.Deps{
		FS:      fsys,
		Source:  source,
		Evictor: res,
		Logger:  opts.Logger,
		Now:     opts.Now,
	})
	if err != nil {
		return nil, err
	}

	return &Runner{
		cfg:      cfg,
		fs:       fsys,
		pipeline: pipeline,
		resolver: res,
		store:    opts.Store,
		logger:   logging.NewComponentLogger(opts.Logger, "captureexec"),
		lock:     flock.New(cfg.CaptureLockPath()),
	}, nil
}

// FS returns the album filesystem.
func (r *Runner) FS() platform.FS { return r.fs }

// Layout returns the archive layout.
func (r *Runner) Layout() archive.Layout { return r.pipeline.Layout() }

// Resolver returns the duplicate resolver bound to the album filesystem.
func (r *Runner) Resolver() *resolver.Resolver { return r.resolver }

// Run waits for the capture lock, runs one capture, and journals it. The
// returned error covers only the lock; capture failures live in the Result.
func (r *Runner) Run(ctx context.Context, trigger string, evict bool) (capture.Result, error) {
	ctx = services.WithStage(ctx, "capture")
	logger := logging.WithContext(ctx, r.logger)

	locked, err := r.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return capture.Result{}, fmt.Errorf("acquire capture lock: %w", err)
	}
	if !locked {
		return capture.Result{}, fmt.Errorf("acquire capture lock %s: not acquired", r.cfg.CaptureLockPath())
	}
	defer func() {
		if uerr := r.lock.Unlock(); uerr != nil {
			logger.Warn("release capture lock failed", logging.Error(uerr))
		}
	}()

	// Cancellation may abandon the lock wait, never a started capture.
	ctx = context.WithoutCancel(ctx)

	logger.Debug("capture started",
		logging.String("trigger", trigger),
		logging.Bool("evict_duplicates", evict),
		logging.String(logging.FieldEventType, "capture_start"),
	)
	res := r.pipeline.Capture(ctx, capture.Request{EvictDuplicates: evict})

	if r.store != nil {
		if err := r.store.Record(ctx, res, trigger); err != nil {
			logging.WarnWithContext(logger, "journal record failed", "journal_record_failed",
				logging.String(logging.FieldCaptureID, res.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check state_dir permissions and the journal database"),
				logging.String(logging.FieldImpact, "capture history is missing this entry"),
			)
		}
	}
	return res, nil
}
