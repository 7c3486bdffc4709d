package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"snapvault/internal/archive"
	"snapvault/internal/capture"
	"snapvault/internal/captureexec"
	"snapvault/internal/config"
	"snapvault/internal/logging"
	"snapvault/internal/trigger"
)

// Daemon serializes triggered captures and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	runner   *captureexec.Runner
	triggers []trigger.Source

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu    sync.Mutex
	evict bool
	stats counters
}

type counters struct {
	captures  int
	published int
	aborted   int
	last      *capture.Result
	lastAt    time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running         bool
	EvictDuplicates bool
	Triggers        []string
	Captures        int
	Published       int
	Aborted         int
	LastCapture     *capture.Result
	LastCaptureAt   time.Time
	LockFilePath    string
}

// Option customizes a Daemon.
type Option func(*Daemon)

// WithTriggers replaces the config-derived trigger sources.
func WithTriggers(sources ...trigger.Source) Option {
	return func(d *Daemon) {
		d.triggers = sources
	}
}

// New constructs a daemon around runner.
func New(cfg *config.Config, runner *captureexec.Runner, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || runner == nil {
		return nil, errors.New("daemon requires config and capture runner")
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		runner:   runner,
		lockPath: cfg.DaemonLockPath(),
		lock:     flock.New(cfg.DaemonLockPath()),
	}
	d.triggers = configuredTriggers(cfg, logger)
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func configuredTriggers(cfg *config.Config, logger *slog.Logger) []trigger.Source {
	var sources []trigger.Source
	if i := trigger.NewInterval(time.Duration(cfg.Trigger.IntervalSeconds)*time.Second, logger); i != nil {
		sources = append(sources, i)
	}
	if n := trigger.NewNetlink(cfg.Trigger, logger); n != nil {
		sources = append(sources, n)
	}
	return sources
}

// Start acquires the daemon lock, prepares the album, and launches the
// trigger sources and the capture loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}
	if len(d.triggers) == 0 {
		return errors.New("no capture triggers configured (set trigger.interval_seconds or trigger.udev_enabled)")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another snapvault daemon instance is already running")
	}

	evict, err := d.cfg.EvictDuplicates()
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("read duplicate marker: %w", err)
	}
	d.mu.Lock()
	d.evict = evict
	d.mu.Unlock()

	d.prepare()

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	events := make(chan trigger.Event, 1)
	for _, src := range d.triggers {
		d.wg.Add(1)
		go d.runTrigger(runCtx, src, events)
	}
	d.wg.Add(1)
	go d.loop(runCtx, events)

	d.running.Store(true)
	d.logger.Info("snapvault daemon started",
		logging.String("lock", d.lockPath),
		logging.Bool("evict_duplicates", evict),
		logging.Int("triggers", len(d.triggers)),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

// Stop cancels the loop, waits for an in-flight capture, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("snapvault daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Run starts the daemon and blocks until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	d.Stop()
	return nil
}

// Status reports runtime counters.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.triggers))
	for _, src := range d.triggers {
		names = append(names, src.Name())
	}
	return Status{
		Running:         d.running.Load(),
		EvictDuplicates: d.evict,
		Triggers:        names,
		Captures:        d.stats.captures,
		Published:       d.stats.published,
		Aborted:         d.stats.aborted,
		LastCapture:     d.stats.last,
		LastCaptureAt:   d.stats.lastAt,
		LockFilePath:    d.lockPath,
	}
}

// prepare removes an orphaned temp file, creates the archive directory, and
// prunes old logs. The temp file is only touched while no capture holds the
// capture lock.
func (d *Daemon) prepare() {
	captureLock := flock.New(d.cfg.CaptureLockPath())
	if ok, err := captureLock.TryLock(); err == nil && ok {
		if _, err := archive.RemoveOrphanTemp(d.runner.FS(), d.runner.Layout(), d.logger); err != nil {
			d.logger.Debug("orphan temp cleanup skipped", logging.Error(err))
		}
		_ = captureLock.Unlock()
	}

	if err := archive.EnsureRoot(d.runner.FS(), d.runner.Layout()); err != nil {
		logging.WarnWithContext(d.logger, "archive directory unavailable", "archive_root_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check album_root permissions"),
			logging.String(logging.FieldImpact, "captures will fail until the archive directory exists"),
		)
	}

	removed := logging.PruneLogs(d.logger, d.cfg.Logging.RetentionDays, time.Now(),
		logging.RetentionTarget{
			Dir:     d.cfg.Paths.LogDir,
			Pattern: "*.log",
			Keep:    []string{filepath.Join(d.cfg.Paths.LogDir, "snapvault.log")},
		},
		logging.RetentionTarget{Dir: filepath.Join(d.cfg.Paths.LogDir, "debug"), Pattern: "*.log"},
	)
	if removed > 0 {
		d.logger.Info("pruned old logs", logging.Int("removed", removed))
	}
}

func (d *Daemon) runTrigger(ctx context.Context, src trigger.Source, events chan<- trigger.Event) {
	defer d.wg.Done()
	if err := src.Run(ctx, events); err != nil && ctx.Err() == nil {
		logging.WarnWithContext(d.logger, "trigger stopped", "trigger_stopped",
			logging.String("trigger", src.Name()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "captures from this trigger are unavailable"),
		)
	}
}

func (d *Daemon) loop(ctx context.Context, events <-chan trigger.Event) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			d.handle(ctx, ev)
		}
	}
}

func (d *Daemon) handle(ctx context.Context, ev trigger.Event) {
	d.mu.Lock()
	evict := d.evict
	d.mu.Unlock()

	res, err := d.runner.Run(ctx, ev.Source, evict)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.WarnWithContext(d.logger, "capture skipped", "capture_skipped",
			logging.String("trigger", ev.Source),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "another capture may be holding the capture lock"),
			logging.String(logging.FieldImpact, "this trigger did not produce a capture"),
		)
		return
	}

	d.mu.Lock()
	d.stats.captures++
	if res.Published() {
		d.stats.published++
	} else {
		d.stats.aborted++
	}
	d.stats.last = &res
	d.stats.lastAt = time.Now()
	d.mu.Unlock()
}

// IsRunning reports whether another process holds the daemon lock.
func IsRunning(cfg *config.Config) (bool, error) {
	probe := flock.New(cfg.DaemonLockPath())
	ok, err := probe.TryLock()
	if err != nil {
		return false, fmt.Errorf("probe daemon lock: %w", err)
	}
	if ok {
		_ = probe.Unlock()
		return false, nil
	}
	return true, nil
}
