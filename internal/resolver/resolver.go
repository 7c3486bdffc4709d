package resolver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"time"

	"snapvault/internal/logging"
	"snapvault/internal/platform"
	"snapvault/internal/services"
)

// Walk scopes.
const (
	ScopeTree = "tree"
	ScopeDay  = "day"
)

// Options configures where the resolver looks.
type Options struct {
	// Root is the slash path the walk starts from.
	Root string
	// Scope "day" narrows the walk to Root/YYYY/MM/DD of the reference time.
	Scope    string
	Location *time.Location
}

// Result describes one eviction attempt. Found is false when no file matched,
// which is not an error.
type Result struct {
	Found     bool
	Path      string
	Timestamp time.Time
	Source    string
	// Delta is |timestamp - reference| in seconds.
	Delta      uint64
	Candidates int
	Skipped    []string
	Deleted    bool
}

// Resolver finds and deletes nearest-timestamp duplicates.
type Resolver struct {
	fs     platform.FS
	opts   Options
	logger *slog.Logger
}

// New builds a Resolver over fsys.
func New(fsys platform.FS, opts Options, logger *slog.Logger) *Resolver {
	if strings.TrimSpace(opts.Root) == "" {
		opts.Root = "/"
	}
	opts.Root = path.Clean("/" + opts.Root)
	if opts.Scope == "" {
		opts.Scope = ScopeTree
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Resolver{fs: fsys, opts: opts, logger: logging.NewComponentLogger(logger, "resolver")}
}

// EvictNearest deletes the file with extension ext whose timestamp is closest
// to reference and returns what it removed.
func (r *Resolver) EvictNearest(ctx context.Context, reference time.Time, ext string) (Result, error) {
	res, err := r.FindNearest(ctx, reference, ext)
	if err != nil || !res.Found {
		return res, err
	}
	if err := r.fs.Delete(res.Path); err != nil {
		return res, services.Wrap(services.ErrEviction, "resolver", "delete", res.Path, err)
	}
	res.Deleted = true
	r.logger.Info("duplicate evicted",
		logging.String("path", res.Path),
		logging.Uint64("delta_seconds", res.Delta),
		logging.String("timestamp_source", res.Source),
		logging.Int("candidates", res.Candidates),
		logging.String(logging.FieldEventType, "duplicate_evicted"),
	)
	return res, nil
}

// FindNearest runs the walk without deleting anything.
func (r *Resolver) FindNearest(ctx context.Context, reference time.Time, ext string) (Result, error) {
	ext = strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
	if ext == "" {
		return Result{}, services.Wrap(services.ErrValidation, "resolver", "find", "extension filter is required", nil)
	}

	root := r.opts.Root
	if r.opts.Scope == ScopeDay {
		t := reference.In(r.opts.Location)
		root = path.Join(root, fmt.Sprintf("%04d", t.Year()), fmt.Sprintf("%02d", int(t.Month())), fmt.Sprintf("%02d", t.Day()))
	}

	w := &walk{
		r:      r,
		ctx:    ctx,
		suffix: "." + ext,
		ref:    reference.Unix(),
	}
	if err := w.scanRoot(root); err != nil {
		return w.result, err
	}
	if w.result.Found {
		w.result.Path = w.bestPath
	}
	return w.result, nil
}

type walk struct {
	r        *Resolver
	ctx      context.Context
	suffix   string
	ref      int64
	bestPath string
	result   Result
}

func (w *walk) scanRoot(root string) error {
	dir, err := w.r.fs.OpenDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return services.Wrap(services.ErrResolverWalk, "resolver", "open root", root, err)
	}
	return w.scan(root, dir)
}

// scan consumes and closes dir, then descends into its subdirectories. Only
// one directory handle is open at a time.
func (w *walk) scan(p string, dir platform.Dir) error {
	subdirs, err := w.readDir(p, dir)
	if cerr := dir.Close(); cerr != nil {
		w.r.logger.Debug("directory close failed", logging.String("path", p), logging.Error(cerr))
	}
	if err != nil {
		return err
	}

	for _, sub := range subdirs {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		child, err := w.r.fs.OpenDir(sub)
		if err != nil {
			w.skip(sub, err)
			continue
		}
		if err := w.scan(sub, child); err != nil {
			return err
		}
	}
	return nil
}

func (w *walk) readDir(p string, dir platform.Dir) ([]string, error) {
	var subdirs []string
	for {
		if err := w.ctx.Err(); err != nil {
			return nil, err
		}
		entry, ok, err := dir.Next()
		if err != nil {
			w.skip(p, err)
			return subdirs, nil
		}
		if !ok {
			return subdirs, nil
		}
		full := path.Join(p, entry.Name)
		switch entry.Type {
		case platform.EntryDir:
			subdirs = append(subdirs, full)
		case platform.EntryFile:
			if strings.HasSuffix(strings.ToLower(entry.Name), w.suffix) {
				w.consider(full)
			}
		}
	}
}

func (w *walk) consider(p string) {
	ts, source, err := fileTimestamp(w.r.fs, p, w.r.opts.Location)
	if err != nil {
		w.r.logger.Debug("candidate without timestamp ignored", logging.String("path", p), logging.Error(err))
		return
	}
	w.result.Candidates++
	delta := absDelta(ts.Unix(), w.ref)
	// Strictly less: the first candidate seen keeps a tie.
	if !w.result.Found || delta < w.result.Delta {
		w.result.Found = true
		w.result.Delta = delta
		w.result.Timestamp = ts
		w.result.Source = source
		w.bestPath = p
	}
}

func (w *walk) skip(p string, err error) {
	w.result.Skipped = append(w.result.Skipped, p)
	logging.WarnWithContext(w.r.logger, "resolver skipped directory", "resolver_walk_skipped",
		logging.String("path", p),
		logging.Error(services.Wrap(services.ErrResolverWalk, "resolver", "open directory", p, err)),
		logging.String(logging.FieldErrorHint, "check the directory for corruption or permissions"),
		logging.String(logging.FieldImpact, "files under this directory were not considered for eviction"),
	)
}
