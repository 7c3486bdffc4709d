package logging

import (
	"context"
	"errors"
	"log/slog"
)

// TeeHandler dispatches each record to every wrapped handler that accepts its level.
type TeeHandler struct {
	handlers []slog.Handler
}

// NewTeeHandler drops nil entries; it returns nil when nothing remains.
func NewTeeHandler(handlers ...slog.Handler) slog.Handler {
	kept := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			kept = append(kept, h)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	return &TeeHandler{handlers: kept}
}

func (t *TeeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *TeeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *TeeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &TeeHandler{handlers: next}
}

func (t *TeeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		next[i] = h.WithGroup(name)
	}
	return &TeeHandler{handlers: next}
}

// TeeLogger combines the primary logger with an extra handler.
func TeeLogger(primary *slog.Logger, extra slog.Handler) *slog.Logger {
	if primary == nil && extra == nil {
		return NewNop()
	}
	if primary == nil {
		return slog.New(extra)
	}
	if extra == nil {
		return primary
	}
	return slog.New(NewTeeHandler(primary.Handler(), extra))
}
