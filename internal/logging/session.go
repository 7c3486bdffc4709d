package logging

import (
	"context"
	"log/slog"
)

// sessionHandler stamps every record with the daemon session identifier.
type sessionHandler struct {
	next slog.Handler
	id   string
}

func newSessionHandler(next slog.Handler, id string) slog.Handler {
	return &sessionHandler{next: next.WithAttrs([]slog.Attr{slog.String(FieldSessionID, id)}), id: id}
}

func (h *sessionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *sessionHandler) Handle(ctx context.Context, record slog.Record) error {
	return h.next.Handle(ctx, record)
}

func (h *sessionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sessionHandler{next: h.next.WithAttrs(attrs), id: h.id}
}

func (h *sessionHandler) WithGroup(name string) slog.Handler {
	return &sessionHandler{next: h.next.WithGroup(name), id: h.id}
}
