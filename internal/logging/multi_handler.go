package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler duplicates each record to every sink: stdout, the journal when
// present, and the in-memory ring buffer.
type teeHandler struct {
	sinks []slog.Handler
}

func newTeeHandler(sinks ...slog.Handler) *teeHandler {
	return &teeHandler{sinks: sinks}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.sinks {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t.sinks {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sinks := make([]slog.Handler, len(t.sinks))
	for i, h := range t.sinks {
		sinks[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{sinks: sinks}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	sinks := make([]slog.Handler, len(t.sinks))
	for i, h := range t.sinks {
		sinks[i] = h.WithGroup(name)
	}
	return &teeHandler{sinks: sinks}
}
