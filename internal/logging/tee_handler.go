package logging

import (
	"context"
	"log/slog"
)

// teeHandler duplicates records to the console handler and the systemd
// journal. Records are cloned for the journal because handlers may consume
// the attr iterator.
type teeHandler struct {
	console slog.Handler
	journal slog.Handler
}

func newTeeHandler(console, journal slog.Handler) *teeHandler {
	return &teeHandler{console: console, journal: journal}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return t.console.Enabled(ctx, level) || t.journal.Enabled(ctx, level)
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if t.console.Enabled(ctx, r.Level) {
		err = t.console.Handle(ctx, r.Clone())
	}
	if t.journal.Enabled(ctx, r.Level) {
		// Journal delivery failures must not suppress console output, so
		// they are dropped here rather than returned.
		_ = t.journal.Handle(ctx, r.Clone())
	}
	return err
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return newTeeHandler(t.console.WithAttrs(attrs), t.journal.WithAttrs(attrs))
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return t
	}
	return newTeeHandler(t.console.WithGroup(name), t.journal.WithGroup(name))
}
