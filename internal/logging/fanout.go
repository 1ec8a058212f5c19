package logging

import (
	"context"
	"errors"
	"log/slog"
)

// fanout duplicates records across several destinations, letting the
// journal and a text or json stream receive the same log line. Each
// destination keeps its own level filter.
type fanout struct {
	targets []slog.Handler
}

func newFanout(targets ...slog.Handler) *fanout {
	return &fanout{targets: targets}
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, t := range f.targets {
		if t.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, t := range f.targets {
		if !t.Enabled(ctx, r.Level) {
			continue
		}
		// Clone: a Record may only be handed to one handler.
		if err := t.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	targets := make([]slog.Handler, len(f.targets))
	for i, t := range f.targets {
		targets[i] = t.WithAttrs(attrs)
	}
	return &fanout{targets: targets}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	targets := make([]slog.Handler, len(f.targets))
	for i, t := range f.targets {
		targets[i] = t.WithGroup(name)
	}
	return &fanout{targets: targets}
}
