// Package ctxlog hands the tablegen logger down through a context. Library
// code generating from a source file logs nothing unless a caller asked for
// it, so the fallback logger drops every record.
package ctxlog

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// Discard is the logger used when a context carries none. Its handler is
// disabled at every level, so debug attributes are never built.
var Discard = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }

func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// With returns a context whose logger adds args to every record, e.g. the
// .tbl file being generated.
func With(ctx context.Context, args ...any) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(args...))
}

// FromContext returns the logger stored in ctx, or Discard.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return Discard
}
