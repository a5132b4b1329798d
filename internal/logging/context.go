// Package logging carries correlation IDs through context.Context so
// every log line emitted inside a perform tree can be tied back to the
// op, trigger, and fuse that caused it.
package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	opNameKey ctxKey = iota
	triggerKey
	fuseIDKey
)

// WithOpName returns a context with the current op display name set.
func WithOpName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, opNameKey, name)
}

// WithTrigger returns a context with the firing trigger's name set.
func WithTrigger(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, triggerKey, name)
}

// WithFuseID returns a context with the igniting fuse's ID set.
func WithFuseID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, fuseIDKey, id)
}

// OpName extracts the op display name from the context, or "" if absent.
func OpName(ctx context.Context) string {
	v, _ := ctx.Value(opNameKey).(string)
	return v
}

// Trigger extracts the trigger name from the context, or "" if absent.
func Trigger(ctx context.Context) string {
	v, _ := ctx.Value(triggerKey).(string)
	return v
}

// FuseID extracts the fuse ID from the context, or "" if absent.
func FuseID(ctx context.Context) string {
	v, _ := ctx.Value(fuseIDKey).(string)
	return v
}

// LogWith returns a logger enriched with correlation IDs from the context.
// Only non-empty values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if name := OpName(ctx); name != "" {
		logger = logger.With(slog.String("op", name))
	}
	if name := Trigger(ctx); name != "" {
		logger = logger.With(slog.String("trigger", name))
	}
	if id := FuseID(ctx); id != "" {
		logger = logger.With(slog.String("fuse_id", id))
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, automatically injecting
// correlation IDs from the context into every log record.
// Use with slog.New(NewCorrelationHandler(inner)) so callers can use
// logger.InfoContext(ctx, ...) and IDs appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic correlation ID injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := OpName(ctx); v != "" {
		r.AddAttrs(slog.String("op", v))
	}
	if v := Trigger(ctx); v != "" {
		r.AddAttrs(slog.String("trigger", v))
	}
	if v := FuseID(ctx); v != "" {
		r.AddAttrs(slog.String("fuse_id", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
