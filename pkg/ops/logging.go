package ops

import (
	"context"
	"log/slog"
	"time"

	"github.com/rendis/opkit/internal/logging"
)

// Logging wraps an op with start/success/failure logging and timing.
// Failures are re-wrapped with the op name via the standard
// re-categorization table; nothing is ever swallowed.
type Logging[T any] struct {
	op     Op[T]
	name   string
	logger *slog.Logger
}

// NewLogging wraps op, logging under the given display name.
func NewLogging[T any](op Op[T], name string) *Logging[T] {
	return &Logging[T]{op: op, name: name}
}

// WithLogger sets the destination logger (default slog.Default()).
func (w *Logging[T]) WithLogger(logger *slog.Logger) *Logging[T] {
	w.logger = logger
	return w
}

func (w *Logging[T]) log() *slog.Logger {
	if w.logger != nil {
		return w.logger
	}
	return slog.Default()
}

func (w *Logging[T]) Perform(ctx context.Context, data *DataContext, refs *ReferenceContext) (T, error) {
	start := time.Now()
	w.log().Info("starting op", "op", w.name)

	result, err := w.op.Perform(logging.WithOpName(ctx, w.name), data, refs)
	duration := time.Since(start)
	if err != nil {
		w.log().Error("op failed", "op", w.name, "duration", duration, "error", err)
		var zero T
		return zero, WrapWithOpName(w.name, err)
	}

	w.log().Info("op completed", "op", w.name, "duration", duration)
	return result, nil
}

func (w *Logging[T]) Metadata() OpMetadata {
	return w.op.Metadata()
}

func (w *Logging[T]) Rollback(ctx context.Context, data *DataContext, refs *ReferenceContext) error {
	return w.op.Rollback(ctx, data, refs)
}
