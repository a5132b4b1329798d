package ops

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// TimeBound wraps an op with a wall-clock budget. The wrapped op runs in
// its own goroutine against a deadline-bearing context; when the budget
// elapses first, Perform returns a Timeout error immediately. The loser
// goroutine keeps running until it observes the cancellation — its
// partial effects are NOT rolled back automatically, the caller decides
// whether to compensate after a timeout.
type TimeBound[T any] struct {
	op            Op[T]
	timeout       time.Duration
	name          string
	warnOnTimeout bool
	logger        *slog.Logger
}

// NewTimeBound wraps op with the given budget.
func NewTimeBound[T any](op Op[T], timeout time.Duration) *TimeBound[T] {
	return &TimeBound[T]{op: op, timeout: timeout, warnOnTimeout: true}
}

// WithName sets the display name used in logs and derived metadata.
func (w *TimeBound[T]) WithName(name string) *TimeBound[T] {
	w.name = name
	return w
}

// WithWarnOnTimeout toggles the warning emitted when the budget elapses.
func (w *TimeBound[T]) WithWarnOnTimeout(warn bool) *TimeBound[T] {
	w.warnOnTimeout = warn
	return w
}

// WithLogger sets the destination logger.
func (w *TimeBound[T]) WithLogger(logger *slog.Logger) *TimeBound[T] {
	w.logger = logger
	return w
}

func (w *TimeBound[T]) log() *slog.Logger {
	if w.logger != nil {
		return w.logger
	}
	return slog.Default()
}

func (w *TimeBound[T]) displayName() string {
	if w.name != "" {
		return w.name
	}
	return "TimeBoundOp"
}

type timeBoundResult[T any] struct {
	value T
	err   error
}

func (w *TimeBound[T]) Perform(ctx context.Context, data *DataContext, refs *ReferenceContext) (T, error) {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	done := make(chan timeBoundResult[T], 1)
	go func() {
		value, err := w.op.Perform(runCtx, data, refs)
		done <- timeBoundResult[T]{value: value, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			var zero T
			// When the budget elapsed while the inner op was failing,
			// both select cases are ready and the inner error is often
			// just the propagated deadline. Report the timeout so the
			// outcome does not depend on select ordering.
			if runCtx.Err() == context.DeadlineExceeded {
				if w.warnOnTimeout {
					w.log().Warn("op terminated due to timeout",
						"op", w.displayName(), "timeout_ms", w.timeout.Milliseconds())
				}
				return zero, TimeoutError(w.timeout.Milliseconds())
			}
			return zero, res.err
		}
		duration := time.Since(start)
		if ratio := float64(duration) / float64(w.timeout); w.timeout > 0 && ratio > 0.8 {
			w.log().Info("op completed close to its budget",
				"op", w.displayName(),
				"duration", duration,
				"budget_pct", int(ratio*100),
				"timeout_ms", w.timeout.Milliseconds())
		}
		return res.value, nil
	case <-runCtx.Done():
		if w.warnOnTimeout {
			w.log().Warn("op terminated due to timeout",
				"op", w.displayName(), "timeout_ms", w.timeout.Milliseconds())
		}
		var zero T
		return zero, TimeoutError(w.timeout.Milliseconds())
	}
}

// Metadata derives a copy of the wrapped metadata with the budget noted
// in the description when a name was given. The inner metadata is never
// mutated.
func (w *TimeBound[T]) Metadata() OpMetadata {
	inner := w.op.Metadata()
	if w.name != "" {
		inner.Description = fmt.Sprintf("%s (timeout: %dms)", w.name, w.timeout.Milliseconds())
	}
	return inner
}

func (w *TimeBound[T]) Rollback(ctx context.Context, data *DataContext, refs *ReferenceContext) error {
	return w.op.Rollback(ctx, data, refs)
}
