package ops

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// CurrentLoopIDKey is the data-context key under which a running Loop
// publishes its instance ID, so body ops can target the innermost loop's
// control flags without knowing its identity.
const CurrentLoopIDKey = "__current_loop_id"

// Loop repeatedly executes a sequence of body ops up to a limit, driving
// a named counter stored in the data context. Because the counter lives
// in the context, a loop resumes where it left off when re-performed
// with the same context; seeding the counter key skips iterations.
//
// Control flow is scoped: each Loop instance has a unique ID baked into
// its continue/break flag keys, so a nested loop's signals never leak
// into an outer loop.
type Loop struct {
	counterVar      string
	limit           int64
	ops             []Op[any]
	loopID          string
	continueVar     string
	breakVar        string
	continueOnError bool
	logger          *slog.Logger
}

// NewLoop creates a Loop driving counterVar up to limit over the given ops.
func NewLoop(counterVar string, limit int64, ops ...Op[any]) *Loop {
	loopID := uuid.NewString()
	return &Loop{
		counterVar:  counterVar,
		limit:       limit,
		ops:         ops,
		loopID:      loopID,
		continueVar: "__continue_loop_" + loopID,
		breakVar:    "__break_loop_" + loopID,
	}
}

// Add appends a body op and returns the loop for chaining.
func (l *Loop) Add(op Op[any]) *Loop {
	l.ops = append(l.ops, op)
	return l
}

// WithContinueOnError makes a failed iteration roll back and move on
// instead of failing the loop.
func (l *Loop) WithContinueOnError(continueOnError bool) *Loop {
	l.continueOnError = continueOnError
	return l
}

// WithLogger sets the logger used for rollback and skip reporting.
func (l *Loop) WithLogger(logger *slog.Logger) *Loop {
	l.logger = logger
	return l
}

func (l *Loop) log() *slog.Logger {
	if l.logger != nil {
		return l.logger
	}
	return slog.Default()
}

func (l *Loop) counter(data *DataContext) int64 {
	v, ok := data.Get(l.counterVar)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

// rollbackIteration compensates the current iteration's succeeded ops in
// LIFO order, best-effort.
func (l *Loop) rollbackIteration(ctx context.Context, succeeded []Op[any], data *DataContext, refs *ReferenceContext) {
	for i := len(succeeded) - 1; i >= 0; i-- {
		op := succeeded[i]
		if err := op.Rollback(ctx, data, refs); err != nil {
			l.log().Error("failed to rollback op in loop iteration", "op", op.Metadata().Name, "error", err)
		} else {
			l.log().Debug("rolled back op in loop iteration", "op", op.Metadata().Name)
		}
	}
}

func (l *Loop) abortErr(data *DataContext) *OpError {
	reason, ok := data.AbortReason()
	if !ok {
		reason = "Loop operation aborted"
	}
	return Aborted(reason)
}

// Perform runs iterations until the counter reaches the limit, a break
// flag fires, or an error escapes. Results accumulate across iterations.
// The counter advances once per completed iteration (including skipped
// ones in ContinueOnError mode); it does not advance on a break or a
// propagated failure. Errors from body ops propagate unchanged.
func (l *Loop) Perform(ctx context.Context, data *DataContext, refs *ReferenceContext) ([]any, error) {
	var results []any
	counter := l.counter(data)

	if !data.Contains(l.counterVar) {
		data.Insert(l.counterVar, counter)
	}
	data.Insert(CurrentLoopIDKey, l.loopID)

	for counter < l.limit {
		if data.Aborted() {
			return nil, l.abortErr(data)
		}

		// Reset scoped control flags so a stale flag from a previous
		// iteration never triggers.
		data.Insert(l.continueVar, false)
		data.Insert(l.breakVar, false)

		var succeeded []Op[any]
		for _, op := range l.ops {
			if data.Aborted() {
				l.rollbackIteration(ctx, succeeded, data, refs)
				return nil, l.abortErr(data)
			}

			result, err := op.Perform(ctx, data, refs)
			if err != nil {
				l.rollbackIteration(ctx, succeeded, data, refs)
				if IsAborted(err) {
					return nil, err
				}
				if l.continueOnError {
					l.log().Warn("op failed in loop iteration, continuing",
						"op", op.Metadata().Name, "iteration", counter, "error", err)
					break
				}
				return nil, err
			}
			results = append(results, result)
			succeeded = append(succeeded, op)

			if flag, _ := Value[bool](data, l.continueVar); flag {
				data.Insert(l.continueVar, false)
				break
			}
			if flag, _ := Value[bool](data, l.breakVar); flag {
				data.Insert(l.breakVar, false)
				return results, nil
			}
		}

		counter++
		data.Insert(l.counterVar, counter)
	}

	return results, nil
}

func (l *Loop) Metadata() OpMetadata {
	desc := fmt.Sprintf("Loop %d times over %d ops", l.limit, len(l.ops))
	if l.continueOnError {
		desc += " (continue on error)"
	}
	return NewMetadata("Loop").Description(desc).Build()
}

// Rollback is a no-op: iterations compensate themselves during Perform.
func (l *Loop) Rollback(ctx context.Context, data *DataContext, refs *ReferenceContext) error {
	return nil
}

// AsOp returns the loop as an Op[any] for nesting inside containers.
func (l *Loop) AsOp() Op[any] {
	return Erase[[]any](l)
}

// SignalContinue sets the innermost running loop's continue flag, ending
// the current iteration after the signaling op returns. No-op when no
// loop has published its ID.
func SignalContinue(data *DataContext) {
	if id, ok := Value[string](data, CurrentLoopIDKey); ok {
		data.Insert("__continue_loop_"+id, true)
	}
}

// SignalBreak sets the innermost running loop's break flag, ending the
// whole loop after the signaling op returns.
func SignalBreak(data *DataContext) {
	if id, ok := Value[string](data, CurrentLoopIDKey); ok {
		data.Insert("__break_loop_"+id, true)
	}
}
