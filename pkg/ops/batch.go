package ops

import (
	"context"
	"log/slog"
)

// BatchError is a failure recorded while a Batch runs with
// ContinueOnError: the index of the failing op and its error.
type BatchError struct {
	Index int
	Err   error
}

// Batch executes a sequence of ops in order, sharing one context pair.
// On failure (unless ContinueOnError is set) every op that succeeded so
// far is rolled back in reverse order, best-effort: rollback failures
// are logged and swallowed so that every succeeded op gets its
// compensation attempt.
type Batch struct {
	ops             []Op[any]
	continueOnError bool
	logger          *slog.Logger

	// errors holds the failures from the last ContinueOnError run.
	errors []BatchError
}

// NewBatch creates a Batch over the given ops.
func NewBatch(ops ...Op[any]) *Batch {
	return &Batch{ops: ops}
}

// WithContinueOnError toggles error accumulation mode: failed ops are
// recorded instead of aborting the batch, and contribute no result slot.
func (b *Batch) WithContinueOnError(continueOnError bool) *Batch {
	b.continueOnError = continueOnError
	return b
}

// WithLogger sets the logger used for rollback reporting.
func (b *Batch) WithLogger(logger *slog.Logger) *Batch {
	b.logger = logger
	return b
}

// Add appends an op to the batch.
func (b *Batch) Add(op Op[any]) {
	b.ops = append(b.ops, op)
}

// Len returns the number of ops in the batch.
func (b *Batch) Len() int {
	return len(b.ops)
}

// IsEmpty reports whether the batch holds no ops.
func (b *Batch) IsEmpty() bool {
	return len(b.ops) == 0
}

// Errors returns the failures accumulated by the most recent Perform in
// ContinueOnError mode.
func (b *Batch) Errors() []BatchError {
	return b.errors
}

func (b *Batch) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.Default()
}

// rollbackSucceeded compensates succeeded ops in LIFO order. Each call
// is guarded: a failing rollback is logged and does not stop the walk.
func (b *Batch) rollbackSucceeded(ctx context.Context, succeeded []Op[any], data *DataContext, refs *ReferenceContext) {
	for i := len(succeeded) - 1; i >= 0; i-- {
		op := succeeded[i]
		if err := op.Rollback(ctx, data, refs); err != nil {
			b.log().Error("failed to rollback op", "op", op.Metadata().Name, "error", err)
		} else {
			b.log().Debug("rolled back op", "op", op.Metadata().Name)
		}
	}
}

// Perform runs the ops in order. Results align with succeeded ops only:
// in ContinueOnError mode a failed op contributes no slot. Before each
// step the abort flag is checked; an aborted context rolls back and
// raises Aborted even in ContinueOnError mode, as does an Aborted error
// from a child op.
func (b *Batch) Perform(ctx context.Context, data *DataContext, refs *ReferenceContext) ([]any, error) {
	results := make([]any, 0, len(b.ops))
	b.errors = nil
	var succeeded []Op[any]

	for index, op := range b.ops {
		if data.Aborted() {
			b.rollbackSucceeded(ctx, succeeded, data, refs)
			reason, ok := data.AbortReason()
			if !ok {
				reason = "Batch operation aborted"
			}
			return nil, Aborted(reason)
		}

		result, err := op.Perform(ctx, data, refs)
		if err != nil {
			if IsAborted(err) {
				b.rollbackSucceeded(ctx, succeeded, data, refs)
				return nil, err
			}
			if b.continueOnError {
				b.errors = append(b.errors, BatchError{Index: index, Err: err})
				continue
			}
			b.rollbackSucceeded(ctx, succeeded, data, refs)
			return nil, BatchFailedf("Op %d-%s failed: %s", index, op.Metadata().Name, err.Error())
		}
		results = append(results, result)
		succeeded = append(succeeded, op)
	}

	return results, nil
}

// Metadata derives the batch descriptor from the children's metadata,
// recomputed on each call so late Adds are reflected.
func (b *Batch) Metadata() OpMetadata {
	return buildBatchMetadata(b.ops)
}

// Rollback is a no-op: the batch compensates its children during Perform.
func (b *Batch) Rollback(ctx context.Context, data *DataContext, refs *ReferenceContext) error {
	return nil
}

// AsOp returns the batch as an Op[any] whose perform result is the
// result slice, for nesting batches inside other containers.
func (b *Batch) AsOp() Op[any] {
	return Erase[[]any](b)
}
