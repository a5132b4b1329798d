package ops

import "context"

// Op is the core operation contract. Every executable unit — leaf op,
// Batch, Loop, trigger, wrapper — implements the same three capabilities,
// which is what makes unlimited nesting possible.
//
// Perform executes the operation. It may block on I/O and must honor ctx
// for cancellation of long waits; the cooperative abort flag on the
// DataContext is a separate, voluntary signal observed by containers.
//
// Metadata returns the static descriptor and must be pure.
//
// Rollback is the compensating action for a previously succeeded Perform.
// It should not fail under normal use, but callers treat it as fallible
// and swallow its errors so that every succeeded op gets a compensation
// attempt.
type Op[T any] interface {
	Perform(ctx context.Context, data *DataContext, refs *ReferenceContext) (T, error)
	Metadata() OpMetadata
	Rollback(ctx context.Context, data *DataContext, refs *ReferenceContext) error
}

// erased adapts an Op[T] to Op[any] so containers can hold heterogeneous ops.
type erased[T any] struct {
	op Op[T]
}

func (e erased[T]) Perform(ctx context.Context, data *DataContext, refs *ReferenceContext) (any, error) {
	v, err := e.op.Perform(ctx, data, refs)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (e erased[T]) Metadata() OpMetadata {
	return e.op.Metadata()
}

func (e erased[T]) Rollback(ctx context.Context, data *DataContext, refs *ReferenceContext) error {
	return e.op.Rollback(ctx, data, refs)
}

// Erase converts an Op[T] into an Op[any], preserving metadata and rollback.
// Containers (Batch, Loop, triggers) compose over Op[any].
func Erase[T any](op Op[T]) Op[any] {
	if anyOp, ok := any(op).(Op[any]); ok {
		return anyOp
	}
	return erased[T]{op: op}
}

// Func is a leaf op built from closures. Name is required; RollbackFn and
// Meta are optional (rollback defaults to a no-op, metadata to just the name).
type Func[T any] struct {
	Name       string
	Meta       *OpMetadata
	PerformFn  func(ctx context.Context, data *DataContext, refs *ReferenceContext) (T, error)
	RollbackFn func(ctx context.Context, data *DataContext, refs *ReferenceContext) error
}

func (f *Func[T]) Perform(ctx context.Context, data *DataContext, refs *ReferenceContext) (T, error) {
	return f.PerformFn(ctx, data, refs)
}

func (f *Func[T]) Metadata() OpMetadata {
	if f.Meta != nil {
		return *f.Meta
	}
	return NewMetadata(f.Name).Build()
}

func (f *Func[T]) Rollback(ctx context.Context, data *DataContext, refs *ReferenceContext) error {
	if f.RollbackFn != nil {
		return f.RollbackFn(ctx, data, refs)
	}
	return nil
}
