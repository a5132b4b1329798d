// Package trigger provides the reactive layer of the engine: triggers
// pair a boolean predicate op with a list of action ops, registries map
// names to trigger factories, and the Engine evaluates all registered
// triggers on each tick.
package trigger

import (
	"context"
	"fmt"

	"github.com/rendis/opkit/pkg/ops"
)

// Trigger pairs a predicate with actions: when the predicate evaluates
// true against the tick's context pair, the actions run.
type Trigger interface {
	Name() string
	Predicate() ops.Op[bool]
	Actions() []ops.Op[any]
}

// Fire evaluates t's predicate and, when it holds, runs the actions as
// a Batch (LIFO rollback on failure). A false predicate is a silent no-op.
func Fire(ctx context.Context, t Trigger, data *ops.DataContext, refs *ops.ReferenceContext) error {
	should, err := t.Predicate().Perform(ctx, data, refs)
	if err != nil {
		return err
	}
	if !should {
		return nil
	}
	batch := ops.NewBatch(t.Actions()...)
	_, err = batch.Perform(ctx, data, refs)
	return err
}

// Func is a concrete Trigger built from parts.
type Func struct {
	TriggerName string
	Pred        ops.Op[bool]
	Acts        []ops.Op[any]
}

func (t *Func) Name() string            { return t.TriggerName }
func (t *Func) Predicate() ops.Op[bool] { return t.Pred }
func (t *Func) Actions() []ops.Op[any]  { return t.Acts }

// triggerOp adapts a Trigger to the Op contract so triggers nest inside
// batches and loops like any other op.
type triggerOp struct {
	t Trigger
}

// AsOp returns t as an Op[any]; its perform result is nil.
func AsOp(t Trigger) ops.Op[any] {
	return triggerOp{t: t}
}

func (o triggerOp) Perform(ctx context.Context, data *ops.DataContext, refs *ops.ReferenceContext) (any, error) {
	return nil, Fire(ctx, o.t, data, refs)
}

func (o triggerOp) Metadata() ops.OpMetadata {
	name := fmt.Sprintf("Trigger %s with %d actions", o.t.Name(), len(o.t.Actions()))
	return ops.NewMetadata(name).Build()
}

func (o triggerOp) Rollback(ctx context.Context, data *ops.DataContext, refs *ops.ReferenceContext) error {
	return nil
}
