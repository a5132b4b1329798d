package trigger

import (
	"context"
	"log/slog"

	"github.com/rendis/opkit/internal/logging"
	"github.com/rendis/opkit/pkg/ops"
)

// Engine holds two registries and drives trigger evaluation. Primary
// triggers are evaluated on every tick; secondary triggers are spawnable
// on demand (typically by other triggers' actions or by a fuse) but
// never ticked.
type Engine struct {
	primary   *Registry
	secondary *Registry
	logger    *slog.Logger
}

// NewEngine creates an engine with empty registries.
func NewEngine() *Engine {
	return &Engine{primary: NewRegistry(), secondary: NewRegistry()}
}

// WithLogger sets the engine's logger and propagates it to both registries.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	e.logger = logger
	e.primary.WithLogger(logger)
	e.secondary.WithLogger(logger)
	return e
}

func (e *Engine) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}

// Primary returns the ticked registry.
func (e *Engine) Primary() *Registry {
	return e.primary
}

// Secondary returns the on-demand registry.
func (e *Engine) Secondary() *Registry {
	return e.secondary
}

// Tick evaluates every primary trigger against the shared context pair.
// For each trigger whose predicate holds, the actions run in order; the
// first failing action aborts the remainder of the tick with a Trigger
// error naming the predicate. A failing predicate aborts the tick too,
// but its error propagates unchanged so the category (notably Aborted)
// survives. Later triggers in the same tick observe mutations made by
// earlier ones.
func (e *Engine) Tick(ctx context.Context, data *ops.DataContext, refs *ops.ReferenceContext) error {
	for _, t := range e.primary.SpawnAll() {
		predicate := t.Predicate()
		name := predicate.Metadata().Name
		tickCtx := logging.WithTrigger(ctx, t.Name())

		should, err := predicate.Perform(tickCtx, data, refs)
		if err != nil {
			return err
		}
		if !should {
			e.log().Debug("predicate not triggered", "predicate", name)
			continue
		}

		actions := t.Actions()
		e.log().Debug("predicate holds, running actions", "predicate", name, "actions", len(actions))
		for _, action := range actions {
			if _, err := action.Perform(tickCtx, data, refs); err != nil {
				return ops.TriggerErrf("Trigger action failed for predicate '%s': %s", name, err.Error())
			}
		}
		e.log().Info("completed actions for predicate", "predicate", name)
	}
	return nil
}

// Spawn creates a fresh instance of the named trigger, checking the
// primary registry first, then the secondary.
func (e *Engine) Spawn(name string) (Trigger, error) {
	if e.primary.IsRegistered(name) {
		return e.primary.Spawn(name)
	}
	if e.secondary.IsRegistered(name) {
		return e.secondary.Spawn(name)
	}
	return nil, ops.TriggerErrf("Trigger '%s' not found in either registry", name)
}

// Ignite consumes a fuse: validate its parameters, spawn the named
// trigger, and fire it against the fuse's own cloned parameter context
// merged over the engine-supplied base data. The base context is not
// mutated.
func (e *Engine) Ignite(ctx context.Context, fuse *ops.TriggerFuse, base *ops.DataContext, refs *ops.ReferenceContext) error {
	params, err := fuse.ValidatedParams()
	if err != nil {
		return err
	}
	t, err := e.Spawn(fuse.TriggerName)
	if err != nil {
		return err
	}

	// Deep-copy the base so nested values mutated by actions never
	// alias back into the engine's context.
	data := ops.NewDataContext()
	if base != nil {
		data = base.Clone()
	}
	data.Merge(params)

	e.log().Info("igniting fuse", "fuse", fuse.ID, "trigger", fuse.TriggerName)
	return Fire(logging.WithFuseID(ctx, fuse.ID), t, data, refs)
}
