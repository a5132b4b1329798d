package trigger

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rendis/opkit/pkg/ops"
)

// FuseQueue is the durable fuse backlog the engine drains on startup and
// between ticks. Satisfied by the libSQL store.
type FuseQueue interface {
	EnqueueFuse(ctx context.Context, fuse *StoredFuse) error
	PendingFuses(ctx context.Context) ([]*StoredFuse, error)
	MarkFuseConsumed(ctx context.Context, id string) error
}

// StoredFuse is the wire form of a fuse held in the queue.
type StoredFuse struct {
	ID          string
	TriggerName string
	Params      []byte
	CreatedAt   time.Time
	ConsumedAt  *time.Time
}

// StoreFuse serializes a fuse's parameter context and enqueues it.
func StoreFuse(ctx context.Context, queue FuseQueue, fuse *ops.TriggerFuse) error {
	params, err := json.Marshal(fuse.Params)
	if err != nil {
		return ops.ContextErrf("serialize fuse params for trigger '%s': %s", fuse.TriggerName, err.Error())
	}
	return queue.EnqueueFuse(ctx, &StoredFuse{
		ID:          fuse.ID,
		TriggerName: fuse.TriggerName,
		Params:      params,
		CreatedAt:   fuse.CreatedAt,
	})
}

// DrainFuses ignites every pending fuse in enqueue order and marks each
// consumed once its trigger fired. A failing fuse is logged and left
// pending so a later drain retries it; draining continues with the rest.
func (e *Engine) DrainFuses(ctx context.Context, queue FuseQueue, base *ops.DataContext, refs *ops.ReferenceContext) error {
	pending, err := queue.PendingFuses(ctx)
	if err != nil {
		return ops.TriggerErrf("list pending fuses: %s", err.Error())
	}

	for _, stored := range pending {
		params, err := ops.ParseDataContext(stored.Params)
		if err != nil {
			e.log().Error("skipping fuse with unreadable params",
				"fuse", stored.ID, "trigger", stored.TriggerName, "error", err)
			continue
		}
		fuse := &ops.TriggerFuse{
			ID:          stored.ID,
			TriggerName: stored.TriggerName,
			Params:      params,
			CreatedAt:   stored.CreatedAt,
		}

		if err := e.Ignite(ctx, fuse, base, refs); err != nil {
			e.log().Error("fuse ignition failed",
				"fuse", stored.ID, "trigger", stored.TriggerName, "error", err)
			continue
		}
		if err := queue.MarkFuseConsumed(ctx, stored.ID); err != nil {
			e.log().Error("failed to mark fuse consumed",
				"fuse", stored.ID, slog.Any("error", err))
		}
	}
	return nil
}
