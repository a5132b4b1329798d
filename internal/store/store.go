// Package store provides libSQL-backed persistence for the engine's two
// durable artifacts: named data-context snapshots (serialized at workflow
// boundaries) and the trigger fuse queue (deferred invocations that must
// survive a restart). It is not an execution log and replays nothing.
package store

import (
	"context"
	"time"
)

// Snapshot is a named serialized data context.
type Snapshot struct {
	Name      string
	Payload   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FuseRecord is a durable deferred trigger invocation.
type FuseRecord struct {
	ID          string
	TriggerName string
	Params      []byte
	CreatedAt   time.Time
	ConsumedAt  *time.Time
}

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Context snapshots
	SaveSnapshot(ctx context.Context, name string, payload []byte) error
	GetSnapshot(ctx context.Context, name string) (*Snapshot, error)
	ListSnapshots(ctx context.Context) ([]string, error)
	DeleteSnapshot(ctx context.Context, name string) error

	// Fuse queue
	EnqueueFuse(ctx context.Context, fuse *FuseRecord) error
	PendingFuses(ctx context.Context) ([]*FuseRecord, error)
	MarkFuseConsumed(ctx context.Context, id string) error

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}
