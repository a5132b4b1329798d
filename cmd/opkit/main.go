package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rendis/opkit/internal/logging"
	"github.com/rendis/opkit/internal/store"
	"github.com/rendis/opkit/pkg/mcp"
	"github.com/rendis/opkit/pkg/ops"
	"github.com/rendis/opkit/pkg/ops/trigger"
)

func main() {
	cfg := loadConfig()
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("opkit exited with error", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(logging.NewCorrelationHandler(handler))
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(opkitDir(), 0o755); err != nil {
		return err
	}

	st, err := store.NewLibSQLStore("file:" + cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	// Restore the shared context pair from the last snapshot, if any.
	data := ops.NewDataContext()
	if snap, err := st.GetSnapshot(ctx, cfg.SnapshotName); err == nil {
		if restored, parseErr := ops.ParseDataContext(snap.Payload); parseErr == nil {
			data = restored
			logger.Info("restored context snapshot", "name", cfg.SnapshotName, "keys", data.Len())
		} else {
			logger.Warn("stored snapshot unreadable, starting fresh", "name", cfg.SnapshotName, "error", parseErr)
		}
	}
	refs := ops.NewReferenceContext().
		WithRef("store", st).
		WithRef("logger", logger)

	engine := trigger.NewEngine().WithLogger(logger)
	queue := &fuseQueue{store: st}

	// Drain fuses left over from a previous run before the loop starts.
	if err := engine.DrainFuses(ctx, queue, data, refs); err != nil {
		logger.Error("startup fuse drain failed", "error", err)
	}

	loop, err := trigger.NewTickLoop(engine, cfg.TickCron, data, refs, logger)
	if err != nil {
		return err
	}
	if err := loop.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = loop.Stop() }()

	if cfg.MCP {
		srv := mcp.NewServer(mcp.ServerDeps{
			Engine: engine,
			Data:   data,
			Refs:   refs,
			Queue:  queue,
			Logger: logger,
		})
		if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
			return err
		}
	} else {
		<-ctx.Done()
	}

	// Persist the data context on shutdown.
	payload, err := json.Marshal(data)
	if err == nil {
		saveCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := st.SaveSnapshot(saveCtx, cfg.SnapshotName, payload); err != nil {
			logger.Error("failed to save context snapshot", "error", err)
		} else {
			logger.Info("saved context snapshot", "name", cfg.SnapshotName)
		}
	}
	return nil
}

// fuseQueue adapts the store's fuse records to the trigger package's
// queue contract.
type fuseQueue struct {
	store store.Store
}

func (q *fuseQueue) EnqueueFuse(ctx context.Context, fuse *trigger.StoredFuse) error {
	return q.store.EnqueueFuse(ctx, &store.FuseRecord{
		ID:          fuse.ID,
		TriggerName: fuse.TriggerName,
		Params:      fuse.Params,
		CreatedAt:   fuse.CreatedAt,
	})
}

func (q *fuseQueue) PendingFuses(ctx context.Context) ([]*trigger.StoredFuse, error) {
	records, err := q.store.PendingFuses(ctx)
	if err != nil {
		return nil, err
	}
	fuses := make([]*trigger.StoredFuse, len(records))
	for i, rec := range records {
		fuses[i] = &trigger.StoredFuse{
			ID:          rec.ID,
			TriggerName: rec.TriggerName,
			Params:      rec.Params,
			CreatedAt:   rec.CreatedAt,
			ConsumedAt:  rec.ConsumedAt,
		}
	}
	return fuses, nil
}

func (q *fuseQueue) MarkFuseConsumed(ctx context.Context, id string) error {
	return q.store.MarkFuseConsumed(ctx, id)
}
