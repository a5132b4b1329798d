package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rendis/opkit/pkg/ops"
)

// TickLoop drives Engine.Tick on a cron schedule against one shared
// context pair. One tick runs at a time; a tick still in flight when the
// next cron instant arrives causes that instant to be skipped.
type TickLoop struct {
	engine   *Engine
	schedule cron.Schedule
	data     *ops.DataContext
	refs     *ops.ReferenceContext
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTickLoop creates a loop ticking the engine per cronExpr (standard
// five-field cron syntax) against the given context pair.
func NewTickLoop(engine *Engine, cronExpr string, data *ops.DataContext, refs *ops.ReferenceContext, logger *slog.Logger) (*TickLoop, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TickLoop{
		engine:   engine,
		schedule: schedule,
		data:     data,
		refs:     refs,
		logger:   logger,
	}, nil
}

// Start launches the background loop.
func (l *TickLoop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.done != nil {
		l.mu.Unlock()
		return fmt.Errorf("tick loop already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.mu.Unlock()

	go l.loop(loopCtx)
	l.logger.Info("tick loop started")
	return nil
}

func (l *TickLoop) loop(ctx context.Context) {
	defer close(l.done)

	for {
		next := l.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			if err := l.engine.Tick(ctx, l.data, l.refs); err != nil {
				l.logger.Error("tick failed", "error", err)
			}
		}
	}
}

// Stop gracefully shuts down the loop, waiting for an in-flight tick.
func (l *TickLoop) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel == nil {
		return nil
	}

	l.cancel()
	<-l.done
	l.cancel = nil
	l.done = nil

	l.logger.Info("tick loop stopped")
	return nil
}
