package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, OpName(ctx))

	ctx = WithOpName(ctx, "send-report")
	ctx = WithTrigger(ctx, "large-batch")
	ctx = WithFuseID(ctx, "f-123")

	assert.Equal(t, "send-report", OpName(ctx))
	assert.Equal(t, "large-batch", Trigger(ctx))
	assert.Equal(t, "f-123", FuseID(ctx))
}

func TestCorrelationHandler_InjectsIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithFuseID(WithTrigger(context.Background(), "large-batch"), "f-123")
	logger.InfoContext(ctx, "firing")

	out := buf.String()
	assert.Contains(t, out, "trigger=large-batch")
	assert.Contains(t, out, "fuse_id=f-123")
	assert.NotContains(t, out, "op=")
}

func TestCorrelationHandler_PlainContextAddsNothing(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewTextHandler(&buf, nil)))

	logger.Info("quiet")
	out := buf.String()
	assert.NotContains(t, out, "trigger=")
	assert.NotContains(t, out, "fuse_id=")
}

func TestLogWith(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithOpName(context.Background(), "indexer")
	LogWith(ctx, base).Info("working")

	assert.Contains(t, buf.String(), "op=indexer")
}
