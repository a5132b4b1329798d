package ops

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogging_PassthroughOnSuccess(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var journal []string
	inner := &recordingOp{name: "inner", journal: &journal, result: "ok"}
	wrapped := NewLogging[any](inner, "send-report").WithLogger(logger)

	result, err := wrapped.Perform(context.Background(), NewDataContext(), NewReferenceContext())
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	out := buf.String()
	assert.Contains(t, out, "starting op")
	assert.Contains(t, out, "op completed")
	assert.Contains(t, out, "op=send-report")
}

func TestLogging_WrapsFailureWithOpName(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var journal []string
	inner := &recordingOp{name: "inner", journal: &journal, performErr: ExecutionFailed("boom")}
	wrapped := NewLogging[any](inner, "send-report").WithLogger(logger)

	_, err := wrapped.Perform(context.Background(), NewDataContext(), NewReferenceContext())
	require.Error(t, err)
	assert.Equal(t, "Op execution failed: Op 'send-report' failed: boom", err.Error())
	assert.Contains(t, buf.String(), "op failed")
}

func TestLogging_MetadataAndRollbackDelegate(t *testing.T) {
	var journal []string
	inner := &recordingOp{name: "inner", journal: &journal}
	wrapped := NewLogging[any](inner, "display")

	assert.Equal(t, "inner", wrapped.Metadata().Name)
	require.NoError(t, wrapped.Rollback(context.Background(), NewDataContext(), NewReferenceContext()))
	assert.Equal(t, []string{"rollback:inner"}, journal)
}
