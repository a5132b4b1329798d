package ops

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpError_Messages(t *testing.T) {
	assert.Equal(t, "Op execution failed: boom", ExecutionFailed("boom").Error())
	assert.Equal(t, "Op timeout after 250ms", TimeoutError(250).Error())
	assert.Equal(t, "Context error: missing key", ContextErr("missing key").Error())
	assert.Equal(t, "Batch op failed: step 2", BatchFailed("step 2").Error())
	assert.Equal(t, "Op aborted: user request", Aborted("user request").Error())
	assert.Equal(t, "Trigger error: no factory", TriggerErr("no factory").Error())
	assert.Equal(t, "disk full", Other(errors.New("disk full")).Error())
}

func TestOpError_CloneOtherBecomesExecutionFailed(t *testing.T) {
	orig := Other(errors.New("io: short write"))
	clone := orig.Clone()

	assert.Equal(t, KindExecutionFailed, clone.Kind)
	assert.Equal(t, "io: short write", clone.Message)
	// The original is untouched.
	assert.Equal(t, KindOther, orig.Kind)
}

func TestOpError_ClonePreservesKind(t *testing.T) {
	orig := TimeoutError(500)
	clone := orig.Clone()

	assert.Equal(t, KindTimeout, clone.Kind)
	assert.Equal(t, int64(500), clone.TimeoutMS)
	assert.NotSame(t, orig, clone)
}

func TestWrapWithOpName(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
		wantMsg  string
	}{
		{
			name:     "execution failed keeps kind",
			err:      ExecutionFailed("boom"),
			wantKind: KindExecutionFailed,
			wantMsg:  "Op execution failed: Op 'job' failed: boom",
		},
		{
			name:     "timeout becomes execution failed",
			err:      TimeoutError(120),
			wantKind: KindExecutionFailed,
			wantMsg:  "Op execution failed: Op 'job' timed out after 120ms",
		},
		{
			name:     "context keeps kind",
			err:      ContextErr("no key"),
			wantKind: KindContext,
			wantMsg:  "Context error: Op 'job' context error: no key",
		},
		{
			name:     "batch keeps kind",
			err:      BatchFailed("step 1 broke"),
			wantKind: KindBatchFailed,
			wantMsg:  "Batch op failed: Batch op 'job' failed: step 1 broke",
		},
		{
			name:     "aborted keeps kind",
			err:      Aborted("user said stop"),
			wantKind: KindAborted,
			wantMsg:  "Op aborted: Op 'job' aborted: user said stop",
		},
		{
			name:     "trigger keeps kind",
			err:      TriggerErr("bad predicate"),
			wantKind: KindTrigger,
			wantMsg:  "Trigger error: Op 'job' internal error: bad predicate",
		},
		{
			name:     "other becomes execution failed",
			err:      Other(errors.New("raw failure")),
			wantKind: KindExecutionFailed,
			wantMsg:  "Op execution failed: Op 'job' failed: raw failure",
		},
		{
			name:     "foreign error becomes execution failed",
			err:      errors.New("plain"),
			wantKind: KindExecutionFailed,
			wantMsg:  "Op execution failed: Op 'job' failed: plain",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapWithOpName("job", tt.err)
			assert.Equal(t, tt.wantKind, wrapped.Kind)
			assert.Equal(t, tt.wantMsg, wrapped.Error())
		})
	}
}

func TestAsOpErrorAndIsAborted(t *testing.T) {
	require.Nil(t, AsOpError(errors.New("plain")))

	wrapped := Other(Aborted("stop"))
	assert.True(t, IsAborted(Aborted("stop")))
	assert.False(t, IsAborted(ExecutionFailed("x")))
	// AsOpError stops at the outermost OpError in the chain.
	assert.Equal(t, KindOther, AsOpError(wrapped).Kind)
}
