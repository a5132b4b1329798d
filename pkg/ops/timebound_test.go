package ops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeBound_FastOpPasses(t *testing.T) {
	var journal []string
	inner := &recordingOp{name: "fast", journal: &journal, result: 42}
	bounded := NewTimeBound[any](inner, time.Second)

	result, err := bounded.Perform(context.Background(), NewDataContext(), NewReferenceContext())
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestTimeBound_SlowOpTimesOut(t *testing.T) {
	slow := &Func[any]{
		Name: "slow",
		PerformFn: func(ctx context.Context, data *DataContext, refs *ReferenceContext) (any, error) {
			select {
			case <-time.After(5 * time.Second):
				return "too late", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
	bounded := NewTimeBound[any](slow, 20*time.Millisecond).WithWarnOnTimeout(false)

	_, err := bounded.Perform(context.Background(), NewDataContext(), NewReferenceContext())
	require.Error(t, err)
	opErr := AsOpError(err)
	require.NotNil(t, opErr)
	assert.Equal(t, KindTimeout, opErr.Kind)
	assert.Equal(t, int64(20), opErr.TimeoutMS)
	assert.Equal(t, "Op timeout after 20ms", err.Error())
}

func TestTimeBound_DeadlineErrorFromInnerOpReportsTimeout(t *testing.T) {
	// An inner op that fails with the propagated deadline makes both
	// select cases ready; the outcome must still be the timeout error.
	deadlineBound := &Func[any]{
		Name: "ctx-bound",
		PerformFn: func(ctx context.Context, data *DataContext, refs *ReferenceContext) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	bounded := NewTimeBound[any](deadlineBound, 10*time.Millisecond).WithWarnOnTimeout(false)

	_, err := bounded.Perform(context.Background(), NewDataContext(), NewReferenceContext())
	require.Error(t, err)
	opErr := AsOpError(err)
	require.NotNil(t, opErr)
	assert.Equal(t, KindTimeout, opErr.Kind)
	assert.Equal(t, "Op timeout after 10ms", err.Error())
}

func TestTimeBound_InnerErrorPropagates(t *testing.T) {
	var journal []string
	inner := &recordingOp{name: "broken", journal: &journal, performErr: ExecutionFailed("boom")}
	bounded := NewTimeBound[any](inner, time.Second)

	_, err := bounded.Perform(context.Background(), NewDataContext(), NewReferenceContext())
	require.Error(t, err)
	assert.Equal(t, "Op execution failed: boom", err.Error())
}

func TestTimeBound_MetadataDerivesDescription(t *testing.T) {
	var journal []string
	inner := &recordingOp{name: "fetch", journal: &journal}

	unnamed := NewTimeBound[any](inner, 500*time.Millisecond)
	assert.Empty(t, unnamed.Metadata().Description)

	named := NewTimeBound[any](inner, 500*time.Millisecond).WithName("fetch-bounded")
	assert.Equal(t, "fetch-bounded (timeout: 500ms)", named.Metadata().Description)
	// The inner metadata stays untouched.
	assert.Empty(t, inner.Metadata().Description)
}
