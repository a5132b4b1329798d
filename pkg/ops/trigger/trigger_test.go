package trigger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/opkit/pkg/ops"
)

func TestFire_FalsePredicateIsSilent(t *testing.T) {
	var journal []string
	trig := &Func{
		TriggerName: "quiet",
		Pred:        flagPredicate("quiet?", "never-set"),
		Acts:        []ops.Op[any]{appendAction(&journal, "action")},
	}

	require.NoError(t, Fire(context.Background(), trig, ops.NewDataContext(), ops.NewReferenceContext()))
	assert.Empty(t, journal)
}

func TestFire_ActionsRunAsBatch(t *testing.T) {
	var journal []string
	rollbackTracked := ops.Erase[any](&ops.Func[any]{
		Name: "tracked",
		PerformFn: func(ctx context.Context, data *ops.DataContext, refs *ops.ReferenceContext) (any, error) {
			journal = append(journal, "perform:tracked")
			return nil, nil
		},
		RollbackFn: func(ctx context.Context, data *ops.DataContext, refs *ops.ReferenceContext) error {
			journal = append(journal, "rollback:tracked")
			return nil
		},
	})
	trig := &Func{
		TriggerName: "compensating",
		Pred:        truePredicate(),
		Acts:        []ops.Op[any]{rollbackTracked, failingAction("explode", "second action broke")},
	}

	err := Fire(context.Background(), trig, ops.NewDataContext(), ops.NewReferenceContext())
	require.Error(t, err)
	// The succeeded action is compensated by the batch.
	assert.Equal(t, []string{"perform:tracked", "rollback:tracked"}, journal)
}

func TestAsOp_NestsInsideBatch(t *testing.T) {
	var journal []string
	trig := &Func{
		TriggerName: "nested",
		Pred:        truePredicate(),
		Acts:        []ops.Op[any]{appendAction(&journal, "fired")},
	}

	batch := ops.NewBatch(AsOp(trig))
	md := batch.Metadata()
	assert.Equal(t, "Batch", md.Name)

	results, err := batch.Perform(context.Background(), ops.NewDataContext(), ops.NewReferenceContext())
	require.NoError(t, err)
	assert.Equal(t, []any{nil}, results)
	assert.Equal(t, []string{"fired"}, journal)

	assert.Equal(t, "Trigger nested with 1 actions", AsOp(trig).Metadata().Name)
}
