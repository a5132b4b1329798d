package trigger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/opkit/pkg/ops"
)

func truePredicate() ops.Op[bool] {
	return &ops.Func[bool]{
		Name: "always",
		PerformFn: func(ctx context.Context, data *ops.DataContext, refs *ops.ReferenceContext) (bool, error) {
			return true, nil
		},
	}
}

func namedFactory(name string) Factory {
	return func() Trigger {
		return &Func{TriggerName: name, Pred: truePredicate()}
	}
}

func TestRegistry_SetAndSpawn(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Set(namedFactory("alpha")))
	require.NoError(t, r.Set(namedFactory("beta")))

	assert.Equal(t, 2, r.Len())
	assert.True(t, r.IsRegistered("alpha"))

	spawned, err := r.Spawn("alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", spawned.Name())

	// Each spawn is a fresh instance.
	other, err := r.Spawn("alpha")
	require.NoError(t, err)
	assert.NotSame(t, spawned, other)
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Set(namedFactory("alpha")))

	err := r.Set(namedFactory("alpha"))
	require.Error(t, err)
	opErr := ops.AsOpError(err)
	require.NotNil(t, opErr)
	assert.Equal(t, ops.KindTrigger, opErr.Kind)
	assert.Equal(t, "Trigger error: Trigger type alpha is already registered", err.Error())
}

func TestRegistry_SpawnUnknown(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Set(namedFactory("alpha")))

	_, err := r.Spawn("missing")
	require.Error(t, err)
	assert.Equal(t,
		"Trigger error: No trigger registered for trigger name: missing, Registered triggers: [alpha]",
		err.Error())
}

func TestRegistry_SpawnAllPreservesOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, r.Set(namedFactory(name)))
	}

	var names []string
	for _, trig := range r.SpawnAll() {
		names = append(names, trig.Name())
	}
	assert.Equal(t, []string{"c", "a", "b"}, names)
	assert.Equal(t, []string{"c", "a", "b"}, r.Names())
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Set(namedFactory("alpha")))
	require.NoError(t, r.Set(namedFactory("beta")))

	assert.True(t, r.Unregister("alpha"))
	assert.False(t, r.Unregister("alpha"))
	assert.Equal(t, []string{"beta"}, r.Names())
}
