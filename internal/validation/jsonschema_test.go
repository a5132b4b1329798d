package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaValidator_Conforming(t *testing.T) {
	v := NewSchemaValidator()
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":  map[string]any{"type": "string"},
			"count": map[string]any{"type": "integer", "minimum": 0},
		},
		"required": []any{"name"},
	}

	violations, err := v.Validate(map[string]any{"name": "alpha", "count": 3}, schema)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestSchemaValidator_ViolationsArePathPrefixed(t *testing.T) {
	v := NewSchemaValidator()
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"count": map[string]any{"type": "integer"},
		},
		"required": []any{"name"},
	}

	violations, err := v.Validate(map[string]any{"count": "three"}, schema)
	require.NoError(t, err)
	require.NotEmpty(t, violations)

	var sawCount bool
	for _, violation := range violations {
		if len(violation) >= 6 && violation[:6] == "/count" {
			sawCount = true
		}
	}
	assert.True(t, sawCount, "expected a /count-prefixed violation, got %v", violations)
}

func TestSchemaValidator_NestedViolation(t *testing.T) {
	v := NewSchemaValidator()
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"user": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"age": map[string]any{"type": "integer", "minimum": 0},
				},
			},
		},
	}

	violations, err := v.Validate(map[string]any{"user": map[string]any{"age": -1}}, schema)
	require.NoError(t, err)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "/user/age")
}

func TestSchemaValidator_NilSchemaAlwaysPasses(t *testing.T) {
	v := NewSchemaValidator()
	violations, err := v.Validate(map[string]any{"anything": true}, nil)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestSchemaValidator_BadSchemaIsAnError(t *testing.T) {
	v := NewSchemaValidator()
	_, err := v.Validate(map[string]any{}, map[string]any{"type": "not-a-type"})
	require.Error(t, err)
}

func TestSchemaValidator_CacheReusesCompiledSchemas(t *testing.T) {
	v := NewSchemaValidator()
	schema := map[string]any{"type": "object"}

	_, err := v.Validate(map[string]any{}, schema)
	require.NoError(t, err)
	_, err = v.Validate(map[string]any{"x": 1}, schema)
	require.NoError(t, err)
	assert.Len(t, v.cache, 1)
}
