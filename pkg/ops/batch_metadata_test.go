package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metaOp(journal *[]string, md OpMetadata) *recordingOp {
	return &recordingOp{name: md.Name, meta: &md, journal: journal}
}

func TestBatchMetadata_InternalFlowNotRequired(t *testing.T) {
	var journal []string
	producer := metaOp(&journal, NewMetadata("producer").
		InputSchema(Schema{
			"properties": map[string]any{"seed": map[string]any{"type": "number"}},
			"required":   []string{"seed"},
		}).
		OutputSchema(Schema{
			"properties": map[string]any{"derived": map[string]any{"type": "string"}},
		}).
		Build())
	consumer := metaOp(&journal, NewMetadata("consumer").
		InputSchema(Schema{
			"properties": map[string]any{"derived": map[string]any{"type": "string"}},
			"required":   []string{"derived"},
		}).
		Build())

	md := NewBatch(producer, consumer).Metadata()

	assert.Equal(t, "Batch", md.Name)
	assert.Equal(t, "Batch of 2 operations with data flow analysis", md.Description)
	// "derived" is produced internally; only "seed" surfaces.
	assert.Equal(t, []string{"seed"}, md.InputSchema["required"])
	props := md.InputSchema["properties"].(map[string]any)
	assert.Contains(t, props, "seed")
	assert.NotContains(t, props, "derived")
}

func TestBatchMetadata_OrderingMakesFieldExternal(t *testing.T) {
	var journal []string
	consumer := metaOp(&journal, NewMetadata("consumer").
		InputSchema(Schema{
			"properties": map[string]any{"derived": map[string]any{"type": "string"}},
			"required":   []string{"derived"},
		}).
		Build())
	producer := metaOp(&journal, NewMetadata("producer").
		OutputSchema(Schema{
			"properties": map[string]any{"derived": map[string]any{"type": "string"}},
		}).
		Build())

	// Consumer runs before its producer, so the field must come from outside.
	md := NewBatch(consumer, producer).Metadata()
	assert.Equal(t, []string{"derived"}, md.InputSchema["required"])
}

func TestBatchMetadata_BareStringOutputSatisfiesResult(t *testing.T) {
	var journal []string
	producer := metaOp(&journal, NewMetadata("render").
		OutputSchema(Schema{"type": "string"}).
		Build())
	consumer := metaOp(&journal, NewMetadata("ship").
		InputSchema(Schema{
			"properties": map[string]any{"result": map[string]any{"type": "string"}},
			"required":   []string{"result"},
		}).
		Build())

	md := NewBatch(producer, consumer).Metadata()
	assert.Empty(t, md.InputSchema["required"])
}

func TestBatchMetadata_ReferenceUnion(t *testing.T) {
	var journal []string
	a := metaOp(&journal, NewMetadata("a").
		ReferenceSchema(Schema{
			"properties": map[string]any{"db": map[string]any{"description": "primary"}},
			"required":   []string{"db"},
		}).
		Build())
	b := metaOp(&journal, NewMetadata("b").
		ReferenceSchema(Schema{
			"properties": map[string]any{
				"db":    map[string]any{"description": "secondary"},
				"cache": map[string]any{},
			},
			"required": []string{"db", "cache"},
		}).
		Build())

	md := NewBatch(a, b).Metadata()
	assert.Equal(t, []string{"db", "cache"}, md.ReferenceSchema["required"])
	props := md.ReferenceSchema["properties"].(map[string]any)
	// First declaration wins.
	assert.Equal(t, map[string]any{"description": "primary"}, props["db"])
}

func TestBatchMetadata_FixedLengthOutput(t *testing.T) {
	var journal []string
	md := NewBatch(
		metaOp(&journal, NewMetadata("a").Build()),
		metaOp(&journal, NewMetadata("b").Build()),
		metaOp(&journal, NewMetadata("c").Build()),
	).Metadata()

	require.Equal(t, "array", md.OutputSchema["type"])
	assert.Equal(t, 3, md.OutputSchema["minItems"])
	assert.Equal(t, 3, md.OutputSchema["maxItems"])
}

func TestBatchMetadata_EmptyBatch(t *testing.T) {
	md := NewBatch().Metadata()
	assert.Equal(t, []string{}, md.InputSchema["required"])
	assert.Equal(t, 0, md.OutputSchema["minItems"])
}
