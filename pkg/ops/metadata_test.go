package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataBuilder(t *testing.T) {
	md := NewMetadata("fetch-user").
		Description("Loads a user record").
		InputSchema(Schema{
			"type":       "object",
			"properties": map[string]any{"user_id": map[string]any{"type": "string"}},
			"required":   []string{"user_id"},
		}).
		ReferenceSchema(Schema{
			"type":     "object",
			"required": []string{"db"},
		}).
		OutputSchema(Schema{
			"type":     "object",
			"required": []string{"user"},
		}).
		Build()

	assert.Equal(t, "fetch-user", md.Name)
	assert.Equal(t, "Loads a user record", md.Description)
	assert.Contains(t, md.InputSchema, "properties")
}

func TestOpMetadata_ShallowValidation(t *testing.T) {
	md := NewMetadata("op").
		InputSchema(Schema{"required": []string{"a", "b"}}).
		ReferenceSchema(Schema{"required": []string{"db"}}).
		Build()

	data := NewDataContext().With("a", 1)
	refs := NewReferenceContext()

	report := md.ValidateDataContext(data)
	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, "b", report.Errors[0].Field)
	assert.Equal(t, "Required field 'b' is missing", report.Errors[0].Message)

	combined := md.ValidateContexts(data, refs)
	assert.False(t, combined.Valid)
	assert.Len(t, combined.Errors, 2)

	data.Insert("b", 2)
	refs.InsertRef("db", struct{}{})
	assert.True(t, md.ValidateContexts(data, refs).FullyValid())
}

func TestOpMetadata_NilSchemasAlwaysValid(t *testing.T) {
	md := NewMetadata("bare").Build()
	assert.True(t, md.ValidateDataContext(NewDataContext()).Valid)
	assert.True(t, md.ValidateReferenceContext(NewReferenceContext()).Valid)
	assert.True(t, md.ValidateOutput(nil).Valid)
}

func TestOpMetadata_ValidateOutput(t *testing.T) {
	md := NewMetadata("op").
		OutputSchema(Schema{"required": []any{"result"}}).
		Build()

	assert.False(t, md.ValidateOutput(map[string]any{}).Valid)
	assert.True(t, md.ValidateOutput(map[string]any{"result": 1}).Valid)
}

func TestTriggerFuse_ValidatedParams(t *testing.T) {
	fuse := NewTriggerFuse("reindex").
		WithParam("index", "orders").
		WithMetadata(NewMetadata("reindex").
			InputSchema(Schema{"required": []string{"index"}}).
			Build())

	require.NotEmpty(t, fuse.ID)
	require.False(t, fuse.CreatedAt.IsZero())

	params, err := fuse.ValidatedParams()
	require.NoError(t, err)

	// The returned params are a clone, not the fuse's own context.
	params.Insert("extra", true)
	assert.False(t, fuse.Params.Contains("extra"))
}

func TestTriggerFuse_InvalidParams(t *testing.T) {
	fuse := NewTriggerFuse("reindex").
		WithMetadata(NewMetadata("reindex").
			InputSchema(Schema{"required": []string{"index"}}).
			Build())

	_, err := fuse.ValidatedParams()
	require.Error(t, err)
	opErr := AsOpError(err)
	require.NotNil(t, opErr)
	assert.Equal(t, KindContext, opErr.Kind)
	assert.Contains(t, err.Error(), "Invalid fuse params for trigger 'reindex'")
}
