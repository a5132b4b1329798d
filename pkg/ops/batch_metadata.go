package ops

import "fmt"

// buildBatchMetadata derives a batch's descriptor from its children by
// analyzing left-to-right data flow: a required input satisfied by an
// earlier op's output is internal plumbing and does not surface in the
// batch's own input schema.
func buildBatchMetadata(ops []Op[any]) OpMetadata {
	children := make([]OpMetadata, len(ops))
	for i, op := range ops {
		children[i] = op.Metadata()
	}
	return NewMetadata("Batch").
		Description(fmt.Sprintf("Batch of %d operations with data flow analysis", len(children))).
		InputSchema(inferBatchInputSchema(children)).
		ReferenceSchema(mergeReferenceSchemas(children)).
		OutputSchema(batchOutputSchema(len(children))).
		Build()
}

// inferBatchInputSchema computes the externally required inputs: walk
// the ops in execution order, collect each op's required fields not yet
// produced by a predecessor, then accumulate that op's declared outputs
// into the available set. Ordering matters — a consumer placed before
// its producer makes the field external.
func inferBatchInputSchema(children []OpMetadata) Schema {
	required := make(map[string]bool)
	available := make(map[string]bool)

	for _, md := range children {
		for _, field := range requiredFields(md.InputSchema) {
			if !available[field] {
				required[field] = true
			}
		}
		for field := range outputFields(md.OutputSchema) {
			available[field] = true
		}
	}

	// Property definitions come from the first op that declares each
	// required field.
	properties := make(map[string]any)
	var requiredList []string
	for _, md := range children {
		for field, fieldSchema := range schemaProperties(md.InputSchema) {
			if required[field] {
				if _, seen := properties[field]; !seen {
					properties[field] = fieldSchema
					requiredList = append(requiredList, field)
				}
			}
		}
	}
	if requiredList == nil {
		requiredList = []string{}
	}

	return Schema{
		"type":                 "object",
		"properties":           properties,
		"required":             requiredList,
		"additionalProperties": false,
	}
}

// outputFields extracts the field names an output schema contributes to
// the data context. An object schema contributes its property names; a
// bare string schema contributes the synthetic "result" field.
func outputFields(schema Schema) map[string]bool {
	fields := make(map[string]bool)
	if schema == nil {
		return fields
	}
	if props := schemaProperties(schema); props != nil {
		for name := range props {
			fields[name] = true
		}
		return fields
	}
	if t, _ := schema["type"].(string); t == "string" {
		fields["result"] = true
	}
	return fields
}

// mergeReferenceSchemas unions the children's reference requirements:
// first declaration of each property wins, required sets are unioned.
// No ordering analysis — references are never produced by ops.
func mergeReferenceSchemas(children []OpMetadata) Schema {
	properties := make(map[string]any)
	requiredSet := make(map[string]bool)
	var requiredList []string

	for _, md := range children {
		for key, value := range schemaProperties(md.ReferenceSchema) {
			if _, seen := properties[key]; !seen {
				properties[key] = value
			}
		}
		for _, field := range requiredFields(md.ReferenceSchema) {
			if !requiredSet[field] {
				requiredSet[field] = true
				requiredList = append(requiredList, field)
			}
		}
	}
	if requiredList == nil {
		requiredList = []string{}
	}

	return Schema{
		"type":                 "object",
		"properties":           properties,
		"required":             requiredList,
		"additionalProperties": false,
	}
}

// batchOutputSchema is a fixed-length array: one item per child op.
func batchOutputSchema(n int) Schema {
	return Schema{
		"type": "array",
		"items": map[string]any{
			"type":        "object",
			"description": "Output from individual ops in the batch",
		},
		"minItems": n,
		"maxItems": n,
	}
}
