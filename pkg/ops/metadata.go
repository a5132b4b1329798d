package ops

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Schema is a JSON-Schema-like structural descriptor: type, properties,
// required, numeric bounds. Deep conformance checks are delegated to an
// external schema engine (see the Validating wrapper); the ops package
// itself performs only shallow required-field checks.
type Schema = map[string]any

// OpMetadata is the immutable static descriptor of an op: its name and
// optional description plus the schemas of its data inputs, reference
// requirements, and output. Build one with NewMetadata; never mutate it
// after construction — wrappers only read it or derive modified copies.
type OpMetadata struct {
	Name            string
	Description     string
	InputSchema     Schema
	ReferenceSchema Schema
	OutputSchema    Schema
}

// MetadataBuilder is the fluent builder for OpMetadata.
type MetadataBuilder struct {
	md OpMetadata
}

// NewMetadata starts building metadata for an op with the given name.
func NewMetadata(name string) *MetadataBuilder {
	return &MetadataBuilder{md: OpMetadata{Name: name}}
}

// Description sets the human-readable description.
func (b *MetadataBuilder) Description(desc string) *MetadataBuilder {
	b.md.Description = desc
	return b
}

// InputSchema sets the schema the data context must satisfy before Perform.
func (b *MetadataBuilder) InputSchema(schema Schema) *MetadataBuilder {
	b.md.InputSchema = schema
	return b
}

// ReferenceSchema sets the schema describing required runtime references.
// Its required list names reference keys that must exist; properties are
// descriptive only.
func (b *MetadataBuilder) ReferenceSchema(schema Schema) *MetadataBuilder {
	b.md.ReferenceSchema = schema
	return b
}

// OutputSchema sets the schema of the value Perform produces.
func (b *MetadataBuilder) OutputSchema(schema Schema) *MetadataBuilder {
	b.md.OutputSchema = schema
	return b
}

// Build returns the finished metadata.
func (b *MetadataBuilder) Build() OpMetadata {
	return b.md
}

// ValidationIssue is a single validation error or warning.
type ValidationIssue struct {
	Field   string
	Message string
}

// ValidationReport is the outcome of a schema validation pass.
type ValidationReport struct {
	Valid    bool
	Errors   []ValidationIssue
	Warnings []ValidationIssue
}

// SuccessReport is the canonical empty valid report.
func SuccessReport() ValidationReport {
	return ValidationReport{Valid: true}
}

// FullyValid reports validity with zero warnings.
func (r ValidationReport) FullyValid() bool {
	return r.Valid && len(r.Warnings) == 0
}

// requiredFields extracts the string entries of a schema's required list.
func requiredFields(schema Schema) []string {
	if schema == nil {
		return nil
	}
	raw, ok := schema["required"]
	if !ok {
		return nil
	}
	var fields []string
	switch list := raw.(type) {
	case []string:
		fields = append(fields, list...)
	case []any:
		for _, f := range list {
			if s, ok := f.(string); ok {
				fields = append(fields, s)
			}
		}
	}
	return fields
}

// schemaProperties extracts a schema's properties map, or nil.
func schemaProperties(schema Schema) map[string]any {
	if schema == nil {
		return nil
	}
	props, _ := schema["properties"].(map[string]any)
	return props
}

// validateRequired checks that every required top-level field is present.
func validateRequired(schema Schema, has func(string) bool, missingMsg string) ValidationReport {
	var errs []ValidationIssue
	for _, field := range requiredFields(schema) {
		if !has(field) {
			errs = append(errs, ValidationIssue{
				Field:   field,
				Message: fmt.Sprintf(missingMsg, field),
			})
		}
	}
	return ValidationReport{Valid: len(errs) == 0, Errors: errs}
}

// ValidateDataContext shallow-checks the data context against the input
// schema: required top-level fields must be present. Structural conformance
// is not checked here.
func (m OpMetadata) ValidateDataContext(data *DataContext) ValidationReport {
	if m.InputSchema == nil {
		return SuccessReport()
	}
	return validateRequired(m.InputSchema, data.Contains, "Required field '%s' is missing")
}

// ValidateReferenceContext checks that every required reference exists.
func (m OpMetadata) ValidateReferenceContext(refs *ReferenceContext) ValidationReport {
	if m.ReferenceSchema == nil {
		return SuccessReport()
	}
	return validateRequired(m.ReferenceSchema, refs.Contains, "Required reference '%s' is missing")
}

// ValidateContexts validates both contexts and merges the reports.
func (m OpMetadata) ValidateContexts(data *DataContext, refs *ReferenceContext) ValidationReport {
	dataReport := m.ValidateDataContext(data)
	refReport := m.ValidateReferenceContext(refs)
	return ValidationReport{
		Valid:    dataReport.Valid && refReport.Valid,
		Errors:   append(dataReport.Errors, refReport.Errors...),
		Warnings: append(dataReport.Warnings, refReport.Warnings...),
	}
}

// ValidateOutput shallow-checks an output object against the output schema.
func (m OpMetadata) ValidateOutput(output map[string]any) ValidationReport {
	if m.OutputSchema == nil {
		return SuccessReport()
	}
	return validateRequired(m.OutputSchema, func(field string) bool {
		_, ok := output[field]
		return ok
	}, "Required field '%s' is missing")
}

// TriggerFuse is a deferred invocation request: a trigger name, an
// independently owned parameter context, and an optional metadata
// reference used to validate the parameters before the fuse is consumed.
type TriggerFuse struct {
	ID          string
	TriggerName string
	Params      *DataContext
	CreatedAt   time.Time
	Metadata    *OpMetadata
}

// NewTriggerFuse creates a fuse for the named trigger with empty parameters.
func NewTriggerFuse(triggerName string) *TriggerFuse {
	return &TriggerFuse{
		ID:          uuid.NewString(),
		TriggerName: triggerName,
		Params:      NewDataContext(),
		CreatedAt:   time.Now().UTC(),
	}
}

// WithParam adds a parameter and returns the fuse for chaining.
func (f *TriggerFuse) WithParam(key string, value any) *TriggerFuse {
	f.Params.Insert(key, value)
	return f
}

// WithMetadata attaches metadata used to validate the parameters.
func (f *TriggerFuse) WithMetadata(md OpMetadata) *TriggerFuse {
	f.Metadata = &md
	return f
}

// ValidatedParams validates the parameter context against the attached
// metadata (when present) and returns an independent clone of it.
func (f *TriggerFuse) ValidatedParams() (*DataContext, error) {
	if f.Metadata != nil {
		report := f.Metadata.ValidateDataContext(f.Params)
		if !report.Valid {
			return nil, ContextErrf("Invalid fuse params for trigger '%s': %v", f.TriggerName, report.Errors)
		}
	}
	return f.Params.Clone(), nil
}
