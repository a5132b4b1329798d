package ops

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rendis/opkit/internal/validation"
)

// Validating wraps an op with deep JSON Schema validation of its inputs
// and outputs per the wrapped op's metadata. Reference requirements are
// checked on EVERY perform regardless of the input/output toggles —
// missing references are pre-condition failures, not schema violations.
type Validating[T any] struct {
	op             Op[T]
	validateInput  bool
	validateOutput bool
	validator      *validation.SchemaValidator
}

// NewValidating wraps op with both input and output validation enabled.
func NewValidating[T any](op Op[T]) *Validating[T] {
	return &Validating[T]{
		op:             op,
		validateInput:  true,
		validateOutput: true,
		validator:      validation.NewSchemaValidator(),
	}
}

// InputOnly disables output validation.
func (w *Validating[T]) InputOnly() *Validating[T] {
	w.validateInput = true
	w.validateOutput = false
	return w
}

// OutputOnly disables input validation.
func (w *Validating[T]) OutputOnly() *Validating[T] {
	w.validateInput = false
	w.validateOutput = true
	return w
}

func (w *Validating[T]) checkInput(data *DataContext, md OpMetadata) error {
	if !w.validateInput || md.InputSchema == nil {
		return nil
	}
	violations, err := w.validator.Validate(data.Values(), md.InputSchema)
	if err != nil {
		return ContextErrf("Input validation failed for %s: %s", md.Name, err.Error())
	}
	if len(violations) > 0 {
		return ContextErrf("Input validation failed for %s: %s", md.Name, strings.Join(violations, ", "))
	}
	return nil
}

func (w *Validating[T]) checkReferences(refs *ReferenceContext, md OpMetadata) error {
	if md.ReferenceSchema == nil {
		return nil
	}
	for _, field := range requiredFields(md.ReferenceSchema) {
		if !refs.Contains(field) {
			return ContextErrf("Required reference '%s' not found for op '%s'", field, md.Name)
		}
	}
	return nil
}

func (w *Validating[T]) checkOutput(output T, md OpMetadata) error {
	if !w.validateOutput || md.OutputSchema == nil {
		return nil
	}
	// Serialize to a plain data tree first so arbitrary result types are
	// validated by their JSON shape.
	encoded, err := json.Marshal(output)
	if err != nil {
		return ContextErrf("Failed to serialize output for validation: %s", err.Error())
	}
	var tree any
	if err := json.Unmarshal(encoded, &tree); err != nil {
		return ContextErrf("Failed to serialize output for validation: %s", err.Error())
	}
	violations, err := w.validator.Validate(tree, md.OutputSchema)
	if err != nil {
		return ContextErrf("Output validation failed for %s: %s", md.Name, err.Error())
	}
	if len(violations) > 0 {
		return ContextErrf("Output validation failed for %s: %s", md.Name, strings.Join(violations, ", "))
	}
	return nil
}

func (w *Validating[T]) Perform(ctx context.Context, data *DataContext, refs *ReferenceContext) (T, error) {
	var zero T
	md := w.op.Metadata()

	if err := w.checkInput(data, md); err != nil {
		return zero, err
	}
	if err := w.checkReferences(refs, md); err != nil {
		return zero, err
	}

	result, err := w.op.Perform(ctx, data, refs)
	if err != nil {
		return zero, err
	}

	if err := w.checkOutput(result, md); err != nil {
		return zero, err
	}
	return result, nil
}

func (w *Validating[T]) Metadata() OpMetadata {
	return w.op.Metadata()
}

func (w *Validating[T]) Rollback(ctx context.Context, data *DataContext, refs *ReferenceContext) error {
	return w.op.Rollback(ctx, data, refs)
}
