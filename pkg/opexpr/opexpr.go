// Package opexpr provides expression-backed leaf ops: boolean predicates
// (Expr, CEL) for trigger gating and jq transforms for data plumbing.
// Compiled programs are cached process-wide by the underlying engines.
package opexpr

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rendis/opkit/internal/expressions"
	"github.com/rendis/opkit/pkg/ops"
)

var (
	exprEngine = expressions.NewExprEngine()
	jqEngine   = expressions.NewGoJQEngine()

	celOnce   sync.Once
	celEngine *expressions.CELEngine
	celErr    error
)

func cel() (*expressions.CELEngine, error) {
	celOnce.Do(func() {
		celEngine, celErr = expressions.NewCELEngine()
	})
	return celEngine, celErr
}

// counterSubset extracts the numeric values from a data context, exposed
// to CEL expressions as the "counter" map.
func counterSubset(values map[string]any) map[string]any {
	counters := make(map[string]any)
	for k, v := range values {
		switch v.(type) {
		case int, int32, int64, float32, float64, json.Number:
			counters[k] = v
		}
	}
	return counters
}

// predicate is an Op[bool] backed by an expression engine.
type predicate struct {
	name string
	expr string
	eval func(ctx context.Context, data *ops.DataContext) (any, error)
}

func (p *predicate) Perform(ctx context.Context, data *ops.DataContext, refs *ops.ReferenceContext) (bool, error) {
	out, err := p.eval(ctx, data)
	if err != nil {
		return false, err
	}
	result, ok := out.(bool)
	if !ok {
		return false, ops.ExecutionFailedf(
			"predicate %q evaluated to non-boolean %T", p.expr, out)
	}
	return result, nil
}

func (p *predicate) Metadata() ops.OpMetadata {
	return ops.NewMetadata(p.name).
		Description("Predicate: " + p.expr).
		OutputSchema(ops.Schema{"type": "boolean"}).
		Build()
}

func (p *predicate) Rollback(ctx context.Context, data *ops.DataContext, refs *ops.ReferenceContext) error {
	return nil
}

// Predicate creates a boolean op evaluating an expr-lang expression.
// Data context values are exposed as top-level variables.
func Predicate(name, expression string) ops.Op[bool] {
	return &predicate{
		name: name,
		expr: expression,
		eval: func(ctx context.Context, data *ops.DataContext) (any, error) {
			return exprEngine.Evaluate(ctx, expression, data.Values())
		},
	}
}

// CELPredicate creates a boolean op evaluating a CEL expression. The
// expression sees two variables: `values` (the data context values) and
// `counter` (the numeric subset of those values).
func CELPredicate(name, expression string) ops.Op[bool] {
	return &predicate{
		name: name,
		expr: expression,
		eval: func(ctx context.Context, data *ops.DataContext) (any, error) {
			engine, err := cel()
			if err != nil {
				return nil, ops.ExecutionFailedf("CEL engine init failed: %s", err.Error())
			}
			values := data.Values()
			return engine.Evaluate(ctx, expression, map[string]any{
				"values":  values,
				"counter": counterSubset(values),
			})
		},
	}
}

// transform is an Op[any] that evaluates a jq expression over the data
// context values and stores the result under a target key.
type transform struct {
	name      string
	expr      string
	targetKey string
}

func (t *transform) Perform(ctx context.Context, data *ops.DataContext, refs *ops.ReferenceContext) (any, error) {
	out, err := jqEngine.Evaluate(ctx, t.expr, data.Values())
	if err != nil {
		return nil, err
	}
	data.Insert(t.targetKey, out)
	return out, nil
}

func (t *transform) Metadata() ops.OpMetadata {
	return ops.NewMetadata(t.name).
		Description("Transform: " + t.expr).
		OutputSchema(ops.Schema{
			"type":       "object",
			"properties": map[string]any{t.targetKey: map[string]any{}},
		}).
		Build()
}

func (t *transform) Rollback(ctx context.Context, data *ops.DataContext, refs *ops.ReferenceContext) error {
	return nil
}

// Transform creates an op that evaluates a jq expression against the
// data context values and stores the result under targetKey. The output
// schema declares targetKey so batch data-flow analysis sees the
// produced field.
func Transform(name, jqExpression, targetKey string) ops.Op[any] {
	return &transform{name: name, expr: jqExpression, targetKey: targetKey}
}

// template materializes a JSON template with ${{values.*}} references
// resolved from the data context, storing the parsed result.
type template struct {
	name      string
	raw       json.RawMessage
	targetKey string
	interp    *expressions.Interpolator
}

func (t *template) Perform(ctx context.Context, data *ops.DataContext, refs *ops.ReferenceContext) (any, error) {
	resolved, err := t.interp.Resolve(t.raw, data.Values())
	if err != nil {
		return nil, err
	}
	var parsed any
	if err := json.Unmarshal(resolved, &parsed); err != nil {
		return nil, ops.ContextErrf("template for %q produced invalid JSON: %s", t.targetKey, err.Error())
	}
	data.Insert(t.targetKey, parsed)
	return parsed, nil
}

func (t *template) Metadata() ops.OpMetadata {
	return ops.NewMetadata(t.name).
		Description("Template materializing " + t.targetKey).
		OutputSchema(ops.Schema{
			"type":       "object",
			"properties": map[string]any{t.targetKey: map[string]any{}},
		}).
		Build()
}

func (t *template) Rollback(ctx context.Context, data *ops.DataContext, refs *ops.ReferenceContext) error {
	return nil
}

// Template creates an op that resolves ${{values.*}} references in a
// JSON template against the data context and stores the parsed document
// under targetKey.
func Template(name string, rawTemplate json.RawMessage, targetKey string) ops.Op[any] {
	return &template{
		name:      name,
		raw:       rawTemplate,
		targetKey: targetKey,
		interp:    expressions.NewInterpolator(),
	}
}
