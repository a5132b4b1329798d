package expressions

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rendis/opkit/pkg/ops"
)

// Interpolator resolves ${{values.<path>}} references inside JSON
// templates against a snapshot of data context values. It is used to
// materialize parameter templates before a trigger is fired.
type Interpolator struct{}

// NewInterpolator creates an Interpolator.
func NewInterpolator() *Interpolator {
	return &Interpolator{}
}

// Resolve scans raw for ${{...}} tokens and replaces each with the
// referenced value from the values map, returning the interpolated JSON.
func (interp *Interpolator) Resolve(raw json.RawMessage, values map[string]any) (json.RawMessage, error) {
	if len(raw) == 0 {
		return raw, nil
	}

	input := string(raw)
	var result strings.Builder
	result.Grow(len(input))

	i := 0
	for i < len(input) {
		idx := strings.Index(input[i:], "${{")
		if idx == -1 {
			result.WriteString(input[i:])
			break
		}

		result.WriteString(input[i : i+idx])
		start := i + idx + 3 // skip "${{"

		end := strings.Index(input[start:], "}}")
		if end == -1 {
			return nil, ops.ContextErr("unclosed ${{ expression")
		}
		end += start

		expr := strings.TrimSpace(input[start:end])
		if strings.Contains(expr, "${{") {
			return nil, ops.ContextErr("nested interpolation not allowed: ${{...}} cannot contain ${{")
		}
		if expr == "" {
			return nil, ops.ContextErr("empty variable reference: ${{  }}")
		}

		val, err := interp.resolveExpr(expr, values)
		if err != nil {
			return nil, err
		}
		result.WriteString(marshalInline(val))

		i = end + 2 // skip "}}"
	}

	return json.RawMessage(result.String()), nil
}

// resolveExpr resolves a single expression path like "values.user.name".
func (interp *Interpolator) resolveExpr(expr string, values map[string]any) (any, error) {
	parts := strings.SplitN(expr, ".", 2)
	if parts[0] != "values" {
		return nil, ops.ContextErrf(
			"unknown namespace %q in ${{%s}}; available: values", parts[0], expr)
	}
	if len(parts) < 2 || parts[1] == "" {
		return nil, ops.ContextErrf("invalid value reference %q: expected values.<key>", expr)
	}

	fieldPath := parts[1]
	if values == nil {
		return nil, ops.ContextErrf("cannot resolve %q: values scope is empty", expr)
	}

	// Direct key lookup first (supports keys containing dots).
	if val, ok := values[fieldPath]; ok {
		return val, nil
	}
	return traversePath(values, fieldPath, expr)
}

// traversePath navigates into nested maps using a dot-delimited path.
func traversePath(root any, path, expr string) (any, error) {
	segments := strings.Split(path, ".")
	current := root

	for i, seg := range segments {
		if seg == "" {
			return nil, ops.ContextErrf("empty segment in path %q at position %d", expr, i)
		}

		switch v := current.(type) {
		case map[string]any:
			val, ok := v[seg]
			if !ok {
				available := mapKeys(v)
				return nil, ops.ContextErrf(
					"field %q not found in %q; available: [%s]", seg, expr, strings.Join(available, ", "))
			}
			current = val
		default:
			return nil, ops.ContextErrf(
				"cannot traverse into non-object at %q in %q (type: %T)", seg, expr, current)
		}
	}

	return current, nil
}

// marshalInline converts a resolved value into its inline JSON
// representation. Strings are embedded without extra quotes so a token
// inside a JSON string stays a string; complex types are JSON-encoded.
func marshalInline(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case nil:
		return "null"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		return fmt.Sprintf("%v", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case json.RawMessage:
		return string(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// mapKeys returns sorted keys from a map[string]any.
func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasInterpolation checks whether a JSON blob contains ${{...}} tokens.
func HasInterpolation(raw json.RawMessage) bool {
	return strings.Contains(string(raw), "${{")
}
