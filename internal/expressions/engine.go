// Package expressions provides sandboxed expression evaluation over data
// context values. Three engines: CEL for predicates, GoJQ for data
// transforms, Expr for complex deterministic logic. All engines cache
// compiled programs and are safe for concurrent use.
package expressions

import "context"

// Engine evaluates an expression against a data map.
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}
