// Package ops provides a composable operation-execution engine: a uniform
// Op abstraction for units of work that can be nested, batched, looped,
// wrapped with cross-cutting behavior, and reactively triggered, with
// built-in compensation on failure.
//
// State flows through a dual context pair: DataContext carries serializable
// values and the cooperative cancellation flag, ReferenceContext carries
// runtime references (services, connections). Both are shared by reference
// through an entire perform tree and are not internally locked — the engine
// assumes exclusive single-threaded access to a context pair for the
// duration of one perform call.
package ops

import (
	"context"
	"encoding/json"
	"fmt"
)

// jsonTypeName returns the JSON type name of a decoded value.
func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, int, int64, json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return "unknown"
}

// deepCopyValue copies a JSON-compatible value so that no mutable state
// is aliased between the original and the copy.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = deepCopyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}

// DataContext is the serializable half of the context pair: a string-keyed
// store of JSON-compatible values plus the cooperative abort flag.
type DataContext struct {
	values      map[string]any
	aborted     bool
	abortReason string
	hasReason   bool
}

// NewDataContext creates an empty DataContext.
func NewDataContext() *DataContext {
	return &DataContext{values: make(map[string]any)}
}

// With inserts a value and returns the context for chaining.
func (c *DataContext) With(key string, value any) *DataContext {
	c.Insert(key, value)
	return c
}

// Insert stores a serializable value under key, overwriting any previous value.
func (c *DataContext) Insert(key string, value any) {
	c.values[key] = value
}

// Get returns the value for key and whether it was present.
func (c *DataContext) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Contains reports whether key exists.
func (c *DataContext) Contains(key string) bool {
	_, ok := c.values[key]
	return ok
}

// Keys returns all keys in unspecified order.
func (c *DataContext) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	return keys
}

// Values returns the raw value map. Mutating it mutates the context.
func (c *DataContext) Values() map[string]any {
	return c.values
}

// Len returns the number of stored values.
func (c *DataContext) Len() int {
	return len(c.values)
}

// GetOrInsert returns the existing value for key, or stores and returns
// the value produced by factory.
func (c *DataContext) GetOrInsert(key string, factory func() any) any {
	if v, ok := c.values[key]; ok {
		return v
	}
	v := factory()
	c.values[key] = v
	return v
}

// Ensure returns the existing value for key, or computes one with the
// factory (which may use both contexts and perform I/O) and stores it.
func (c *DataContext) Ensure(ctx context.Context, refs *ReferenceContext, key string, factory func(context.Context, *DataContext, *ReferenceContext, string) (any, error)) (any, error) {
	if v, ok := c.values[key]; ok {
		return v, nil
	}
	v, err := factory(ctx, c, refs, key)
	if err != nil {
		return nil, err
	}
	c.values[key] = v
	return v, nil
}

// Merge copies other's values into c, overwriting on key collision.
// The abort flag is adopted from other only if c is not already aborted:
// first cancellation wins and is never cleared by a merge.
func (c *DataContext) Merge(other *DataContext) {
	for k, v := range other.values {
		c.values[k] = v
	}
	if other.aborted && !c.aborted {
		c.aborted = true
		c.abortReason = other.abortReason
		c.hasReason = other.hasReason
	}
}

// SetAbort raises the cooperative cancellation flag with a reason.
func (c *DataContext) SetAbort(reason string) {
	c.aborted = true
	c.abortReason = reason
	c.hasReason = true
}

// Aborted reports whether the cancellation flag is set.
func (c *DataContext) Aborted() bool {
	return c.aborted
}

// AbortReason returns the abort reason and whether one was recorded.
func (c *DataContext) AbortReason() (string, bool) {
	return c.abortReason, c.hasReason
}

// ClearControlFlags resets the abort flag and reason.
func (c *DataContext) ClearControlFlags() {
	c.aborted = false
	c.abortReason = ""
	c.hasReason = false
}

// Clone returns a fully independent deep copy: no mutable state is
// shared between the original and the clone.
func (c *DataContext) Clone() *DataContext {
	values := make(map[string]any, len(c.values))
	for k, v := range c.values {
		values[k] = deepCopyValue(v)
	}
	return &DataContext{
		values:      values,
		aborted:     c.aborted,
		abortReason: c.abortReason,
		hasReason:   c.hasReason,
	}
}

// contextEnvelope is the wire shape of a serialized DataContext.
type contextEnvelope struct {
	Values       map[string]any `json:"values"`
	ControlFlags controlFlags   `json:"control_flags"`
}

type controlFlags struct {
	Aborted     bool    `json:"aborted"`
	AbortReason *string `json:"abort_reason"`
}

// MarshalJSON serializes the context as {"values": …, "control_flags": …}.
func (c *DataContext) MarshalJSON() ([]byte, error) {
	env := contextEnvelope{Values: c.values}
	env.ControlFlags.Aborted = c.aborted
	if c.hasReason {
		reason := c.abortReason
		env.ControlFlags.AbortReason = &reason
	}
	return json.Marshal(env)
}

// UnmarshalJSON is the exact inverse of MarshalJSON.
func (c *DataContext) UnmarshalJSON(data []byte) error {
	var env contextEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Other(err)
	}
	c.values = env.Values
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.aborted = env.ControlFlags.Aborted
	if env.ControlFlags.AbortReason != nil {
		c.abortReason = *env.ControlFlags.AbortReason
		c.hasReason = true
	} else {
		c.abortReason = ""
		c.hasReason = false
	}
	return nil
}

// ParseDataContext deserializes a context previously produced by MarshalJSON.
func ParseDataContext(data []byte) (*DataContext, error) {
	ctx := NewDataContext()
	if err := json.Unmarshal(data, ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

// Value returns the value for key as T. The second result is false when
// the key is missing or holds a value of a different type.
func Value[T any](c *DataContext, key string) (T, bool) {
	var zero T
	v, ok := c.values[key]
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Require returns the value for key as T, or a Context error naming the
// key when it is missing or of the wrong type.
func Require[T any](c *DataContext, key string) (T, error) {
	var zero T
	v, ok := c.values[key]
	if !ok {
		return zero, ContextErrf("Required data context key '%s' not found", key)
	}
	typed, ok := v.(T)
	if !ok {
		encoded, _ := json.Marshal(v)
		return zero, ContextErrf(
			"Type mismatch for data context key '%s': expected type '%T', but found '%s' value: %s",
			key, zero, jsonTypeName(v), string(encoded))
	}
	return typed, nil
}

// ReferenceContext is the non-serializable half of the context pair: a
// string-keyed registry of runtime references. The context indexes the
// references for the duration it is held; it does not own their lifecycle.
type ReferenceContext struct {
	references map[string]any
}

// NewReferenceContext creates an empty ReferenceContext.
func NewReferenceContext() *ReferenceContext {
	return &ReferenceContext{references: make(map[string]any)}
}

// WithRef inserts a reference and returns the context for chaining.
func (c *ReferenceContext) WithRef(key string, ref any) *ReferenceContext {
	c.InsertRef(key, ref)
	return c
}

// InsertRef stores a runtime reference under key.
func (c *ReferenceContext) InsertRef(key string, ref any) {
	c.references[key] = ref
}

// Ref returns the reference for key and whether it was present.
func (c *ReferenceContext) Ref(key string) (any, bool) {
	v, ok := c.references[key]
	return v, ok
}

// Contains reports whether key exists.
func (c *ReferenceContext) Contains(key string) bool {
	_, ok := c.references[key]
	return ok
}

// Keys returns all reference keys in unspecified order.
func (c *ReferenceContext) Keys() []string {
	keys := make([]string, 0, len(c.references))
	for k := range c.references {
		keys = append(keys, k)
	}
	return keys
}

// Merge copies other's references into c, overwriting on collision.
func (c *ReferenceContext) Merge(other *ReferenceContext) {
	for k, v := range other.references {
		c.references[k] = v
	}
}

// Ensure returns the existing reference for key, or creates one with the
// factory and stores it.
func (c *ReferenceContext) Ensure(ctx context.Context, data *DataContext, key string, factory func(context.Context, *DataContext, *ReferenceContext, string) (any, error)) (any, error) {
	if v, ok := c.references[key]; ok {
		return v, nil
	}
	v, err := factory(ctx, data, c, key)
	if err != nil {
		return nil, err
	}
	c.references[key] = v
	return v, nil
}

// RefAs returns the reference for key as T. The second result is false
// when the key is missing or the reference has a different type.
func RefAs[T any](c *ReferenceContext, key string) (T, bool) {
	var zero T
	v, ok := c.references[key]
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// RequireRef returns the reference for key as T, or a Context error
// naming the key when it is missing or of the wrong type.
func RequireRef[T any](c *ReferenceContext, key string) (T, error) {
	var zero T
	v, ok := c.references[key]
	if !ok {
		return zero, ContextErrf("Required reference '%s' not found", key)
	}
	typed, ok := v.(T)
	if !ok {
		return zero, ContextErrf(
			"Type mismatch for reference '%s': expected type '%s', but found a different type",
			key, fmt.Sprintf("%T", zero))
	}
	return typed, nil
}
