package ops

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// callerName derives a "file::line" display name from the caller two
// frames up (the user code that invoked Perform).
func callerName() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "op"
	}
	base := strings.TrimSuffix(filepath.Base(file), ".go")
	return fmt.Sprintf("%s::%d", base, line)
}

// Perform is the canonical entry point for running an op tree: it wraps
// the root op in a Logging wrapper named after the call site and performs
// it against the given context pair.
func Perform[T any](ctx context.Context, op Op[T], data *DataContext, refs *ReferenceContext) (T, error) {
	return NewLogging(op, callerName()).Perform(ctx, data, refs)
}

// PerformNamed is Perform with an explicit display name instead of the
// call-site derived one.
func PerformNamed[T any](ctx context.Context, name string, op Op[T], data *DataContext, refs *ReferenceContext) (T, error) {
	return NewLogging(op, name).Perform(ctx, data, refs)
}
