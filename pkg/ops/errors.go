package ops

import (
	"errors"
	"fmt"
)

// Kind classifies an operation failure.
type Kind string

// The closed set of failure kinds.
const (
	KindExecutionFailed Kind = "EXECUTION_FAILED"
	KindTimeout         Kind = "TIMEOUT"
	KindContext         Kind = "CONTEXT"
	KindBatchFailed     Kind = "BATCH_FAILED"
	KindAborted         Kind = "ABORTED"
	KindTrigger         Kind = "TRIGGER"
	KindOther           Kind = "OTHER"
)

// OpError is the structured error type for all opkit operations.
type OpError struct {
	Kind      Kind
	Message   string
	TimeoutMS int64  // set for KindTimeout
	Reason    string // set for KindAborted
	Cause     error  // set for KindOther, optional otherwise
}

func (e *OpError) Error() string {
	switch e.Kind {
	case KindExecutionFailed:
		return "Op execution failed: " + e.Message
	case KindTimeout:
		return fmt.Sprintf("Op timeout after %dms", e.TimeoutMS)
	case KindContext:
		return "Context error: " + e.Message
	case KindBatchFailed:
		return "Batch op failed: " + e.Message
	case KindAborted:
		return "Op aborted: " + e.Reason
	case KindTrigger:
		return "Trigger error: " + e.Message
	case KindOther:
		if e.Cause != nil {
			return e.Cause.Error()
		}
		return e.Message
	}
	return e.Message
}

func (e *OpError) Unwrap() error {
	return e.Cause
}

// Clone duplicates the error. An Other error canonicalizes to
// ExecutionFailed carrying the wrapped cause's message: the category is
// lost but the information is preserved. This is intentional.
func (e *OpError) Clone() *OpError {
	if e.Kind == KindOther {
		return ExecutionFailed(e.Error())
	}
	dup := *e
	return &dup
}

// ExecutionFailed creates an ExecutionFailed error.
func ExecutionFailed(message string) *OpError {
	return &OpError{Kind: KindExecutionFailed, Message: message}
}

// ExecutionFailedf creates an ExecutionFailed error with a formatted message.
func ExecutionFailedf(format string, args ...any) *OpError {
	return ExecutionFailed(fmt.Sprintf(format, args...))
}

// TimeoutError creates a Timeout error for the given budget in milliseconds.
func TimeoutError(timeoutMS int64) *OpError {
	return &OpError{Kind: KindTimeout, TimeoutMS: timeoutMS}
}

// ContextErr creates a Context error.
func ContextErr(message string) *OpError {
	return &OpError{Kind: KindContext, Message: message}
}

// ContextErrf creates a Context error with a formatted message.
func ContextErrf(format string, args ...any) *OpError {
	return ContextErr(fmt.Sprintf(format, args...))
}

// BatchFailed creates a BatchFailed error.
func BatchFailed(message string) *OpError {
	return &OpError{Kind: KindBatchFailed, Message: message}
}

// BatchFailedf creates a BatchFailed error with a formatted message.
func BatchFailedf(format string, args ...any) *OpError {
	return BatchFailed(fmt.Sprintf(format, args...))
}

// Aborted creates an Aborted error with the given reason.
func Aborted(reason string) *OpError {
	return &OpError{Kind: KindAborted, Reason: reason}
}

// TriggerErr creates a Trigger error.
func TriggerErr(message string) *OpError {
	return &OpError{Kind: KindTrigger, Message: message}
}

// TriggerErrf creates a Trigger error with a formatted message.
func TriggerErrf(format string, args ...any) *OpError {
	return TriggerErr(fmt.Sprintf(format, args...))
}

// Other wraps a foreign error. The escape hatch for failures raised
// outside the taxonomy.
func Other(err error) *OpError {
	return &OpError{Kind: KindOther, Cause: err}
}

// AsOpError extracts an *OpError from err's chain, or nil.
func AsOpError(err error) *OpError {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr
	}
	return nil
}

// IsAborted reports whether err is (or wraps) an Aborted error.
func IsAborted(err error) bool {
	opErr := AsOpError(err)
	return opErr != nil && opErr.Kind == KindAborted
}

// WrapWithOpName re-categorizes err with the op name embedded in its
// message. Every kind maps to a fixed target kind:
//
//	ExecutionFailed → ExecutionFailed
//	Timeout         → ExecutionFailed (states the elapsed ms)
//	Context         → Context
//	BatchFailed     → BatchFailed
//	Aborted         → Aborted
//	Trigger         → Trigger
//	Other / foreign → ExecutionFailed
func WrapWithOpName(name string, err error) *OpError {
	opErr := AsOpError(err)
	if opErr == nil {
		return ExecutionFailedf("Op '%s' failed: %s", name, err.Error())
	}
	switch opErr.Kind {
	case KindExecutionFailed:
		return ExecutionFailedf("Op '%s' failed: %s", name, opErr.Message)
	case KindTimeout:
		return ExecutionFailedf("Op '%s' timed out after %dms", name, opErr.TimeoutMS)
	case KindContext:
		return ContextErrf("Op '%s' context error: %s", name, opErr.Message)
	case KindBatchFailed:
		return BatchFailedf("Batch op '%s' failed: %s", name, opErr.Message)
	case KindAborted:
		return Aborted(fmt.Sprintf("Op '%s' aborted: %s", name, opErr.Reason))
	case KindTrigger:
		return TriggerErrf("Op '%s' internal error: %s", name, opErr.Message)
	case KindOther:
		return ExecutionFailedf("Op '%s' failed: %s", name, opErr.Error())
	}
	return ExecutionFailedf("Op '%s' failed: %s", name, opErr.Error())
}
