package invoker

import (
	"errors"
	"fmt"
)

// Code classifies tool invocation failures.
type Code string

const (
	// CodeValidation marks parameters that failed schema validation. Never retried.
	CodeValidation Code = "ValidationError"
	// CodeRateLimited marks calls rejected after bounded queueing at the token bucket.
	CodeRateLimited Code = "RateLimited"
	// CodeCircuitOpen marks calls short-circuited by an open breaker.
	CodeCircuitOpen Code = "CircuitOpen"
	// CodeTimeout marks a call that exceeded its per-attempt deadline.
	CodeTimeout Code = "Timeout"
	// CodeExhaustedRetries marks a call that failed every attempt in the retry budget.
	CodeExhaustedRetries Code = "ExhaustedRetries"
	// CodeRemote marks a failure reported by the external dependency itself.
	CodeRemote Code = "RemoteError"
)

// ToolError is the classified failure of a tool invocation.
type ToolError struct {
	Code    Code
	Tool    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("tool %s: %s: %s", e.Tool, e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("tool %s: %s: %v", e.Tool, e.Code, e.Err)
	}
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Code)
}

// Unwrap returns the underlying cause, if any.
func (e *ToolError) Unwrap() error { return e.Err }

// Transient reports whether the orchestrator may retry the whole turn after a
// backoff. Validation failures and exhausted budgets are not transient.
func (e *ToolError) Transient() bool {
	switch e.Code {
	case CodeRateLimited, CodeCircuitOpen, CodeTimeout:
		return true
	default:
		return false
	}
}

// CodeOf extracts the invocation failure code, or "" for non-tool errors.
func CodeOf(err error) Code {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// retryable reports whether a failure code is worth another attempt inside
// the invoker's own retry loop. Only timeouts and remote failures qualify.
func retryable(code Code) bool {
	return code == CodeTimeout || code == CodeRemote
}
