package dagflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Error type constants for classifying step failures.
const (
	// ErrorTypeStepFailed is the default classification for action errors.
	// Step-failed errors are retried when the step enables retries.
	ErrorTypeStepFailed = "step_failed"

	// ErrorTypeTimeout classifies attempt timeouts and deadline errors.
	ErrorTypeTimeout = "timeout"

	// ErrorTypeFatal marks errors that must not be retried. Unknown errors
	// default to step_failed so that retries stay enabled; wrap an error in
	// NewFatalError when a retry can never succeed.
	ErrorTypeFatal = "fatal"
)

// ErrExecutionNotFound is returned by engine operations referencing an
// unknown execution id.
var ErrExecutionNotFound = errors.New("execution not found")

// ErrWorkflowNotFound is returned when executing an unregistered workflow.
var ErrWorkflowNotFound = errors.New("workflow not found")

// StepError is a classified step failure. It supports Go's error wrapping
// with Unwrap.
type StepError struct {
	Type    string `json:"type"`
	Cause   string `json:"cause"`
	Wrapped error  `json:"-"`
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Cause)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}

// NewFatalError wraps an error so the executor will not retry it.
func NewFatalError(err error) *StepError {
	return &StepError{Type: ErrorTypeFatal, Cause: err.Error(), Wrapped: err}
}

// Fatalf builds a non-retryable step error from a format string.
func Fatalf(format string, args ...any) *StepError {
	return &StepError{Type: ErrorTypeFatal, Cause: fmt.Sprintf(format, args...)}
}

// ClassifyError assigns an error type to an arbitrary step error.
func ClassifyError(err error) *StepError {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(strings.ToLower(err.Error()), "timed out") {
		return &StepError{Type: ErrorTypeTimeout, Cause: err.Error(), Wrapped: err}
	}
	return &StepError{Type: ErrorTypeStepFailed, Cause: err.Error(), Wrapped: err}
}

// IsFatal reports whether an error is explicitly marked non-retryable.
// Cancellation counts as fatal: retrying a cancelled step is never useful.
func IsFatal(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Type == ErrorTypeFatal
	}
	return false
}
