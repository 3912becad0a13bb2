package output

import (
	"context"
	"errors"
	"fmt"
)

// Error is a structured error with code, message, and optional hint.
type Error struct {
	Code      string
	Message   string
	Hint      string
	Retryable bool
	Cause     error
}

func (e *Error) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Hint)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode returns the appropriate exit code for this error.
func (e *Error) ExitCode() int {
	return ExitCodeFor(e.Code)
}

// Error constructors for common cases.

func ErrUsage(msg string) *Error {
	return &Error{Code: CodeUsage, Message: msg}
}

func ErrUsageHint(msg, hint string) *Error {
	return &Error{Code: CodeUsage, Message: msg, Hint: hint}
}

func ErrNotFound(resource, identifier string) *Error {
	return &Error{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found: %s", resource, identifier),
	}
}

func ErrConfig(cause error) *Error {
	return &Error{
		Code:    CodeConfig,
		Message: "Invalid configuration",
		Hint:    cause.Error(),
		Cause:   cause,
	}
}

// ErrLoad wraps a failed load. Loads against the demo catalog are retryable.
func ErrLoad(what string, cause error) *Error {
	e := &Error{
		Code:      CodeLoad,
		Message:   fmt.Sprintf("Loading %s failed", what),
		Retryable: true,
		Cause:     cause,
	}
	if cause != nil {
		e.Hint = cause.Error()
	}
	return e
}

func ErrCancelled(cause error) *Error {
	return &Error{
		Code:    CodeCancelled,
		Message: "Cancelled",
		Cause:   cause,
	}
}

func ErrJQ(expr string, cause error) *Error {
	return &Error{
		Code:    CodeJQ,
		Message: fmt.Sprintf("jq expression %q failed", expr),
		Hint:    cause.Error(),
		Cause:   cause,
	}
}

// AsError attempts to convert an error to an *Error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	if errors.Is(err, context.Canceled) {
		return ErrCancelled(err)
	}
	return &Error{
		Code:    CodeInternal,
		Message: err.Error(),
		Cause:   err,
	}
}
