package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the module.
type ErrorCode string

// Deliberation error codes
const (
	ErrEmptyScoreSet     ErrorCode = "EMPTY_SCORE_SET"
	ErrNoContributors    ErrorCode = "NO_CONTRIBUTORS"
	ErrAnalystFailed     ErrorCode = "ANALYST_FAILED"
	ErrInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrRoundBudget       ErrorCode = "ROUND_BUDGET_EXHAUSTED"
)

// Entity error codes
const (
	ErrSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrProjectNotFound ErrorCode = "PROJECT_NOT_FOUND"
	ErrAgentNotFound   ErrorCode = "AGENT_NOT_FOUND"
)

// Infrastructure error codes
const (
	ErrStorage        ErrorCode = "STORAGE"
	ErrInvalidConfig  ErrorCode = "INVALID_CONFIG"
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrInternalError  ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// GetErrorCode extracts the ErrorCode from any error, unwrapping as needed.
// Returns ErrInternalError for errors outside the scheme.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrInternalError
}

// IsNotFound reports whether err carries one of the not-found codes.
func IsNotFound(err error) bool {
	switch GetErrorCode(err) {
	case ErrSessionNotFound, ErrProjectNotFound, ErrAgentNotFound:
		return true
	}
	return false
}

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}
