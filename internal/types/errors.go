package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for Algora orchestration errors.
type ErrorCode string

// Workflow transition error codes
const (
	WORKFLOW_INVALID_TRANSITION ErrorCode = "WORKFLOW_INVALID_TRANSITION"
	WORKFLOW_CRITERIA_UNMET     ErrorCode = "WORKFLOW_CRITERIA_UNMET"
	WORKFLOW_NOT_FOUND          ErrorCode = "WORKFLOW_NOT_FOUND"
	WORKFLOW_TERMINAL           ErrorCode = "WORKFLOW_TERMINAL"
)

// Task error codes
const (
	TASK_NOT_FOUND      ErrorCode = "TASK_NOT_FOUND"
	TASK_INVALID_STATUS ErrorCode = "TASK_INVALID_STATUS"
	TASK_DUPLICATE      ErrorCode = "TASK_DUPLICATE"
)

// Specialist dispatch error codes
const (
	SPECIALIST_UNKNOWN        ErrorCode = "SPECIALIST_UNKNOWN"
	SPECIALIST_PROVIDER_ERROR ErrorCode = "SPECIALIST_PROVIDER_ERROR"
	SPECIALIST_GATE_REJECTED  ErrorCode = "SPECIALIST_GATE_REJECTED"
	SPECIALIST_EXHAUSTED      ErrorCode = "SPECIALIST_EXHAUSTED"
	SPECIALIST_QUEUE_CLOSED   ErrorCode = "SPECIALIST_QUEUE_CLOSED"
)

// Orchestrator error codes
const (
	ORCHESTRATOR_QUEUE_FULL     ErrorCode = "ORCHESTRATOR_QUEUE_FULL"
	ORCHESTRATOR_STAGE_TIMEOUT  ErrorCode = "ORCHESTRATOR_STAGE_TIMEOUT"
	ORCHESTRATOR_CANCELLED      ErrorCode = "ORCHESTRATOR_CANCELLED"
	ORCHESTRATOR_DISPATCH_ERROR ErrorCode = "ORCHESTRATOR_DISPATCH_ERROR"
)

// Configuration and storage error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
	DB_OPEN_FAILED           ErrorCode = "DB_OPEN_FAILED"
	DB_MIGRATION_FAILED      ErrorCode = "DB_MIGRATION_FAILED"
	DB_QUERY_FAILED          ErrorCode = "DB_QUERY_FAILED"
)

// AlgoraError represents a structured error with error code, message, and optional cause.
// It supports error wrapping and retryability hints for error handling logic.
type AlgoraError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *AlgoraError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
// This enables using errors.Is() and errors.As() with wrapped errors.
func (e *AlgoraError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
// Returns true if target is an AlgoraError with the same Code.
func (e *AlgoraError) Is(target error) bool {
	var algoraErr *AlgoraError
	if errors.As(target, &algoraErr) {
		return e.Code == algoraErr.Code
	}
	return false
}

// NewError creates a new non-retryable AlgoraError with the given code and message.
func NewError(code ErrorCode, message string) *AlgoraError {
	return &AlgoraError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     nil,
	}
}

// NewRetryableError creates a new retryable AlgoraError with the given code and message.
// Use this for transient errors that may succeed on retry (e.g., provider timeouts).
func NewRetryableError(code ErrorCode, message string) *AlgoraError {
	return &AlgoraError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     nil,
	}
}

// WrapError creates a new non-retryable AlgoraError that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *AlgoraError {
	return &AlgoraError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     cause,
	}
}

// WrapRetryableError creates a retryable AlgoraError that wraps an existing
// error. Use this for transient failures (provider timeouts, rate limits)
// where the wrapped cause should stay inspectable.
func WrapRetryableError(code ErrorCode, message string, cause error) *AlgoraError {
	return &AlgoraError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// IsRetryable reports whether err (or any error in its chain) is an AlgoraError
// marked retryable.
func IsRetryable(err error) bool {
	var algoraErr *AlgoraError
	if errors.As(err, &algoraErr) {
		return algoraErr.Retryable
	}
	return false
}
