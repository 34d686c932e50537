// Package errors provides standardized error handling for the recruiting pipeline.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// ErrCodeNotFound: the requested record does not exist. The caller decides
	// whether that is expected (first contact) or a real failure.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeUnavailable: an external collaborator (HR API, AI scorer,
	// notification sink) failed or timed out.
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE"

	// ErrCodeQueueFull: the task queue rejected a non-blocking submit.
	// Transient and caller-visible.
	ErrCodeQueueFull ErrorCode = "QUEUE_FULL"

	// ErrCodeInvalidTransition: a stage advance was requested whose
	// precondition does not hold. Logged as a programming-level anomaly.
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	// ErrCodeStorageIO: the persistence substrate under the state store
	// failed. Fatal to the calling operation, never swallowed.
	ErrCodeStorageIO ErrorCode = "STORAGE_IO"

	// ErrCodeMutatorPanic: a record mutator panicked. The update was
	// discarded and the record left unchanged.
	ErrCodeMutatorPanic ErrorCode = "MUTATOR_PANIC"

	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeAuthPollExceeded ErrorCode = "AUTH_POLL_EXCEEDED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewNotFoundError creates a non-retryable missing-record error.
func NewNotFoundError(key string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   "Record not found",
		Details:   fmt.Sprintf("key: %s", key),
		Retryable: false,
		Metadata:  map[string]interface{}{"key": key},
		Timestamp: time.Now().UTC(),
	}
}

// NewUnavailableError creates a retryable external-collaborator error.
func NewUnavailableError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnavailable,
		Message:   fmt.Sprintf("External service '%s' unavailable", service),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
	}
}

// NewQueueFullError creates a retryable backpressure error.
func NewQueueFullError(jobKind string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueueFull,
		Message:   "Task queue is at capacity",
		Details:   fmt.Sprintf("jobKind: %s", jobKind),
		Retryable: true,
		Metadata:  map[string]interface{}{"jobKind": jobKind},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError creates a non-retryable precondition error.
func NewInvalidTransitionError(subjectID, stage, reason string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   "Stage precondition not satisfied",
		Details:   fmt.Sprintf("subjectId: %s, stage: %s, reason: %s", subjectID, stage, reason),
		Retryable: false,
		Metadata:  map[string]interface{}{"subjectId": subjectID, "stage": stage},
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageIOError creates a retryable persistence error.
func NewStorageIOError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageIO,
		Message:   "State store operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Metadata:  map[string]interface{}{"operation": operation},
		Timestamp: time.Now().UTC(),
	}
}

// NewMutatorPanicError creates a non-retryable mutator failure.
func NewMutatorPanicError(key string, recovered interface{}) *StandardError {
	return &StandardError{
		Code:      ErrCodeMutatorPanic,
		Message:   "Record mutator panicked, update discarded",
		Details:   fmt.Sprintf("key: %s, panic: %v", key, recovered),
		Retryable: false,
		Metadata:  map[string]interface{}{"key": key},
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError creates a non-retryable payload validation error.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Payload validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthPollExceededError signals that the authorization poll ran out of
// attempts without the subject completing authorization.
func NewAuthPollExceededError(subjectID string, attempts int) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthPollExceeded,
		Message:   "Authorization polling attempt budget exhausted",
		Details:   fmt.Sprintf("subjectId: %s, attempts: %d", subjectID, attempts),
		Retryable: false,
		Metadata:  map[string]interface{}{"subjectId": subjectID, "attempts": attempts},
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// CodeOf extracts the ErrorCode from an error chain, or "" if the chain
// carries no StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func IsNotFound(err error) bool          { return IsCode(err, ErrCodeNotFound) }
func IsUnavailable(err error) bool       { return IsCode(err, ErrCodeUnavailable) }
func IsQueueFull(err error) bool         { return IsCode(err, ErrCodeQueueFull) }
func IsInvalidTransition(err error) bool { return IsCode(err, ErrCodeInvalidTransition) }
func IsStorageIO(err error) bool         { return IsCode(err, ErrCodeStorageIO) }
func IsMutatorPanic(err error) bool      { return IsCode(err, ErrCodeMutatorPanic) }

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStorageIO,
		ErrCodeUnavailable:
		return 3 // Retryable technical errors

	case ErrCodeQueueFull:
		return 2 // Backpressure clears once workers drain

	default:
		return 0 // Business errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "STORAGE") || strings.Contains(codeStr, "NOT_FOUND") || strings.Contains(codeStr, "MUTATOR"):
		return "STATE_STORE"
	case strings.Contains(codeStr, "QUEUE"):
		return "TASK_QUEUE"
	case strings.Contains(codeStr, "TRANSITION"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "AUTH"):
		return "AUTH"
	case strings.Contains(codeStr, "UNAVAILABLE"):
		return "EXTERNAL"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
