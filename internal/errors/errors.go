// Package errors provides structured error types for the veilpipe pipeline.
// All errors include a category, code, message, and retryable flag for
// consistent error handling across pipeline stages.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by pipeline stage.
type ErrorCategory string

const (
	ErrCategoryConfig    ErrorCategory = "CONFIG"
	ErrCategoryFetch     ErrorCategory = "FETCH"
	ErrCategoryAnonymize ErrorCategory = "ANONYMIZE"
	ErrCategoryStore     ErrorCategory = "STORE"
	ErrCategoryReport    ErrorCategory = "REPORT"
	ErrCategoryArchive   ErrorCategory = "ARCHIVE"
)

// Error codes for each category.
const (
	// Config codes
	CodeInvalidConfig = "INVALID_CONFIG"

	// Fetch codes
	CodeRequestFailed   = "REQUEST_FAILED"
	CodeUpstreamError   = "UPSTREAM_ERROR"
	CodeDecodeFailed    = "DECODE_FAILED"
	CodeRetriesExceeded = "RETRIES_EXCEEDED"

	// Anonymize codes
	CodeTransformFailed = "TRANSFORM_FAILED"

	// Store codes
	CodeCountMismatch = "COUNT_MISMATCH"
	CodeOpenFailed    = "OPEN_FAILED"

	// Report codes
	CodeWriteFailed = "WRITE_FAILED"

	// Archive codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"
)

// PipelineError is the structured error type used across pipeline stages.
type PipelineError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *PipelineError) Is(target error) bool {
	var t *PipelineError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new PipelineError.
func New(category ErrorCategory, code, message string) *PipelineError {
	return &PipelineError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new PipelineError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *PipelineError {
	return &PipelineError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a PipelineError.
func GetCategory(err error) ErrorCategory {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a PipelineError.
func GetCode(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// isRetryable determines if an error code is transient. Only upstream
// transport failures are worth retrying; application-level errors and
// local failures are not.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryFetch && code == CodeRequestFailed:
		return true
	case category == ErrCategoryArchive && code == CodeUploadFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewFetchError(code, message string, cause error) *PipelineError {
	return Wrap(ErrCategoryFetch, code, message, cause)
}

func NewStoreError(code, message string, cause error) *PipelineError {
	return Wrap(ErrCategoryStore, code, message, cause)
}
