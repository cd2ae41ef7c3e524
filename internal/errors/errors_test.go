package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestPipelineError_Error(t *testing.T) {
	err := New(ErrCategoryFetch, CodeUpstreamError, "quota exceeded")
	expected := "[FETCH:UPSTREAM_ERROR] quota exceeded"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestPipelineError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrCategoryFetch, CodeRequestFailed, "request failed", cause)
	expected := "[FETCH:REQUEST_FAILED] request failed: connection refused"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestPipelineError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ErrCategoryStore, CodeCountMismatch, "mismatch", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestPipelineError_Is(t *testing.T) {
	err1 := New(ErrCategoryFetch, CodeRequestFailed, "first")
	err2 := New(ErrCategoryFetch, CodeRequestFailed, "second")
	err3 := New(ErrCategoryFetch, CodeUpstreamError, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		category  ErrorCategory
		code      string
		retryable bool
	}{
		{ErrCategoryFetch, CodeRequestFailed, true},
		{ErrCategoryFetch, CodeUpstreamError, false},
		{ErrCategoryFetch, CodeDecodeFailed, false},
		{ErrCategoryFetch, CodeRetriesExceeded, false},
		{ErrCategoryArchive, CodeUploadFailed, true},
		{ErrCategoryArchive, CodeObjectNotFound, false},
		{ErrCategoryStore, CodeCountMismatch, false},
		{ErrCategoryConfig, CodeInvalidConfig, false},
	}

	for _, tt := range tests {
		err := New(tt.category, tt.code, "test")
		if IsRetryable(err) != tt.retryable {
			t.Errorf("%s:%s retryable=%v, want %v", tt.category, tt.code, IsRetryable(err), tt.retryable)
		}
	}

	if IsRetryable(fmt.Errorf("plain error")) {
		t.Error("plain errors should not be retryable")
	}
}

func TestGetCategory(t *testing.T) {
	err := New(ErrCategoryReport, CodeWriteFailed, "disk full")
	if GetCategory(err) != ErrCategoryReport {
		t.Errorf("got %q, want %q", GetCategory(err), ErrCategoryReport)
	}
	if GetCategory(fmt.Errorf("plain error")) != "" {
		t.Error("non-PipelineError should return empty category")
	}
}

func TestGetCode(t *testing.T) {
	err := New(ErrCategoryAnonymize, CodeTransformFailed, "bad coordinate")
	if GetCode(err) != CodeTransformFailed {
		t.Errorf("got %q, want %q", GetCode(err), CodeTransformFailed)
	}
}

func TestGetCategoryThroughWrapping(t *testing.T) {
	inner := NewFetchError(CodeRequestFailed, "request failed", fmt.Errorf("timeout"))
	outer := fmt.Errorf("collection aborted: %w", inner)

	if GetCategory(outer) != ErrCategoryFetch {
		t.Error("category should be extractable through fmt.Errorf wrapping")
	}
	if !IsRetryable(outer) {
		t.Error("retryable flag should survive fmt.Errorf wrapping")
	}
}
