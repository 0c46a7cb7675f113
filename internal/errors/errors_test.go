package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorMessage(t *testing.T) {
	err := New(CodeCaptureFailed, "screenshot tool exited")
	want := "[CAPTURE_FAILED] screenshot tool exited"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	wrapped := Wrap(stderrors.New("exit status 1"), CodeCaptureFailed, "screenshot tool exited")
	if got := wrapped.Error(); got != want+" caused by: exit status 1" {
		t.Errorf("Error() = %q", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, CodeStorageFailed, "save failed")

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}

func TestGetCodeWalksChain(t *testing.T) {
	inner := New(CodeRateLimited, "429 from upstream")
	outer := fmt.Errorf("chat call: %w", inner)

	if got := GetCode(outer); got != CodeRateLimited {
		t.Errorf("GetCode = %v, want %v", got, CodeRateLimited)
	}
	if got := GetCode(stderrors.New("plain")); got != CodeUnknown {
		t.Errorf("GetCode plain error = %v, want %v", got, CodeUnknown)
	}
	if got := GetCode(nil); got != CodeUnknown {
		t.Errorf("GetCode nil = %v, want %v", got, CodeUnknown)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		code Code
		want bool
	}{
		{CodeUnavailable, true},
		{CodeTimeout, true},
		{CodeRateLimited, true},
		{CodeInternal, false},
		{CodeLowConfidence, false},
		{CodeInvalidInput, false},
	}
	for _, c := range cases {
		if got := IsRetryable(New(c.code, "x")); got != c.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", c.code, got, c.want)
		}
	}
	if IsRetryable(stderrors.New("plain")) {
		t.Error("plain errors should not be retryable")
	}
}

func TestHTTPStatus(t *testing.T) {
	if got := New(CodeRateLimited, "x").HTTPStatus(); got != http.StatusTooManyRequests {
		t.Errorf("HTTPStatus = %d, want %d", got, http.StatusTooManyRequests)
	}
	if got := (&AppError{Code: Code(999)}).HTTPStatus(); got != http.StatusInternalServerError {
		t.Errorf("HTTPStatus unknown code = %d, want 500", got)
	}
}

func TestWithMetadata(t *testing.T) {
	err := New(CodeLLMFailed, "bad response").WithMetadata("model", "gpt-oss")
	if err.Metadata["model"] != "gpt-oss" {
		t.Errorf("Metadata = %v", err.Metadata)
	}
}
