// Package errors provides unified error handling with structured error codes.
// Codes classify failures across the capture, OCR, model, and storage layers
// so callers can branch on category instead of string matching.
package errors

import (
	"fmt"
	"net/http"
)

// Code classifies an error for retry decisions and API responses.
type Code int

const (
	CodeUnknown Code = iota
	CodeInternal
	CodeInvalidInput
	CodeNotFound
	CodeUnavailable
	CodeTimeout
	CodeCancelled
	CodeCaptureFailed
	CodeExtractionFailed
	CodeLowConfidence
	CodeLLMNotConfigured
	CodeLLMFailed
	CodeRateLimited
	CodeTranscriptionFailed
	CodeStorageFailed
	CodeConfigInvalid
)

var codeNames = map[Code]string{
	CodeUnknown:             "UNKNOWN",
	CodeInternal:            "INTERNAL",
	CodeInvalidInput:        "INVALID_INPUT",
	CodeNotFound:            "NOT_FOUND",
	CodeUnavailable:         "UNAVAILABLE",
	CodeTimeout:             "TIMEOUT",
	CodeCancelled:           "CANCELLED",
	CodeCaptureFailed:       "CAPTURE_FAILED",
	CodeExtractionFailed:    "EXTRACTION_FAILED",
	CodeLowConfidence:       "LOW_CONFIDENCE",
	CodeLLMNotConfigured:    "LLM_NOT_CONFIGURED",
	CodeLLMFailed:           "LLM_FAILED",
	CodeRateLimited:         "RATE_LIMITED",
	CodeTranscriptionFailed: "TRANSCRIPTION_FAILED",
	CodeStorageFailed:       "STORAGE_FAILED",
	CodeConfigInvalid:       "CONFIG_INVALID",
}

// String returns the stable name for the code.
func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return "UNKNOWN"
}

// httpCodeMap maps error codes to HTTP status codes for API responses.
var httpCodeMap = map[Code]int{
	CodeUnknown:             http.StatusInternalServerError,
	CodeInternal:            http.StatusInternalServerError,
	CodeInvalidInput:        http.StatusBadRequest,
	CodeNotFound:            http.StatusNotFound,
	CodeUnavailable:         http.StatusServiceUnavailable,
	CodeTimeout:             http.StatusGatewayTimeout,
	CodeCancelled:           http.StatusRequestTimeout,
	CodeCaptureFailed:       http.StatusServiceUnavailable,
	CodeExtractionFailed:    http.StatusInternalServerError,
	CodeLowConfidence:       http.StatusUnprocessableEntity,
	CodeLLMNotConfigured:    http.StatusPreconditionFailed,
	CodeLLMFailed:           http.StatusBadGateway,
	CodeRateLimited:         http.StatusTooManyRequests,
	CodeTranscriptionFailed: http.StatusInternalServerError,
	CodeStorageFailed:       http.StatusInternalServerError,
	CodeConfigInvalid:       http.StatusBadRequest,
}

// AppError is the base error type with structured error code and metadata.
type AppError struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	s := fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
	if len(e.Metadata) > 0 {
		s += fmt.Sprintf(" %v", e.Metadata)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(" caused by: %v", e.Cause)
	}
	return s
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *AppError) Unwrap() error { return e.Cause }

// HTTPStatus returns the corresponding HTTP status code.
func (e *AppError) HTTPStatus() int {
	if c, ok := httpCodeMap[e.Code]; ok {
		return c
	}
	return http.StatusInternalServerError
}

// New creates a new AppError with the given code and message.
func New(code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

// Newf creates a new AppError with formatted message.
func Newf(code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(err error, code Code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: err}
}

// Wrapf wraps an existing error with formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// WithMetadata adds metadata to an AppError.
func (e *AppError) WithMetadata(key, value string) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// GetCode returns the code of an error, walking the cause chain until an
// AppError is found. Non-AppError values report CodeUnknown.
func GetCode(err error) Code {
	for err != nil {
		if appErr, ok := err.(*AppError); ok {
			return appErr.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return CodeUnknown
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code Code) bool {
	return err != nil && GetCode(err) == code
}

// IsRetryable returns true if the error is potentially retryable.
func IsRetryable(err error) bool {
	switch GetCode(err) {
	case CodeUnavailable, CodeTimeout, CodeRateLimited:
		return true
	default:
		return false
	}
}
