// Package errors classifies solver failures so the batch runner can choose a
// retry wait per failure kind instead of matching ad hoc strings.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType categorizes solve failures for retry classification.
type ErrorType string

const (
	// ErrorTypeRateLimit indicates the provider's quota or throughput limit was hit (retryable).
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeAPIKeyInvalid indicates the provider rejected the credentials (retryable by policy).
	ErrorTypeAPIKeyInvalid ErrorType = "api_key_invalid"

	// ErrorTypeNetwork indicates connectivity, timeout, server, or otherwise unclassified failures (retryable).
	ErrorTypeNetwork ErrorType = "network_error"

	// ErrorTypeParse indicates the response carried nothing usable (retryable).
	ErrorTypeParse ErrorType = "parse_error"

	// ErrorTypeImageNotFound indicates the problem's image file does not exist (non-retryable).
	ErrorTypeImageNotFound ErrorType = "image_not_found"

	// ErrorTypeUnsupportedImage indicates the problem's image is not a supported format (non-retryable).
	ErrorTypeUnsupportedImage ErrorType = "unsupported_image_format"
)

// Retryable reports whether a failure of this type may succeed on another
// attempt. Input validation failures never do.
func (t ErrorType) Retryable() bool {
	switch t {
	case ErrorTypeImageNotFound, ErrorTypeUnsupportedImage:
		return false
	default:
		return true
	}
}

// Describe returns an operator-facing explanation of the failure type.
func (t ErrorType) Describe() string {
	switch t {
	case ErrorTypeRateLimit:
		return "request quota exceeded; waiting before retry"
	case ErrorTypeAPIKeyInvalid:
		return "API key rejected; check GEMINI_API_KEY"
	case ErrorTypeNetwork:
		return "network or provider failure; check connectivity"
	case ErrorTypeParse:
		return "could not parse model response; retrying"
	case ErrorTypeImageNotFound:
		return "image file not found"
	case ErrorTypeUnsupportedImage:
		return "unsupported image format (png, jpg, jpeg only)"
	default:
		return "unknown error"
	}
}

// Common solve errors.
var (
	// ErrEmptyResponse indicates the provider returned no candidate text.
	ErrEmptyResponse = errors.New("empty model response")

	// ErrImageNotFound indicates a referenced image file is missing.
	ErrImageNotFound = errors.New("image not found")

	// ErrUnsupportedImage indicates a referenced image has an unsupported format.
	ErrUnsupportedImage = errors.New("unsupported image format")
)

// SolveError carries a classified solve failure. It mirrors the provider's
// status where one exists so logs keep the original signal.
type SolveError struct {
	Type       ErrorType `json:"type"`        // Classified failure kind
	Message    string    `json:"message"`     // Human-readable message
	Code       string    `json:"code"`        // Provider status, e.g. RESOURCE_EXHAUSTED
	StatusCode int       `json:"status_code"` // HTTP status when the provider answered
	Cause      error     `json:"-"`           // Underlying error
}

// New creates a SolveError of the given type.
func New(t ErrorType, message string) *SolveError {
	return &SolveError{Type: t, Message: message}
}

// Wrap classifies cause as the given type, keeping it for errors.Is/As.
func Wrap(t ErrorType, cause error) *SolveError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &SolveError{Type: t, Message: msg, Cause: cause}
}

// Error returns formatted error string with type and code context.
func (e *SolveError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As compatibility.
func (e *SolveError) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether the failure may be retried.
func (e *SolveError) IsRetryable() bool {
	return e.Type.Retryable()
}
