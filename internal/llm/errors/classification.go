package errors

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// Classify turns any solve failure into a SolveError. Typed errors are
// inspected first, then sentinels, then message patterns; anything left
// over is treated as a network error so it stays retryable.
func Classify(err error) *SolveError {
	if err == nil {
		return nil
	}

	var solveErr *SolveError
	if errors.As(err, &solveErr) {
		return solveErr
	}

	if classified := classifySentinelErrors(err); classified != nil {
		return classified
	}

	return classifyStringPatternErrors(err)
}

// FromStatus classifies a provider error response by HTTP status code,
// provider status string, and message.
func FromStatus(statusCode int, status, message string, cause error) *SolveError {
	e := &SolveError{
		Message:    message,
		Code:       status,
		StatusCode: statusCode,
		Cause:      cause,
	}

	upper := strings.ToUpper(status)
	switch {
	case statusCode == http.StatusTooManyRequests || upper == "RESOURCE_EXHAUSTED":
		e.Type = ErrorTypeRateLimit
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden ||
		upper == "UNAUTHENTICATED" || upper == "PERMISSION_DENIED":
		e.Type = ErrorTypeAPIKeyInvalid
	case statusCode == http.StatusBadRequest && mentionsAPIKey(strings.ToLower(message)):
		// Gemini reports a malformed key as INVALID_ARGUMENT.
		e.Type = ErrorTypeAPIKeyInvalid
	default:
		e.Type = classifyStringPatternErrors(errors.New(message)).Type
	}
	return e
}

func classifySentinelErrors(err error) *SolveError {
	switch {
	case errors.Is(err, ErrImageNotFound):
		return Wrap(ErrorTypeImageNotFound, err)
	case errors.Is(err, ErrUnsupportedImage):
		return Wrap(ErrorTypeUnsupportedImage, err)
	case errors.Is(err, ErrEmptyResponse):
		return Wrap(ErrorTypeParse, err)
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(ErrorTypeNetwork, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Wrap(ErrorTypeNetwork, err)
	}

	return nil
}

// classifyStringPatternErrors handles untyped errors by message content.
func classifyStringPatternErrors(err error) *SolveError {
	errMsg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errMsg, "rate limit") || strings.Contains(errMsg, "ratelimit") ||
		strings.Contains(errMsg, "quota") || strings.Contains(errMsg, "too many requests"):
		return Wrap(ErrorTypeRateLimit, err)
	case mentionsAPIKey(errMsg) || strings.Contains(errMsg, "unauthorized") ||
		strings.Contains(errMsg, "unauthenticated"):
		return Wrap(ErrorTypeAPIKeyInvalid, err)
	default:
		return Wrap(ErrorTypeNetwork, err)
	}
}

func mentionsAPIKey(lowered string) bool {
	return strings.Contains(lowered, "api key") ||
		strings.Contains(lowered, "api_key") ||
		strings.Contains(lowered, "apikey")
}
