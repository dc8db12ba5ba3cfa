package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorType_Retryable(t *testing.T) {
	tests := []struct {
		errType   ErrorType
		retryable bool
	}{
		{ErrorTypeRateLimit, true},
		{ErrorTypeAPIKeyInvalid, true},
		{ErrorTypeNetwork, true},
		{ErrorTypeParse, true},
		{ErrorTypeImageNotFound, false},
		{ErrorTypeUnsupportedImage, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errType), func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.errType.Retryable())
			assert.NotEqual(t, "unknown error", tt.errType.Describe())
		})
	}
}

func TestSolveError(t *testing.T) {
	t.Run("error_message_with_code", func(t *testing.T) {
		err := &SolveError{Type: ErrorTypeRateLimit, Message: "quota exceeded", Code: "RESOURCE_EXHAUSTED"}
		assert.Equal(t, "[rate_limit:RESOURCE_EXHAUSTED] quota exceeded", err.Error())
	})

	t.Run("error_message_without_code", func(t *testing.T) {
		err := New(ErrorTypeParse, "no candidates")
		assert.Equal(t, "[parse_error] no candidates", err.Error())
	})

	t.Run("unwrap_preserves_cause", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		err := Wrap(ErrorTypeNetwork, cause)

		assert.ErrorIs(t, err, cause)
		assert.Equal(t, cause.Error(), err.Message)
		assert.True(t, err.IsRetryable())
	})

	t.Run("errors_as_through_wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("solve problem 3: %w", New(ErrorTypeImageNotFound, "q3.png"))

		var solveErr *SolveError
		assert.True(t, errors.As(wrapped, &solveErr))
		assert.Equal(t, ErrorTypeImageNotFound, solveErr.Type)
		assert.False(t, solveErr.IsRetryable())
	})
}
