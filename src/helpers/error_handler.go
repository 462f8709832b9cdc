package helpers

import (
	"fmt"
	"strings"
	"time"

	"market-streamer/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type StreamerError struct {
	Message string
	Cause   error
}

func (e *StreamerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *StreamerError) Unwrap() error {
	return e.Cause
}

type ConfigurationError struct{ StreamerError }
type DatabaseError struct{ StreamerError }

// -----------------------------------------------------------------------------

// FieldError describes one rejected field of an inbound payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned for malformed subscribe/unsubscribe payloads.
// No state is mutated when it is raised.
type ValidationError struct {
	StreamerError
	Fields []FieldError
}

func NewValidationError(fields []FieldError) *ValidationError {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return &ValidationError{
		StreamerError: StreamerError{Message: strings.Join(parts, "; ")},
		Fields:        fields,
	}
}

// ProtocolError is returned for frames that cannot be dispatched.
type ProtocolError struct {
	StreamerError
	Code string
}

func NewProtocolError(code, message string, cause error) *ProtocolError {
	return &ProtocolError{
		StreamerError: StreamerError{Message: message, Cause: cause},
		Code:          code,
	}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts fn up to maxRetries times with exponential backoff.
func RetryWithBackoff(log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)
		time.Sleep(delay)
	}

	return &StreamerError{Message: fmt.Sprintf("%s failed after %d attempts", operation, maxRetries), Cause: lastErr}
}
