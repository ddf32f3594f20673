package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrMissingAPIKey means no credential is configured, so no call can be made.
var ErrMissingAPIKey = errors.New("llm: api key not configured")

// Provider is the interface completion backends implement.
type Provider interface {
	// Complete sends messages and returns the completion text.
	Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error)

	// Name returns the provider name (e.g. "openai", "anthropic").
	Name() string
}

// ProviderError wraps a failed call with a classification.
type ProviderError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func malformed(msg string) *ProviderError {
	return &ProviderError{Type: ErrorMalformed, Message: msg}
}

// classify maps an SDK error to a ProviderError. status is the HTTP status
// when the SDK exposed one, 0 otherwise.
func classify(err error, status int) *ProviderError {
	pe := &ProviderError{Err: err, Message: "completion failed"}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		pe.Type = ErrorTimeout
	case status != 0:
		pe.Type = typeFromStatus(status)
	default:
		pe.Type = typeFromMessage(strings.ToLower(err.Error()))
	}
	return pe
}

func typeFromStatus(status int) ErrorType {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorAuth
	case status == http.StatusTooManyRequests:
		return ErrorRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrorTimeout
	case status >= 500:
		return ErrorServerError
	case status >= 400:
		return ErrorInvalidInput
	default:
		return ErrorUnknown
	}
}

func typeFromMessage(lower string) ErrorType {
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "403") || strings.Contains(lower, "unauthorized"):
		return ErrorAuth
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit") || strings.Contains(lower, "rate_limit"):
		return ErrorRateLimit
	case strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline"):
		return ErrorTimeout
	case strings.Contains(lower, "connection") || strings.Contains(lower, "dns") || strings.Contains(lower, "refused"):
		return ErrorNetwork
	default:
		return ErrorUnknown
	}
}
