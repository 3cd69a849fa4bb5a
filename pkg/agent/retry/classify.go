// Package retry classifies provider errors, computes retry backoff and holds
// the cooperative cancellation flag of one execution.
package retry

import (
	"errors"
	"fmt"

	"github.com/entrhq/tabpilot/pkg/llm"
)

// Kind is the retry-relevant classification of a provider error.
type Kind string

const (
	KindRateLimited Kind = "rate_limited"
	KindOverloaded  Kind = "overloaded"
	KindOther       Kind = "other"
)

// typedError is satisfied by any error exposing a structured type tag.
type typedError interface {
	ErrorType() string
}

// Classify reads the structured type tag of err. Errors without a tag, and
// tags other than rate_limited/overloaded, are KindOther.
func Classify(err error) Kind {
	if err == nil {
		return KindOther
	}

	var tag string
	var pe *llm.ProviderError
	var te typedError
	switch {
	case errors.As(err, &pe):
		tag = pe.Type
	case errors.As(err, &te):
		tag = te.ErrorType()
	default:
		return KindOther
	}

	switch tag {
	case llm.ErrorTypeRateLimited:
		return KindRateLimited
	case llm.ErrorTypeOverloaded:
		return KindOverloaded
	}
	return KindOther
}

// IsRetryable is true only for rate-limited and overloaded errors.
func IsRetryable(err error) bool {
	switch Classify(err) {
	case KindRateLimited, KindOverloaded:
		return true
	}
	return false
}

// FormatErrorMessage renders any failure value as a user-facing string.
func FormatErrorMessage(v any) string {
	err, ok := v.(error)
	if !ok {
		return fmt.Sprintf("Error: %v", v)
	}
	if err == nil {
		return "Error: <nil>"
	}

	switch Classify(err) {
	case KindRateLimited:
		return "Rate limit error: " + messageOf(err)
	case KindOverloaded:
		return "API servers overloaded: " + messageOf(err) + ". Retrying..."
	}
	return "Error: " + err.Error()
}

// messageOf prefers the vendor message over the decorated Error() string.
func messageOf(err error) string {
	var pe *llm.ProviderError
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return err.Error()
}
