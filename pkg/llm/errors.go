package llm

import (
	"fmt"
	"net/http"
	"strings"
)

// Error type tags understood by the retry engine.
const (
	ErrorTypeRateLimited = "rate_limited"
	ErrorTypeOverloaded  = "overloaded"
	ErrorTypeAPI         = "api_error"
	ErrorTypeAuth        = "authentication_error"
	ErrorTypeInvalid     = "invalid_request_error"
	ErrorTypeTransport   = "transport_error"

	// ErrorTypeQuota marks an exhausted account quota. It arrives as a 429
	// but waiting does not help.
	ErrorTypeQuota = "insufficient_quota"
)

// ProviderError is a classifiable provider failure.
type ProviderError struct {
	Err        error
	Type       string
	Message    string
	StatusCode int
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorType returns the structured type tag.
func (e *ProviderError) ErrorType() string {
	return e.Type
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError builds a ProviderError, inferring its type from the HTTP
// status and the vendor error type found in the body (if any).
func NewProviderError(statusCode int, vendorType, message string) *ProviderError {
	return &ProviderError{
		Type:       typeFromResponse(statusCode, vendorType, message),
		Message:    message,
		StatusCode: statusCode,
	}
}

func typeFromResponse(statusCode int, vendorType, message string) string {
	vt := strings.ToLower(vendorType)
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(vt, ErrorTypeQuota),
		strings.Contains(lower, "exceeded your current quota"):
		return ErrorTypeQuota
	case statusCode == http.StatusTooManyRequests,
		strings.Contains(vt, "rate_limit"),
		strings.Contains(lower, "rate limit"):
		return ErrorTypeRateLimited
	case statusCode == 529,
		statusCode == http.StatusServiceUnavailable,
		strings.Contains(vt, "overloaded"),
		strings.Contains(lower, "overloaded"):
		return ErrorTypeOverloaded
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return ErrorTypeAuth
	case statusCode == http.StatusBadRequest, statusCode == http.StatusNotFound:
		return ErrorTypeInvalid
	}
	return ErrorTypeAPI
}
