package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProviderError_Type(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		vendorType string
		message    string
		want       string
	}{
		{"429", 429, "", "slow down", ErrorTypeRateLimited},
		{"vendor rate limit", 400, "rate_limit_exceeded", "quota", ErrorTypeRateLimited},
		{"quota on 429", 429, "insufficient_quota", "You exceeded your current quota", ErrorTypeQuota},
		{"quota by message", 429, "", "You exceeded your current quota, please check your plan.", ErrorTypeQuota},
		{"529", 529, "", "busy", ErrorTypeOverloaded},
		{"503", 503, "", "unavailable", ErrorTypeOverloaded},
		{"overloaded body", 500, "overloaded_error", "Overloaded", ErrorTypeOverloaded},
		{"auth", 401, "", "bad key", ErrorTypeAuth},
		{"bad request", 400, "invalid_request_error", "bad", ErrorTypeInvalid},
		{"server", 500, "", "oops", ErrorTypeAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewProviderError(tt.status, tt.vendorType, tt.message)
			assert.Equal(t, tt.want, err.Type)
			assert.Equal(t, tt.want, err.ErrorType())
		})
	}
}

func TestProviderError_Unwrap(t *testing.T) {
	inner := errors.New("dial tcp: refused")
	err := fmt.Errorf("call failed: %w", &ProviderError{Type: ErrorTypeTransport, Message: "refused", Err: inner})

	var pe *ProviderError
	assert.True(t, errors.As(err, &pe))
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "transport_error: refused", pe.Error())
}

func TestCollect(t *testing.T) {
	stream := make(chan *StreamChunk, 4)
	stream <- &StreamChunk{Role: "assistant"}
	stream <- &StreamChunk{Content: "Hello "}
	stream <- &StreamChunk{Content: "world"}
	stream <- &StreamChunk{Finished: true}
	close(stream)

	var deltas []string
	resp, err := Collect(stream, func(d string) { deltas = append(deltas, d) })

	assert.NoError(t, err)
	assert.Equal(t, "Hello world", resp.Content)
	assert.Equal(t, []string{"Hello ", "world"}, deltas)
}

func TestCollect_Error(t *testing.T) {
	stream := make(chan *StreamChunk, 3)
	stream <- &StreamChunk{Content: "partial"}
	stream <- &StreamChunk{Error: NewProviderError(529, "", "overloaded")}
	stream <- &StreamChunk{Content: "ignored"}
	close(stream)

	resp, err := Collect(stream, nil)

	assert.Nil(t, resp)
	var pe *ProviderError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, ErrorTypeOverloaded, pe.Type)
}
