package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/entrhq/tabpilot/pkg/llm"
	"github.com/entrhq/tabpilot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taggedErr struct{ tag string }

func (e taggedErr) Error() string     { return "tagged " + e.tag }
func (e taggedErr) ErrorType() string { return e.tag }

var (
	rateLimited = &llm.ProviderError{Type: llm.ErrorTypeRateLimited, Message: "slow down", StatusCode: 429}
	overloaded  = &llm.ProviderError{Type: llm.ErrorTypeOverloaded, Message: "busy", StatusCode: 529}
	authFailure = &llm.ProviderError{Type: llm.ErrorTypeAuth, Message: "bad key", StatusCode: 401}
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindOther},
		{"rate limited", rateLimited, KindRateLimited},
		{"wrapped overloaded", fmt.Errorf("call: %w", overloaded), KindOverloaded},
		{"auth", authFailure, KindOther},
		{"foreign tag", taggedErr{"overloaded"}, KindOverloaded},
		{"untagged", errors.New("rate_limited"), KindOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(rateLimited))
	assert.True(t, IsRetryable(overloaded))
	assert.False(t, IsRetryable(authFailure))
	assert.False(t, IsRetryable(llm.NewProviderError(429, llm.ErrorTypeQuota, "You exceeded your current quota")))
	assert.False(t, IsRetryable(errors.New("boom")))
	assert.False(t, IsRetryable(nil))
}

func TestFormatErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"rate limited", rateLimited, "Rate limit error: slow down"},
		{"overloaded", overloaded, "API servers overloaded: busy. Retrying..."},
		{"plain error", errors.New("boom"), "Error: boom"},
		{"string", "just text", "Error: just text"},
		{"number", 42, "Error: 42"},
		{"nil", nil, "Error: <nil>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatErrorMessage(tt.in))
		})
	}
}

func withJitter(t *testing.T, fn func(int64) int64) {
	t.Helper()
	orig := jitter
	jitter = fn
	t.Cleanup(func() { jitter = orig })
}

func TestCalculateBackoff_Deterministic(t *testing.T) {
	withJitter(t, func(int64) int64 { return 0 })

	assert.Equal(t, 1000*time.Millisecond, CalculateBackoff(rateLimited, 0))
	assert.Equal(t, 2000*time.Millisecond, CalculateBackoff(overloaded, 0))
	assert.Equal(t, 1000*time.Millisecond, CalculateBackoff(errors.New("x"), 0))
	assert.Equal(t, 8000*time.Millisecond, CalculateBackoff(rateLimited, 3))
	assert.Equal(t, 32000*time.Millisecond, CalculateBackoff(rateLimited, 5))
	assert.Equal(t, 32000*time.Millisecond, CalculateBackoff(rateLimited, 9))
	assert.Equal(t, 1000*time.Millisecond, CalculateBackoff(rateLimited, -2))
}

func TestCalculateBackoff_JitterBounds(t *testing.T) {
	for i := 0; i < 200; i++ {
		d := CalculateBackoff(overloaded, 0)
		assert.GreaterOrEqual(t, d, 2000*time.Millisecond)
		assert.LessOrEqual(t, d, 2500*time.Millisecond)
		assert.Zero(t, d%time.Millisecond)
	}
}

func TestCalculateBackoff_Growth(t *testing.T) {
	for _, err := range []error{rateLimited, overloaded} {
		for attempt := 0; attempt < 5; attempt++ {
			for i := 0; i < 50; i++ {
				cur := CalculateBackoff(err, attempt)
				next := CalculateBackoff(err, attempt+1)
				assert.Greater(t, float64(next), 1.5*float64(cur), "attempt %d", attempt)
			}
		}
	}

	withJitter(t, func(int64) int64 { return 0 })
	assert.Equal(t, CalculateBackoff(rateLimited, 5), CalculateBackoff(rateLimited, 6))
}

func TestCalculateBackoff_OverloadedExceedsRateLimited(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.Greater(t, CalculateBackoff(overloaded, 0), CalculateBackoff(rateLimited, 0))
	}
}

func TestCalculateBackoff_JitterVaries(t *testing.T) {
	seen := make(map[time.Duration]bool)
	for i := 0; i < 50; i++ {
		seen[CalculateBackoff(rateLimited, 1)] = true
	}
	assert.Greater(t, len(seen), 1)
}

type completeOnly struct{}

func (completeOnly) Complete(context.Context, []*types.Message) (*llm.Response, error) {
	return &llm.Response{}, nil
}
func (completeOnly) GetModelInfo() *types.ModelInfo { return &types.ModelInfo{} }
func (completeOnly) ReportsUsage() bool             { return false }

type streaming struct{ completeOnly }

func (streaming) StreamCompletion(context.Context, []*types.Message) (<-chan *llm.StreamChunk, error) {
	ch := make(chan *llm.StreamChunk)
	close(ch)
	return ch, nil
}

func TestIsStreamingSupported(t *testing.T) {
	assert.False(t, IsStreamingSupported(completeOnly{}, "tabpilot/1.0"))
	assert.True(t, IsStreamingSupported(streaming{}, "tabpilot/1.0"))
	assert.False(t, IsStreamingSupported(streaming{}, "Mozilla/4.0 (compatible; MSIE 8.0; Windows NT 6.1)"))
	assert.False(t, IsStreamingSupported(streaming{}, "Mozilla/5.0 (Windows NT 10.0; Trident/7.0; rv:11.0)"))
}

func TestStreamingPolicy_Custom(t *testing.T) {
	p, err := NewStreamingPolicy([]string{"legacy-proxy/*"})
	require.NoError(t, err)

	assert.False(t, p.Supported(streaming{}, "legacy-proxy/2.1"))
	assert.True(t, p.Supported(streaming{}, "Mozilla/4.0 (compatible; MSIE 8.0)"))
	assert.False(t, p.Supported(completeOnly{}, "anything"))
}

func TestExecutionState(t *testing.T) {
	var s ExecutionState
	assert.False(t, s.IsCancelled())

	s.Cancel()
	assert.True(t, s.IsCancelled())

	s.ResetCancel()
	assert.False(t, s.IsCancelled())
}
