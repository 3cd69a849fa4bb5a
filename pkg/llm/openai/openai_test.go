package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/entrhq/tabpilot/pkg/llm"
	"github.com/entrhq/tabpilot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p, err := NewProvider("test-key", WithBaseURL(server.URL), WithModel("test-model"), WithUserAgent("tabpilot-test"))
	require.NoError(t, err)
	return p
}

func TestNewProvider_RequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewProvider("")
	assert.Error(t, err)
}

func TestNewProvider_Defaults(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "")
	p, err := NewProvider("k")
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, p.GetModelInfo().Name)
	assert.Equal(t, DefaultBaseURL, p.baseURL)
	assert.True(t, p.ReportsUsage())

	var _ llm.Provider = p
	var _ llm.Streamer = p
}

func TestStreamCompletion(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "tabpilot-test", r.Header.Get("User-Agent"))

		body, _ := io.ReadAll(r.Body)
		var req map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, true, req["stream"])
		assert.Equal(t, "test-model", req["model"])

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, ": keep-alive\n\n")
		io.WriteString(w, `data: {"choices":[{"index":0,"delta":{"role":"assistant"},"finish_reason":null}]}`+"\n\n")
		io.WriteString(w, `data: {"choices":[{"index":0,"delta":{"content":"Hello "},"finish_reason":null}]}`+"\n\n")
		io.WriteString(w, `data: {"choices":[{"index":0,"delta":{"content":"there"},"finish_reason":"stop"}]}`+"\n\n")
		io.WriteString(w, `data: {"choices":[],"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}}`+"\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	})

	stream, err := p.StreamCompletion(context.Background(), []*types.Message{types.NewUserMessage("hi")})
	require.NoError(t, err)

	resp, err := llm.Collect(stream, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", resp.Content)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestComplete(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"test-model",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"done"}}],
			"usage":{"prompt_tokens":5,"completion_tokens":1,"total_tokens":6}
		}`)
	})

	resp, err := p.Complete(context.Background(), []*types.Message{
		types.NewSystemMessage("sys"),
		types.NewUserMessage("hi"),
	})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Content)
	assert.Equal(t, 6, resp.Usage.TotalTokens)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType string
	}{
		{"rate limited", 429, `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`, llm.ErrorTypeRateLimited},
		{"overloaded", 529, `{"error":{"message":"Overloaded","type":"overloaded_error"}}`, llm.ErrorTypeOverloaded},
		{"auth", 401, `{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`, llm.ErrorTypeAuth},
		{"quota exhausted", 429, `{"error":{"message":"Quota exhausted","type":"requests","code":"insufficient_quota"}}`, llm.ErrorTypeQuota},
		{"plain body", 500, `upstream exploded`, llm.ErrorTypeAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			_, err := p.Complete(context.Background(), []*types.Message{types.NewUserMessage("hi")})
			require.Error(t, err)

			var pe *llm.ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.wantType, pe.Type)
			assert.Equal(t, tt.status, pe.StatusCode)
		})
	}
}

func TestStreamErrorEvent(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, `data: {"error":{"message":"Overloaded","type":"overloaded_error"}}`+"\n\n")
	})

	stream, err := p.StreamCompletion(context.Background(), []*types.Message{types.NewUserMessage("hi")})
	require.NoError(t, err)

	_, err = llm.Collect(stream, nil)
	var pe *llm.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, llm.ErrorTypeOverloaded, pe.Type)
}

func TestConvertToOpenAIMessages(t *testing.T) {
	msgs := convertToOpenAIMessages([]*types.Message{
		types.NewSystemMessage("s"),
		types.NewUserMessage("u"),
		types.NewAssistantMessage("a"),
	})
	assert.Len(t, msgs, 3)

	raw, err := json.Marshal(msgs)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"role":"system"`)
	assert.Contains(t, string(raw), `"role":"assistant"`)
}
