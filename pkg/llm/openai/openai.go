// Package openai provides an OpenAI-compatible LLM provider implementation.
//
// Example usage:
//
//	provider, err := openai.NewProvider(
//	    os.Getenv("OPENAI_API_KEY"),
//	    openai.WithModel("gpt-4o"),
//	)
//	if err != nil {
//	    panic(err)
//	}
//	resp, err := provider.Complete(ctx, []*types.Message{types.NewUserMessage("Hello!")})
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/entrhq/tabpilot/pkg/llm"
	"github.com/entrhq/tabpilot/pkg/types"
	"github.com/openai/openai-go"
)

const (
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model option is given.
	DefaultModel = "gpt-4o"
)

// Provider implements llm.Provider and llm.Streamer for OpenAI-compatible APIs.
type Provider struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	userAgent  string
	modelInfo  *types.ModelInfo
}

// ProviderOption is a function that configures a Provider.
type ProviderOption func(*Provider)

// WithModel sets the model to use for completions.
func WithModel(model string) ProviderOption {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithBaseURL sets a custom base URL for OpenAI-compatible APIs.
func WithBaseURL(baseURL string) ProviderOption {
	return func(p *Provider) {
		if baseURL != "" {
			p.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client (tests point this at httptest servers).
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ProviderOption {
	return func(p *Provider) {
		p.userAgent = ua
	}
}

// NewProvider creates a new OpenAI provider with the given API key.
//
// If apiKey is empty, OPENAI_API_KEY is used. If no base URL option is given,
// OPENAI_BASE_URL is checked before falling back to DefaultBaseURL.
func NewProvider(apiKey string, opts ...ProviderOption) (*Provider, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (provide via parameter or OPENAI_API_KEY environment variable)")
	}

	p := &Provider{
		model:      DefaultModel,
		apiKey:     apiKey,
		httpClient: &http.Client{},
		baseURL:    DefaultBaseURL,
		userAgent:  "tabpilot",
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.baseURL == DefaultBaseURL {
		if envBaseURL := os.Getenv("OPENAI_BASE_URL"); envBaseURL != "" {
			p.baseURL = strings.TrimRight(envBaseURL, "/")
		}
	}

	p.modelInfo = &types.ModelInfo{
		Metadata:          make(map[string]interface{}),
		Provider:          "openai",
		Name:              p.model,
		MaxTokens:         128000,
		SupportsStreaming: true,
		ReportsUsage:      true,
	}
	if p.baseURL != DefaultBaseURL {
		p.modelInfo.Metadata["base_url"] = p.baseURL
	}

	return p, nil
}

// GetModelInfo returns information about the model being used.
func (p *Provider) GetModelInfo() *types.ModelInfo {
	return p.modelInfo
}

// ReportsUsage is true: both completion modes request usage from the API.
func (p *Provider) ReportsUsage() bool {
	return true
}

// Complete sends messages and returns the full, non-streamed response.
func (p *Provider) Complete(ctx context.Context, messages []*types.Message) (*llm.Response, error) {
	resp, err := p.send(ctx, messages, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &llm.ProviderError{Type: llm.ErrorTypeTransport, Message: "failed to read response", Err: err}
	}

	var completion openai.ChatCompletion
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, &llm.ProviderError{Type: llm.ErrorTypeAPI, Message: "malformed completion response", Err: err}
	}
	if len(completion.Choices) == 0 {
		return nil, &llm.ProviderError{Type: llm.ErrorTypeAPI, Message: "completion response has no choices"}
	}

	return &llm.Response{
		Content: completion.Choices[0].Message.Content,
		Usage: &types.TokenUsage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}, nil
}

// StreamCompletion sends messages and streams back response chunks.
//
// Raw HTTP streaming is used so SSE comments and slight format variations
// from OpenAI-compatible servers are tolerated.
func (p *Provider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	resp, err := p.send(ctx, messages, true)
	if err != nil {
		return nil, err
	}

	chunks := make(chan *llm.StreamChunk, 10)
	go p.processStreamResponse(ctx, resp, chunks)
	return chunks, nil
}

// send creates and sends the HTTP request, translating non-200 responses into
// classified provider errors.
func (p *Provider) send(ctx context.Context, messages []*types.Message, stream bool) (*http.Response, error) {
	reqBody := map[string]interface{}{
		"model":    p.model,
		"messages": convertToOpenAIMessages(messages),
		"stream":   stream,
	}
	if stream {
		reqBody["stream_options"] = map[string]interface{}{"include_usage": true}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &llm.ProviderError{Type: llm.ErrorTypeTransport, Message: err.Error(), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, llm.NewProviderError(resp.StatusCode, "", fmt.Sprintf("failed to read error body: %v", readErr))
		}
		return nil, parseErrorBody(resp.StatusCode, body)
	}

	return resp, nil
}

// parseErrorBody extracts {"error":{"type","message"}} when present.
func parseErrorBody(statusCode int, body []byte) *llm.ProviderError {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    any    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		vendorType := envelope.Error.Type
		if code, ok := envelope.Error.Code.(string); ok && (vendorType == "" || code == llm.ErrorTypeQuota) {
			vendorType = code
		}
		return llm.NewProviderError(statusCode, vendorType, envelope.Error.Message)
	}

	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return llm.NewProviderError(statusCode, "", message)
}

// streamEvent is the subset of a chat.completion.chunk the provider reads.
type streamEvent struct {
	Choices []struct {
		Delta struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// processStreamResponse reads the SSE stream and forwards chunks
func (p *Provider) processStreamResponse(ctx context.Context, resp *http.Response, chunks chan<- *llm.StreamChunk) {
	defer close(chunks)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !isDataLine(line) {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			p.send1(ctx, chunks, &llm.StreamChunk{Finished: true})
			return
		}

		var event streamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			continue // tolerate malformed chunks
		}

		if event.Error != nil {
			p.send1(ctx, chunks, &llm.StreamChunk{Error: llm.NewProviderError(0, event.Error.Type, event.Error.Message)})
			return
		}

		if event.Usage != nil {
			usage := &types.TokenUsage{
				PromptTokens:     event.Usage.PromptTokens,
				CompletionTokens: event.Usage.CompletionTokens,
				TotalTokens:      event.Usage.TotalTokens,
			}
			if !p.send1(ctx, chunks, &llm.StreamChunk{Usage: usage}) {
				return
			}
		}

		if len(event.Choices) == 0 {
			continue
		}

		choice := event.Choices[0]
		chunk := &llm.StreamChunk{
			Role:     choice.Delta.Role,
			Content:  choice.Delta.Content,
			Finished: choice.FinishReason != nil && *choice.FinishReason == "stop",
		}
		if chunk.Role == "" && chunk.Content == "" && !chunk.Finished {
			continue
		}
		if !p.send1(ctx, chunks, chunk) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			p.send1(ctx, chunks, &llm.StreamChunk{Error: ctx.Err()})
			return
		}
		p.send1(ctx, chunks, &llm.StreamChunk{Error: &llm.ProviderError{Type: llm.ErrorTypeTransport, Message: "stream read error", Err: err}})
	}
}

// send1 delivers one chunk unless the context is done first.
func (p *Provider) send1(ctx context.Context, chunks chan<- *llm.StreamChunk, chunk *llm.StreamChunk) bool {
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

func isDataLine(line string) bool {
	return line != "" && !strings.HasPrefix(line, ":") && strings.HasPrefix(line, "data: ")
}

// convertToOpenAIMessages converts our Message format to OpenAI's ChatCompletionMessageParamUnion format.
func convertToOpenAIMessages(messages []*types.Message) []openai.ChatCompletionMessageParamUnion {
	openaiMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			openaiMessages = append(openaiMessages, openai.SystemMessage(msg.Content))
		case types.RoleAssistant:
			openaiMessages = append(openaiMessages, openai.AssistantMessage(msg.Content))
		default:
			openaiMessages = append(openaiMessages, openai.UserMessage(msg.Content))
		}
	}

	return openaiMessages
}
