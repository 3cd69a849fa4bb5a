// Package llm defines the model-provider contract used by the agent loop.
//
// A provider accepts the assembled system prompt plus the trimmed history and
// returns either a complete response or a stream of chunks:
//
//	resp, err := provider.Complete(ctx, messages)
//	if err != nil {
//	    // err is usually a *llm.ProviderError carrying a Type tag
//	}
//
// Streaming is optional: providers that support it also implement Streamer.
package llm

import (
	"context"

	"github.com/entrhq/tabpilot/pkg/types"
)

// Provider defines the interface for LLM integrations.
type Provider interface {
	// Complete sends messages to the model and returns the full response.
	Complete(ctx context.Context, messages []*types.Message) (*Response, error)

	// GetModelInfo returns information about the model being used.
	GetModelInfo() *types.ModelInfo

	// ReportsUsage reports whether responses carry usage metadata. When false
	// the agent estimates token counts itself.
	ReportsUsage() bool
}

// Streamer is implemented by providers that can push incremental chunks.
//
// The returned channel emits content deltas and is closed when streaming
// completes. Stream-time errors are sent as chunks with Error set; an error
// return means the stream could not be started.
type Streamer interface {
	StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *StreamChunk, error)
}

// Response is a complete model response.
type Response struct {
	Content string
	Usage   *types.TokenUsage
}

// StreamChunk is one incremental piece of a streamed response.
type StreamChunk struct {
	Error    error
	Usage    *types.TokenUsage
	Content  string
	Role     string
	Finished bool
}

// IsError reports whether the chunk carries a stream-time error.
func (c *StreamChunk) IsError() bool {
	return c != nil && c.Error != nil
}

// Collect drains a stream into a Response, calling onDelta for every content
// chunk. The first error chunk aborts collection and is returned.
func Collect(stream <-chan *StreamChunk, onDelta func(string)) (*Response, error) {
	resp := &Response{}
	var content []byte
	for chunk := range stream {
		if chunk.IsError() {
			// drain so the producer goroutine can exit
			for range stream {
			}
			return nil, chunk.Error
		}
		if chunk.Content != "" {
			content = append(content, chunk.Content...)
			if onDelta != nil {
				onDelta(chunk.Content)
			}
		}
		if chunk.Usage != nil {
			resp.Usage = chunk.Usage
		}
	}
	resp.Content = string(content)
	return resp, nil
}
