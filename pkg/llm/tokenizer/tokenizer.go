// Package tokenizer estimates token usage for providers that do not report it.
package tokenizer

import (
	"github.com/entrhq/tabpilot/pkg/types"
	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE used for OpenAI-family chat models.
const DefaultEncoding = "cl100k_base"

// perMessageOverhead approximates the role/formatting tokens each chat message costs.
const perMessageOverhead = 4

// Tokenizer counts tokens with tiktoken, degrading to a 4-chars-per-token
// estimate when the encoding cannot be loaded.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New loads the default encoding. The returned Tokenizer is always usable;
// the error reports that counts will be approximate.
func New() (*Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(DefaultEncoding)
	if err != nil {
		return &Tokenizer{}, err
	}
	return &Tokenizer{enc: enc}, nil
}

// Exact reports whether counts come from the real encoding.
func (t *Tokenizer) Exact() bool {
	return t != nil && t.enc != nil
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	if !t.Exact() {
		return (len(text) + 3) / 4
	}
	return len(t.enc.Encode(text, nil, nil))
}

// CountMessagesTokens returns the tokens of a full chat request.
func (t *Tokenizer) CountMessagesTokens(messages []*types.Message) int {
	total := 0
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		total += perMessageOverhead + t.CountTokens(string(msg.Role)) + t.CountTokens(msg.Content)
	}
	return total
}

// EstimateUsage builds a TokenUsage for one request/response pair.
func (t *Tokenizer) EstimateUsage(prompt []*types.Message, completion string) types.TokenUsage {
	p := t.CountMessagesTokens(prompt)
	c := t.CountTokens(completion)
	return types.TokenUsage{
		PromptTokens:     p,
		CompletionTokens: c,
		TotalTokens:      p + c,
		Estimated:        true,
	}
}
