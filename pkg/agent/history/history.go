// Package history estimates conversation size and trims it to a token budget
// without ever dropping the opening message or a user turn.
package history

import (
	"encoding/json"
	"fmt"

	"github.com/entrhq/tabpilot/pkg/types"
)

// DefaultMaxTokens is the budget used when callers pass a non-positive limit.
const DefaultMaxTokens = 100000

// ApproxTokens estimates tokens as ceil(len/4). Non-string values are
// serialized first (JSON, which sorts map keys) before measuring.
func ApproxTokens(v any) int {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case []byte:
		s = string(t)
	case nil:
		return 0
	default:
		b, err := json.Marshal(t)
		if err != nil {
			s = fmt.Sprint(t)
		} else {
			s = string(b)
		}
	}
	return (len(s) + 3) / 4
}

// ContextTokenCount sums ApproxTokens over every message's content.
func ContextTokenCount(messages []*types.Message) int {
	total := 0
	for _, m := range messages {
		if m != nil {
			total += ApproxTokens(m.Content)
		}
	}
	return total
}

// TrimHistory returns messages unchanged when they fit in maxTokens.
// Otherwise it keeps messages[0] and every user message, then fills the
// remaining budget with the newest assistant messages, stopping at the first
// one that does not fit. Relative order is preserved. When the mandatory set
// alone exceeds the budget, exactly that set is returned.
func TrimHistory(messages []*types.Message, maxTokens int) []*types.Message {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if ContextTokenCount(messages) <= maxTokens {
		return messages
	}

	keep := make([]bool, len(messages))
	used := 0
	for i, m := range messages {
		if i == 0 || m.IsUser() {
			keep[i] = true
			used += ApproxTokens(m.Content)
		}
	}

	if used <= maxTokens {
		for i := len(messages) - 1; i > 0; i-- {
			if keep[i] {
				continue
			}
			cost := ApproxTokens(messages[i].Content)
			if used+cost > maxTokens {
				break
			}
			keep[i] = true
			used += cost
		}
	}

	trimmed := make([]*types.Message, 0, len(messages))
	for i, m := range messages {
		if keep[i] {
			trimmed = append(trimmed, m)
		}
	}
	return trimmed
}
