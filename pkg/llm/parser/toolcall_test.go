package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func feed(p *ToolCallParser, chunks ...string) (prose, call string) {
	for _, c := range chunks {
		pr, tc := p.Parse(c)
		prose += pr
		call += tc
	}
	pr, tc := p.Flush()
	return prose + pr, call + tc
}

func TestToolCallParser(t *testing.T) {
	tests := []struct {
		name      string
		chunks    []string
		wantProse string
		wantCall  string
	}{
		{
			name:      "prose only",
			chunks:    []string{"The page ", "has loaded."},
			wantProse: "The page has loaded.",
		},
		{
			name: "tool call in one chunk",
			chunks: []string{
				"Opening the cart.\n<tool_call><tool_name>browser_click</tool_name></tool_call>",
			},
			wantProse: "Opening the cart.\n",
			wantCall:  "<tool_call><tool_name>browser_click</tool_name></tool_call>",
		},
		{
			name:      "tags split across chunks",
			chunks:    []string{"Next.<to", "ol_ca", "ll><tool_name>browser_wait</tool_", "name></tool", "_call>"},
			wantProse: "Next.",
			wantCall:  "<tool_call><tool_name>browser_wait</tool_name></tool_call>",
		},
		{
			name:      "comparison operators stay prose",
			chunks:    []string{"Price < 20 and rating > 4, ", "so i<10 is fine."},
			wantProse: "Price < 20 and rating > 4, so i<10 is fine.",
		},
		{
			name:      "long non-tag after less-than",
			chunks:    []string{"a <this is definitely not a tag at all> b"},
			wantProse: "a <this is definitely not a tag at all> b",
		},
		{
			name:      "spaced tag",
			chunks:    []string{"Go.<tool_call >x</tool_call>"},
			wantProse: "Go.",
			wantCall:  "<tool_call >x</tool_call>",
		},
		{
			name:      "unfinished tag flushed",
			chunks:    []string{"done <"},
			wantProse: "done <",
		},
		{
			name:      "prose after the block",
			chunks:    []string{"<tool_call>x</tool_call>", " trailing"},
			wantProse: " trailing",
			wantCall:  "<tool_call>x</tool_call>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prose, call := feed(NewToolCallParser(), tt.chunks...)
			assert.Equal(t, tt.wantProse, prose)
			assert.Equal(t, tt.wantCall, call)
		})
	}
}

func TestToolCallParser_State(t *testing.T) {
	p := NewToolCallParser()

	p.Parse("<tool_call><tool_name>")
	assert.True(t, p.InToolCall())

	p.Parse("x</tool_name></tool_call>")
	assert.False(t, p.InToolCall())

	p.Parse("<tool_call>")
	p.Reset()
	assert.False(t, p.InToolCall())
	prose, call := p.Parse("hello")
	assert.Equal(t, "hello", prose)
	assert.Empty(t, call)
}
