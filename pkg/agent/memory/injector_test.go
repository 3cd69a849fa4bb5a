package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/entrhq/tabpilot/pkg/agent/tools"
	"github.com/entrhq/tabpilot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupTool(result string, err error, seen *string) tools.Tool {
	return tools.NewFunc(DefaultLookupTool, "look up memories", func(_ context.Context, input string) (string, error) {
		if seen != nil {
			*seen = input
		}
		return result, err
	})
}

func TestLookupMemories_Scenario(t *testing.T) {
	var seen string
	inj := NewInjector(DefaultLookupTool)
	inj.UpdateMemoryTool(tools.RegisterAll(lookupTool(
		`[{"taskDescription":"Login","toolSequence":["browser_click","browser_type"]}]`, nil, &seen)))

	got := inj.LookupMemories(context.Background(), "example.com", nil)

	require.Len(t, got, 1)
	assert.Equal(t, "example.com", seen)
	assert.Equal(t, types.RoleUser, got[0].Role)
	assert.Contains(t, got[0].Content, "1 memories")
	assert.Contains(t, got[0].Content, "browser_click → browser_type")
}

func TestLookupMemories_AppendsWithoutAltering(t *testing.T) {
	first := types.NewUserMessage("go to example.com")
	second := types.NewAssistantMessage("ok")
	msgs := []*types.Message{first, second}

	inj := NewInjector("")
	inj.UpdateMemoryTool(tools.RegisterAll(lookupTool(
		`[{"domain":"example.com","taskDescription":"Search","toolSequence":["browser_type"]},
		  {"taskDescription":"Checkout","toolSequence":["browser_click","browser_click","browser_screenshot"]}]`, nil, nil)))

	got := inj.LookupMemories(context.Background(), "example.com", msgs)

	require.Len(t, got, 3)
	assert.Same(t, first, got[0])
	assert.Same(t, second, got[1])
	assert.Len(t, msgs, 2)
	assert.Equal(t, "go to example.com", first.Content)
	assert.Equal(t,
		"Found 2 memories for example.com:\n- Search: browser_type\n- Checkout: browser_click → browser_click → browser_screenshot",
		got[2].Content)
}

func TestLookupMemories_NoOps(t *testing.T) {
	msgs := []*types.Message{types.NewUserMessage("hi")}

	tests := []struct {
		name  string
		tools []tools.Registered
	}{
		{"no tool", nil},
		{"other tools only", tools.RegisterAll(tools.NewFunc("browser_click", "", nil))},
		{"empty array", tools.RegisterAll(lookupTool("[]", nil, nil))},
		{"invalid json", tools.RegisterAll(lookupTool("Error: store unavailable", nil, nil))},
		{"invoke error", tools.RegisterAll(lookupTool("", errors.New("boom"), nil))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inj := NewInjector(DefaultLookupTool)
			inj.UpdateMemoryTool(tt.tools)

			got := inj.LookupMemories(context.Background(), "example.com", msgs)
			assert.Equal(t, msgs, got)
		})
	}
}

func TestUpdateMemoryTool_HotSwap(t *testing.T) {
	inj := NewInjector(DefaultLookupTool)
	inj.UpdateMemoryTool(tools.RegisterAll(lookupTool(`[{"taskDescription":"A","toolSequence":["x"]}]`, nil, nil)))
	inj.UpdateMemoryTool(tools.RegisterAll(lookupTool(`[{"taskDescription":"B","toolSequence":["y"]}]`, nil, nil)))

	got := inj.LookupMemories(context.Background(), "d.com", nil)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Content, "- B: y")

	inj.UpdateMemoryTool(nil)
	assert.Empty(t, inj.LookupMemories(context.Background(), "d.com", nil))
}

func TestDomainOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.Example.com/login?x=1", "example.com"},
		{"http://shop.example.com:8080/", "shop.example.com"},
		{"example.com/path", "example.com"},
		{"about:blank", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, DomainOf(tt.in))
		})
	}
}

func TestDomainFromPrompt(t *testing.T) {
	assert.Equal(t, "news.ycombinator.com", DomainFromPrompt("Open https://news.ycombinator.com/news, then summarize."))
	assert.Equal(t, "", DomainFromPrompt("summarize the current page"))
}
