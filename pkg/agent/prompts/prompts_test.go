package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/entrhq/tabpilot/pkg/agent/tools"
	"github.com/entrhq/tabpilot/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(name, desc string) tools.Tool {
	return tools.NewFunc(name, desc, func(context.Context, string) (string, error) { return "", nil })
}

func sampleTools() []tools.Registered {
	return tools.RegisterAll(
		noop("browser_navigate", "Open a URL in the active tab"),
		noop("browser_click", "Click the element matching a CSS selector"),
		noop("browser_tab_new", "Open a new tab"),
	)
}

func TestGetSystemPrompt_Deterministic(t *testing.T) {
	a := NewAssembler("linux")
	a.UpdateTools(sampleTools())
	a.SetCurrentPageContext("https://example.com", "Example")

	b := NewAssembler("linux")
	b.UpdateTools(sampleTools())
	b.SetCurrentPageContext("https://example.com", "Example")

	assert.Equal(t, a.GetSystemPrompt(), a.GetSystemPrompt())
	assert.Equal(t, a.GetSystemPrompt(), b.GetSystemPrompt())
}

func TestGetSystemPrompt_SectionOrder(t *testing.T) {
	a := NewAssembler("linux")
	a.UpdateTools(sampleTools())
	a.SetCurrentPageContext("https://example.com/login", "Sign in")

	prompt := a.GetSystemPrompt()

	markers := []string{
		PersonaPrompt,
		"identify domain",
		"<tool_call>",
		"<requires_approval>true|false</requires_approval>",
		"browser_navigate: Open a URL in the active tab\nbrowser_click: Click the element matching a CSS selector\nbrowser_tab_new: Open a new tab\n",
		"Control key",
		"Current page: https://example.com/login\nTitle: Sign in",
	}

	last := -1
	for _, m := range markers {
		idx := strings.Index(strings.ToLower(prompt), strings.ToLower(m))
		require.GreaterOrEqual(t, idx, 0, "missing %q", m)
		assert.Greater(t, idx, last, "out of order: %q", m)
		last = idx
	}
}

func TestGetSystemPrompt_ModifierKey(t *testing.T) {
	assert.Contains(t, NewAssembler("darwin").GetSystemPrompt(), "Meta key")
	assert.NotContains(t, NewAssembler("darwin").GetSystemPrompt(), "Control key")
	assert.Contains(t, NewAssembler("windows").GetSystemPrompt(), "Control key")
	assert.Contains(t, NewAssembler("linux").GetSystemPrompt(), "Control key")
}

func TestGetSystemPrompt_PageContextOnlyWhenSet(t *testing.T) {
	a := NewAssembler("linux")
	assert.NotContains(t, a.GetSystemPrompt(), "Current page:")

	a.SetCurrentPageContext("https://a.com", "A")
	a.SetCurrentPageContext("https://b.com", "B")

	prompt := a.GetSystemPrompt()
	assert.Contains(t, prompt, "Current page: https://b.com")
	assert.NotContains(t, prompt, "https://a.com")
}

func TestUpdateTools_KeepsPageContext(t *testing.T) {
	a := NewAssembler("linux")
	a.SetCurrentPageContext("https://example.com", "Example")
	a.UpdateTools(sampleTools())
	a.UpdateTools(tools.RegisterAll(noop("memory_lookup", "Find memories")))

	prompt := a.GetSystemPrompt()
	assert.Contains(t, prompt, "Current page: https://example.com")
	assert.Contains(t, prompt, "memory_lookup: Find memories")
	assert.NotContains(t, prompt, "browser_click:")

	url, title := a.CurrentPage()
	assert.Equal(t, "https://example.com", url)
	assert.Equal(t, "Example", title)
}

func TestUpdateTools_Snapshot(t *testing.T) {
	list := sampleTools()
	a := NewAssembler("linux")
	a.UpdateTools(list)

	list[0] = tools.Register(noop("mutated", "x"))
	assert.NotContains(t, a.GetSystemPrompt(), "mutated")
}

func TestDetectPlatform(t *testing.T) {
	assert.NotEmpty(t, DetectPlatform())
	assert.Contains(t, NewAssembler("").GetSystemPrompt(), ModifierKey(DetectPlatform())+" key")
}

func TestBuildMessages(t *testing.T) {
	history := []*types.Message{
		types.NewSystemMessage("stale"),
		types.NewUserMessage("hi"),
		nil,
		types.NewAssistantMessage("hello"),
	}

	msgs := BuildMessages("sys", history)

	require.Len(t, msgs, 3)
	assert.Equal(t, types.RoleSystem, msgs[0].Role)
	assert.Equal(t, "sys", msgs[0].Content)
	assert.Equal(t, "hi", msgs[1].Content)
	assert.Equal(t, "hello", msgs[2].Content)
}
