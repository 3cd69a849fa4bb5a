package browser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/entrhq/tabpilot/pkg/agent/tools"
	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolSet_NamesAndKinds(t *testing.T) {
	set := NewToolSet(NewTabManager(Options{}))
	list := tools.RegisterAll(set.Tools()...)

	assert.Equal(t, []string{
		"browser_tab_new",
		"browser_tab_list",
		"browser_tab_select",
		"browser_tab_close",
		"browser_navigate",
		"browser_click",
		"browser_type",
		"browser_press_key",
		"browser_wait",
		"browser_get_content",
		"browser_search",
		"browser_screenshot",
		"browser_evaluate",
	}, tools.Names(list))

	for _, r := range list[:4] {
		assert.Equal(t, tools.KindTabLifecycle, r.Kind, r.Name())
	}
	for _, r := range list[4:] {
		assert.Equal(t, tools.KindSessionDependent, r.Kind, r.Name())
		assert.NotEmpty(t, r.Description())
	}

	assert.Same(t, &set.Tools()[0], &set.Tools()[0])

	nav, ok := set.Lookup("browser_navigate")
	require.True(t, ok)
	assert.Equal(t, "browser_navigate", nav.Name())
	_, ok = set.Lookup("browser_teleport")
	assert.False(t, ok)
}

func TestTabManager_NotStarted(t *testing.T) {
	m := NewTabManager(Options{})
	ctx := context.Background()

	assert.ErrorIs(t, m.Probe(ctx), ErrNotStarted)

	_, _, err := m.CurrentPage(ctx)
	assert.ErrorIs(t, err, ErrNotStarted)

	_, err = m.ActiveWindowID(ctx)
	assert.ErrorIs(t, err, ErrNoActiveTab)

	_, err = m.NewTab()
	assert.ErrorIs(t, err, ErrNotStarted)

	_, err = m.ListTabs()
	assert.ErrorIs(t, err, ErrNotStarted)

	assert.ErrorIs(t, m.CloseTab(1), ErrNotStarted)
	assert.NoError(t, m.Shutdown())
}

func TestTabManager_FirstPageFailureTearsDown(t *testing.T) {
	m := NewTabManager(Options{})
	tornDown := 0

	m.mu.Lock()
	err := m.attachLocked(
		func() (playwright.Page, error) { return nil, errors.New("target closed") },
		func() { tornDown++ },
	)
	m.mu.Unlock()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "target closed")
	assert.Equal(t, 1, tornDown)
	assert.Equal(t, 0, m.ActiveTabID())

	_, err = m.NewTab()
	assert.ErrorIs(t, err, ErrNotStarted)
	_, err = m.ListTabs()
	assert.ErrorIs(t, err, ErrNotStarted)
	assert.NoError(t, m.Shutdown())
}

func TestOptionsDefaults(t *testing.T) {
	m := NewTabManager(Options{Headless: true, MaxContentLength: 500})
	opts := m.Options()

	assert.Equal(t, DefaultViewportWidth, opts.Viewport.Width)
	assert.Equal(t, DefaultViewportHeight, opts.Viewport.Height)
	assert.Equal(t, DefaultTimeout, opts.Timeout)
	assert.Equal(t, DefaultProbeTimeout, opts.ProbeTimeout)
	assert.Equal(t, 500, opts.MaxContentLength)
}

func TestWindowID(t *testing.T) {
	assert.Equal(t, "tab-3", WindowID(3))
}

// Input is validated before the browser is touched, so these run without one.
func TestTools_InputValidation(t *testing.T) {
	m := NewTabManager(Options{})

	tests := []struct {
		name    string
		tool    tools.Tool
		input   string
		wantErr string
	}{
		{"navigate without url", NewNavigateTool(m), "", "url is required"},
		{"navigate bad scheme", NewNavigateTool(m), "ftp://x.test", "unsupported url scheme"},
		{"navigate bad wait", NewNavigateTool(m), `{"url": "a.test", "wait_until": "soon"}`, "invalid wait_until"},
		{"click without selector", NewClickTool(m), "", "selector is required"},
		{"click bad button", NewClickTool(m), `{"selector": "#a", "button": "side"}`, "invalid button"},
		{"click bad count", NewClickTool(m), `{"selector": "#a", "click_count": 4}`, "click_count must be between 1 and 3"},
		{"type needs json", NewTypeTool(m), "hello", "expected a JSON object"},
		{"type without selector", NewTypeTool(m), `{"text": "hi"}`, "selector is required"},
		{"press without key", NewPressKeyTool(m), "", "key is required"},
		{"wait bad state", NewWaitTool(m), `{"selector": "#a", "state": "gone"}`, "invalid state"},
		{"wait bad timeout", NewWaitTool(m), `{"selector": "#a", "timeout_ms": 999999}`, "timeout_ms must be between"},
		{"content bad format", NewGetContentTool(m), `{"format": "pdf"}`, "unsupported format"},
		{"search without pattern", NewSearchTool(m), "", "pattern is required"},
		{"evaluate without code", NewEvaluateTool(m), "", "JavaScript code is required"},
		{"select without id", NewTabSelectTool(m), "", "tab id is required"},
		{"select bad id", NewTabSelectTool(m), "first", "invalid tab id"},
		{"new tab bad url", NewTabNewTool(m), "mailto://someone", "unsupported url scheme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.tool.Invoke(context.Background(), tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestTools_NotStarted(t *testing.T) {
	m := NewTabManager(Options{})

	for _, tool := range NewToolSet(m).Tools() {
		input := ""
		switch tool.Name() {
		case "browser_tab_select":
			input = "1"
		case "browser_navigate", "browser_tab_new":
			input = "example.com"
		case "browser_click", "browser_wait":
			input = "#submit"
		case "browser_type":
			input = `{"selector": "#q", "text": "shoes"}`
		case "browser_press_key":
			input = "Enter"
		case "browser_search":
			input = "price"
		case "browser_evaluate":
			input = "() => 1"
		}

		_, err := tool.Invoke(context.Background(), input)
		require.Error(t, err, tool.Name())
		assert.True(t, errors.Is(err, ErrNotStarted) || errors.Is(err, ErrNoActiveTab), "%s: %v", tool.Name(), err)
	}
}

func TestWrappedTools_ProbeGuardsSessionTools(t *testing.T) {
	m := NewTabManager(Options{})
	wrapped := tools.Wrap(tools.RegisterAll(NewToolSet(m).Tools()...), m)

	nav, ok := tools.Find(wrapped, "browser_navigate")
	require.True(t, ok)
	out, err := nav.Invoke(context.Background(), "example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Error: The browser session is not available"))
	assert.Contains(t, out, "browser not started")
	assert.Contains(t, out, "browser_tab_new")

	list, ok := tools.Find(wrapped, "browser_tab_list")
	require.True(t, ok)
	_, err = list.Invoke(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestFormatTabList(t *testing.T) {
	assert.Equal(t, "No open tabs. Use browser_tab_new to open one.", formatTabList(nil))

	got := formatTabList([]TabInfo{
		{ID: 1, URL: "https://example.com/", Title: "Example Domain"},
		{ID: 3, URL: "about:blank", Active: true},
	})
	assert.Equal(t, "Open tabs (2):\n  [1] Example Domain - https://example.com/\n* [3] (untitled) - about:blank", got)

	got = formatTabList([]TabInfo{{ID: 2, URL: "about:blank", Title: "x"}})
	assert.Contains(t, got, "No tab is active")
}

func TestSearchText(t *testing.T) {
	text := "Shoes on sale. Running shoes from $40. Trail SHOES sold out."

	results, err := searchText(text, "shoes", false, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Shoes", results[0].Text)
	assert.Equal(t, "SHOES", results[2].Text)

	results, err = searchText(text, "shoes", true, 0)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = searchText(text, "shoes", false, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = searchText(text, `/\$\d+/`, false, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "$40", results[0].Text)
	assert.Contains(t, results[0].Context, "Running shoes from $40")

	results, err = searchText(text, "a.b", false, 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = searchText(text, "/(/", false, 0)
	assert.Error(t, err)

	_, err = searchText(text, "", false, 0)
	assert.Error(t, err)
}

func TestFormatSearchResults(t *testing.T) {
	assert.Equal(t, `No matches for "x" on the page.`, formatSearchResults("x", nil))

	got := formatSearchResults("sale", []SearchResult{{Text: "sale", Context: "on sale now"}})
	assert.Equal(t, "Found 1 matches for \"sale\":\n1. \"sale\" in: ...on sale now...", got)
}

func TestFormatContent(t *testing.T) {
	page := &CleanedPage{Content: "<h1>Hi</h1>", Title: "From HTML", Description: "desc", Truncated: true}

	got := formatContent("https://a.test/", "", page)
	assert.True(t, strings.HasPrefix(got, "URL: https://a.test/\nTitle: From HTML\nDescription: desc\n\n<h1>Hi</h1>"))
	assert.Contains(t, got, "[Content truncated.")

	got = formatContent("https://a.test/", "Live title", &CleanedPage{Content: "x"})
	assert.Equal(t, "URL: https://a.test/\nTitle: Live title\n\nx", got)
}

func TestFormatEvaluateResult(t *testing.T) {
	assert.Equal(t, "undefined", formatEvaluateResult(nil))
	assert.Equal(t, "42", formatEvaluateResult(42))
	assert.Equal(t, "{\n  \"a\": 1\n}", formatEvaluateResult(map[string]interface{}{"a": 1}))
}
