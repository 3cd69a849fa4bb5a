package browser

import (
	"context"
	"fmt"
	"strings"
)

// TabNewTool opens a tab, optionally loading a URL, and makes it active.
type TabNewTool struct {
	manager *TabManager
}

// NewTabNewTool creates the browser_tab_new tool.
func NewTabNewTool(manager *TabManager) *TabNewTool {
	return &TabNewTool{manager: manager}
}

func (t *TabNewTool) Name() string { return "browser_tab_new" }

func (t *TabNewTool) Description() string {
	return `Open a new browser tab and make it active. Input: optional URL, or {"url": "..."}.`
}

// Invoke opens the tab and navigates it when a URL is given.
func (t *TabNewTool) Invoke(ctx context.Context, input string) (string, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := decodeInput(input, &args, &args.URL); err != nil {
		return "", err
	}

	target := ""
	if args.URL != "" {
		u, err := normalizeURL(args.URL)
		if err != nil {
			return "", err
		}
		target = u
	}

	tab, err := t.manager.NewTab()
	if err != nil {
		return "", fmt.Errorf("failed to open tab: %w", err)
	}

	if target == "" {
		return fmt.Sprintf("Opened tab [%d] and made it active. It is blank; use browser_navigate to load a page.", tab.ID), nil
	}

	if err := tab.Navigate(target, NavigateOptions{WaitUntil: "domcontentloaded"}); err != nil {
		return fmt.Sprintf("Opened tab [%d] and made it active, but loading %s failed: %v", tab.ID, target, err), nil
	}
	return fmt.Sprintf("Opened tab [%d] and made it active.\nURL: %s\nTitle: %s", tab.ID, tab.Page.URL(), tab.Title()), nil
}

// TabListTool lists open tabs.
type TabListTool struct {
	manager *TabManager
}

// NewTabListTool creates the browser_tab_list tool.
func NewTabListTool(manager *TabManager) *TabListTool {
	return &TabListTool{manager: manager}
}

func (t *TabListTool) Name() string { return "browser_tab_list" }

func (t *TabListTool) Description() string {
	return "List open browser tabs with their ids, titles and URLs. The active tab is marked with *. No input."
}

// Invoke lists the tabs.
func (t *TabListTool) Invoke(ctx context.Context, input string) (string, error) {
	infos, err := t.manager.ListTabs()
	if err != nil {
		return "", fmt.Errorf("failed to list tabs: %w", err)
	}
	return formatTabList(infos), nil
}

// formatTabList renders one line per tab, marking the active one.
func formatTabList(infos []TabInfo) string {
	if len(infos) == 0 {
		return "No open tabs. Use browser_tab_new to open one."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Open tabs (%d):\n", len(infos))
	hasActive := false
	for _, info := range infos {
		marker := " "
		if info.Active {
			marker = "*"
			hasActive = true
		}
		title := info.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&b, "%s [%d] %s - %s\n", marker, info.ID, title, info.URL)
	}
	if !hasActive {
		b.WriteString("No tab is active. Use browser_tab_select to pick one.\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// TabSelectTool makes a tab active.
type TabSelectTool struct {
	manager *TabManager
}

// NewTabSelectTool creates the browser_tab_select tool.
func NewTabSelectTool(manager *TabManager) *TabSelectTool {
	return &TabSelectTool{manager: manager}
}

func (t *TabSelectTool) Name() string { return "browser_tab_select" }

func (t *TabSelectTool) Description() string {
	return `Make a tab active so other browser tools act on it. Input: tab id, or {"tab_id": 2}.`
}

// Invoke selects the tab.
func (t *TabSelectTool) Invoke(ctx context.Context, input string) (string, error) {
	id, err := tabIDFromInput(input, true)
	if err != nil {
		return "", err
	}

	tab, err := t.manager.SelectTab(id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Tab [%d] is now active.\nURL: %s\nTitle: %s", tab.ID, tab.Page.URL(), tab.Title()), nil
}

// TabCloseTool closes a tab.
type TabCloseTool struct {
	manager *TabManager
}

// NewTabCloseTool creates the browser_tab_close tool.
func NewTabCloseTool(manager *TabManager) *TabCloseTool {
	return &TabCloseTool{manager: manager}
}

func (t *TabCloseTool) Name() string { return "browser_tab_close" }

func (t *TabCloseTool) Description() string {
	return `Close a tab. Input: tab id, or {"tab_id": 2}; empty closes the active tab.`
}

// Invoke closes the tab and reports which one is active afterwards.
func (t *TabCloseTool) Invoke(ctx context.Context, input string) (string, error) {
	id, err := tabIDFromInput(input, false)
	if err != nil {
		return "", err
	}
	if id == 0 {
		id = t.manager.ActiveTabID()
		if id == 0 {
			return "", ErrNoActiveTab
		}
	}

	if err := t.manager.CloseTab(id); err != nil {
		return "", err
	}

	active := t.manager.ActiveTabID()
	if active == 0 {
		return fmt.Sprintf("Closed tab [%d]. No tabs remain; use browser_tab_new to open one.", id), nil
	}
	return fmt.Sprintf("Closed tab [%d]. Tab [%d] is now active.", id, active), nil
}

func tabIDFromInput(input string, required bool) (int, error) {
	var args struct {
		TabID int `json:"tab_id"`
	}
	var plain string
	if err := decodeInput(input, &args, &plain); err != nil {
		return 0, err
	}
	if plain != "" {
		return parseTabID(plain)
	}
	if args.TabID < 0 {
		return 0, fmt.Errorf("invalid tab id %d", args.TabID)
	}
	if args.TabID == 0 && required {
		return 0, fmt.Errorf("tab id is required")
	}
	return args.TabID, nil
}
