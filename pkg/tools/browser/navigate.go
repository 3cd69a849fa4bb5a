package browser

import (
	"context"
	"fmt"
)

// NavigateTool loads a URL in the active tab.
type NavigateTool struct {
	manager *TabManager
}

// NewNavigateTool creates the browser_navigate tool.
func NewNavigateTool(manager *TabManager) *NavigateTool {
	return &NavigateTool{manager: manager}
}

func (t *NavigateTool) Name() string { return "browser_navigate" }

func (t *NavigateTool) Description() string {
	return `Load a URL in the active tab. Input: the URL, or {"url": "...", "wait_until": "load|domcontentloaded|networkidle"}.`
}

var validWaitUntil = map[string]bool{
	"load":             true,
	"domcontentloaded": true,
	"networkidle":      true,
	"commit":           true,
}

// Invoke navigates and reports the landing URL and title.
func (t *NavigateTool) Invoke(ctx context.Context, input string) (string, error) {
	var args struct {
		URL       string `json:"url"`
		WaitUntil string `json:"wait_until"`
	}
	if err := decodeInput(input, &args, &args.URL); err != nil {
		return "", err
	}

	target, err := normalizeURL(args.URL)
	if err != nil {
		return "", err
	}

	if args.WaitUntil == "" {
		args.WaitUntil = "domcontentloaded"
	}
	if !validWaitUntil[args.WaitUntil] {
		return "", fmt.Errorf("invalid wait_until: %s (must be 'load', 'domcontentloaded', 'networkidle' or 'commit')", args.WaitUntil)
	}

	tab, err := t.manager.ActiveTab()
	if err != nil {
		return "", err
	}

	if err := tab.Navigate(target, NavigateOptions{WaitUntil: args.WaitUntil}); err != nil {
		return "", err
	}

	return fmt.Sprintf("Navigated tab [%d].\nURL: %s\nTitle: %s", tab.ID, tab.Page.URL(), tab.Title()), nil
}
