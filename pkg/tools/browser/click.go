package browser

import (
	"context"
	"fmt"
)

// ClickTool clicks an element in the active tab.
type ClickTool struct {
	manager *TabManager
}

// NewClickTool creates the browser_click tool.
func NewClickTool(manager *TabManager) *ClickTool {
	return &ClickTool{manager: manager}
}

func (t *ClickTool) Name() string { return "browser_click" }

func (t *ClickTool) Description() string {
	return `Click an element in the active tab. Input: a CSS or text= selector, or {"selector": "...", "button": "left|right|middle", "click_count": 1}.`
}

// Invoke clicks the first element matching the selector.
func (t *ClickTool) Invoke(ctx context.Context, input string) (string, error) {
	var args struct {
		Selector   string `json:"selector"`
		Button     string `json:"button"`
		ClickCount *int   `json:"click_count"`
	}
	if err := decodeInput(input, &args, &args.Selector); err != nil {
		return "", err
	}

	opts, err := clickOptions(args.Selector, args.Button, args.ClickCount)
	if err != nil {
		return "", err
	}

	tab, err := t.manager.ActiveTab()
	if err != nil {
		return "", err
	}

	if err := tab.Click(opts); err != nil {
		return "", err
	}

	// a click may have navigated, so report where the tab is now
	return fmt.Sprintf("Clicked %s in tab [%d].\nURL: %s\nTitle: %s", opts.Selector, tab.ID, tab.Page.URL(), tab.Title()), nil
}

func clickOptions(selector, button string, clickCount *int) (ClickOptions, error) {
	if selector == "" {
		return ClickOptions{}, fmt.Errorf("selector is required")
	}

	opts := ClickOptions{Selector: selector, Button: button, ClickCount: 1}

	if clickCount != nil {
		if *clickCount < 1 || *clickCount > 3 {
			return ClickOptions{}, fmt.Errorf("click_count must be between 1 and 3")
		}
		opts.ClickCount = *clickCount
	}

	switch button {
	case "", "left", "right", "middle":
	default:
		return ClickOptions{}, fmt.Errorf("invalid button: %s (must be 'left', 'right', or 'middle')", button)
	}
	return opts, nil
}
