package browser

import (
	"context"
	"fmt"
)

// TypeTool enters text into an input in the active tab.
type TypeTool struct {
	manager *TabManager
}

// NewTypeTool creates the browser_type tool.
func NewTypeTool(manager *TabManager) *TypeTool {
	return &TypeTool{manager: manager}
}

func (t *TypeTool) Name() string { return "browser_type" }

func (t *TypeTool) Description() string {
	return `Replace the value of an input or textarea in the active tab. Input: {"selector": "...", "text": "...", "submit": false}. Set submit to press Enter afterwards.`
}

// Invoke fills the element and optionally submits.
func (t *TypeTool) Invoke(ctx context.Context, input string) (string, error) {
	var args struct {
		Selector string `json:"selector"`
		Text     string `json:"text"`
		Submit   bool   `json:"submit"`
	}
	if err := decodeInput(input, &args, nil); err != nil {
		return "", err
	}
	if args.Selector == "" {
		return "", fmt.Errorf("selector is required")
	}

	tab, err := t.manager.ActiveTab()
	if err != nil {
		return "", err
	}

	if err := tab.Type(TypeOptions{Selector: args.Selector, Text: args.Text, Submit: args.Submit}); err != nil {
		return "", err
	}

	result := fmt.Sprintf("Typed %d characters into %s in tab [%d].", len(args.Text), args.Selector, tab.ID)
	if args.Submit {
		result += fmt.Sprintf(" Submitted with Enter.\nURL: %s", tab.Page.URL())
	}
	return result, nil
}

// PressKeyTool sends keyboard input to the active tab.
type PressKeyTool struct {
	manager *TabManager
}

// NewPressKeyTool creates the browser_press_key tool.
func NewPressKeyTool(manager *TabManager) *PressKeyTool {
	return &PressKeyTool{manager: manager}
}

func (t *PressKeyTool) Name() string { return "browser_press_key" }

func (t *PressKeyTool) Description() string {
	return `Press a key or shortcut in the active tab, for example "Enter", "Escape" or "Control+A". Input: the key, or {"key": "..."}.`
}

// Invoke presses the key.
func (t *PressKeyTool) Invoke(ctx context.Context, input string) (string, error) {
	var args struct {
		Key string `json:"key"`
	}
	if err := decodeInput(input, &args, &args.Key); err != nil {
		return "", err
	}
	if args.Key == "" {
		return "", fmt.Errorf("key is required")
	}

	tab, err := t.manager.ActiveTab()
	if err != nil {
		return "", err
	}
	if err := tab.PressKey(args.Key); err != nil {
		return "", err
	}
	return fmt.Sprintf("Pressed %s in tab [%d].", args.Key, tab.ID), nil
}
