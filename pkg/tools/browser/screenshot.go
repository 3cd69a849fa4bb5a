package browser

import (
	"context"
	"fmt"
)

// ScreenshotTool captures the active tab to a PNG file.
type ScreenshotTool struct {
	manager *TabManager
}

// NewScreenshotTool creates the browser_screenshot tool.
func NewScreenshotTool(manager *TabManager) *ScreenshotTool {
	return &ScreenshotTool{manager: manager}
}

func (t *ScreenshotTool) Name() string { return "browser_screenshot" }

func (t *ScreenshotTool) Description() string {
	return `Save a PNG screenshot of the active tab and return its file path. Input: optional {"full_page": true}.`
}

// Invoke takes the screenshot.
func (t *ScreenshotTool) Invoke(ctx context.Context, input string) (string, error) {
	var args struct {
		FullPage bool `json:"full_page"`
	}
	if err := decodeInput(input, &args, nil); err != nil {
		return "", err
	}

	tab, err := t.manager.ActiveTab()
	if err != nil {
		return "", err
	}

	path, err := tab.Screenshot(t.manager.Options().ScreenshotDir, args.FullPage)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Saved screenshot of tab [%d] (%s) to %s", tab.ID, tab.Page.URL(), path), nil
}
