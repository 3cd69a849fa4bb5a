package browser

import (
	"context"
	"fmt"
	"strings"
)

// GetContentTool returns the cleaned content of the active tab.
type GetContentTool struct {
	manager *TabManager
}

// NewGetContentTool creates the browser_get_content tool.
func NewGetContentTool(manager *TabManager) *GetContentTool {
	return &GetContentTool{manager: manager}
}

func (t *GetContentTool) Name() string { return "browser_get_content" }

func (t *GetContentTool) Description() string {
	return `Read the active tab with scripts and styles removed. Input: optional {"selector": "...", "format": "html|text", "max_length": 10000}. html keeps ids, classes and other attributes useful as selectors.`
}

// Invoke extracts and cleans the page or the selected element.
func (t *GetContentTool) Invoke(ctx context.Context, input string) (string, error) {
	var args struct {
		Selector  string `json:"selector"`
		Format    string `json:"format"`
		MaxLength int    `json:"max_length"`
	}
	if err := decodeInput(input, &args, &args.Selector); err != nil {
		return "", err
	}

	format, err := ParseContentFormat(args.Format)
	if err != nil {
		return "", err
	}
	maxLength := args.MaxLength
	if limit := t.manager.Options().MaxContentLength; maxLength <= 0 || maxLength > limit {
		maxLength = limit
	}

	tab, err := t.manager.ActiveTab()
	if err != nil {
		return "", err
	}

	raw, err := tab.HTML(args.Selector)
	if err != nil {
		return "", err
	}

	page, err := CleanPage(raw, format, maxLength)
	if err != nil {
		return "", err
	}
	return formatContent(tab.Page.URL(), tab.Title(), page), nil
}

func formatContent(url, title string, page *CleanedPage) string {
	if title == "" {
		title = page.Title
	}

	var b strings.Builder
	fmt.Fprintf(&b, "URL: %s\nTitle: %s\n", url, title)
	if page.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", page.Description)
	}
	b.WriteString("\n")
	b.WriteString(page.Content)
	if page.Truncated {
		b.WriteString("\n\n[Content truncated. Narrow the request with a selector to see more.]")
	}
	return b.String()
}
