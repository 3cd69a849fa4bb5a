package browser

import (
	"context"
	"fmt"
	"strings"
)

// SearchTool finds text on the active tab.
type SearchTool struct {
	manager *TabManager
}

// NewSearchTool creates the browser_search tool.
func NewSearchTool(manager *TabManager) *SearchTool {
	return &SearchTool{manager: manager}
}

func (t *SearchTool) Name() string { return "browser_search" }

func (t *SearchTool) Description() string {
	return `Find text on the active tab and show where it occurs. Input: the text, or {"pattern": "...", "case_sensitive": false, "max_results": 10}. Wrap the pattern in slashes for a regular expression.`
}

// Invoke searches the visible text of the page.
func (t *SearchTool) Invoke(ctx context.Context, input string) (string, error) {
	var args struct {
		Pattern       string `json:"pattern"`
		CaseSensitive bool   `json:"case_sensitive"`
		MaxResults    int    `json:"max_results"`
	}
	if err := decodeInput(input, &args, &args.Pattern); err != nil {
		return "", err
	}
	if args.Pattern == "" {
		return "", fmt.Errorf("pattern is required")
	}

	tab, err := t.manager.ActiveTab()
	if err != nil {
		return "", err
	}
	raw, err := tab.HTML("")
	if err != nil {
		return "", err
	}
	page, err := CleanPage(raw, FormatText, len(raw)+1)
	if err != nil {
		return "", err
	}

	results, err := searchText(page.Content, args.Pattern, args.CaseSensitive, args.MaxResults)
	if err != nil {
		return "", err
	}
	return formatSearchResults(args.Pattern, results), nil
}

func formatSearchResults(pattern string, results []SearchResult) string {
	if len(results) == 0 {
		return fmt.Sprintf("No matches for %q on the page.", pattern)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d matches for %q:\n", len(results), pattern)
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %q in: ...%s...\n", i+1, r.Text, r.Context)
	}
	return strings.TrimRight(b.String(), "\n")
}
