package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"
)

// touch updates the LastUsedAt timestamp to the current time.
func (t *Tab) touch() {
	t.LastUsedAt = time.Now()
}

// Navigate loads url in the tab.
func (t *Tab) Navigate(url string, opts NavigateOptions) error {
	t.touch()

	gotoOpts := playwright.PageGotoOptions{}
	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		gotoOpts.WaitUntil = &waitUntil
	}
	if opts.Timeout > 0 {
		gotoOpts.Timeout = &opts.Timeout
	}

	if _, err := t.Page.Goto(url, gotoOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// Click clicks the first element matching the selector.
func (t *Tab) Click(opts ClickOptions) error {
	t.touch()

	clickOpts := playwright.LocatorClickOptions{}
	if opts.Button != "" {
		button := playwright.MouseButton(opts.Button)
		clickOpts.Button = &button
	}
	if opts.ClickCount > 0 {
		clickOpts.ClickCount = &opts.ClickCount
	}
	if opts.Timeout > 0 {
		clickOpts.Timeout = &opts.Timeout
	}

	if err := t.Page.Locator(opts.Selector).First().Click(clickOpts); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Type replaces the value of an input element and optionally submits it.
func (t *Tab) Type(opts TypeOptions) error {
	t.touch()

	locator := t.Page.Locator(opts.Selector).First()

	fillOpts := playwright.LocatorFillOptions{}
	if opts.Timeout > 0 {
		fillOpts.Timeout = &opts.Timeout
	}
	if err := locator.Fill(opts.Text, fillOpts); err != nil {
		return fmt.Errorf("type failed: %w", err)
	}

	if opts.Submit {
		if err := locator.Press("Enter"); err != nil {
			return fmt.Errorf("submit failed: %w", err)
		}
	}
	return nil
}

// PressKey sends a key or chord (for example "Control+A") to the focused element.
func (t *Tab) PressKey(key string) error {
	t.touch()

	if err := t.Page.Keyboard().Press(key); err != nil {
		return fmt.Errorf("key press failed: %w", err)
	}
	return nil
}

// Wait waits for an element to reach a state.
func (t *Tab) Wait(opts WaitOptions) error {
	t.touch()

	waitOpts := playwright.LocatorWaitForOptions{}
	if opts.State != "" {
		state := playwright.WaitForSelectorState(opts.State)
		waitOpts.State = &state
	}
	if opts.Timeout > 0 {
		waitOpts.Timeout = &opts.Timeout
	}

	if err := t.Page.Locator(opts.Selector).First().WaitFor(waitOpts); err != nil {
		return fmt.Errorf("wait failed: %w", err)
	}
	return nil
}

// Screenshot writes a PNG of the tab into dir and returns its path.
func (t *Tab) Screenshot(dir string, fullPage bool) (string, error) {
	t.touch()

	if dir == "" {
		dir = filepath.Join(os.TempDir(), "tabpilot-screenshots")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	name := fmt.Sprintf("tab%d-%s-%s.png", t.ID, time.Now().Format("20060102-150405"), uuid.New().String()[:8])
	path := filepath.Join(dir, name)

	_, err := t.Page.Screenshot(playwright.PageScreenshotOptions{
		Path:     &path,
		FullPage: &fullPage,
	})
	if err != nil {
		return "", fmt.Errorf("screenshot failed: %w", err)
	}
	return path, nil
}

// HTML returns the markup of the page, or of the first element matching selector.
func (t *Tab) HTML(selector string) (string, error) {
	t.touch()

	if selector == "" {
		content, err := t.Page.Content()
		if err != nil {
			return "", fmt.Errorf("failed to read page content: %w", err)
		}
		return content, nil
	}

	locator := t.Page.Locator(selector)
	count, err := locator.Count()
	if err != nil {
		return "", fmt.Errorf("selector query failed: %w", err)
	}
	if count == 0 {
		return "", fmt.Errorf("no element found matching selector: %s", selector)
	}

	inner, err := locator.First().InnerHTML()
	if err != nil {
		return "", fmt.Errorf("failed to read element content: %w", err)
	}
	return inner, nil
}

// Evaluate runs a JavaScript expression in the page and returns its value.
func (t *Tab) Evaluate(expression string) (interface{}, error) {
	t.touch()

	result, err := t.Page.Evaluate(expression)
	if err != nil {
		return nil, fmt.Errorf("JavaScript execution failed: %w", err)
	}
	return result, nil
}

// Title returns the page title, or "" when it cannot be read.
func (t *Tab) Title() string {
	title, err := t.Page.Title()
	if err != nil {
		return ""
	}
	return title
}

// searchText finds occurrences of pattern in text with surrounding context.
// A pattern wrapped in slashes is a regular expression.
func searchText(text, pattern string, caseSensitive bool, maxResults int) ([]SearchResult, error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern is required")
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxSearchResults
	}

	expr := regexp.QuoteMeta(pattern)
	if len(pattern) > 2 && strings.HasPrefix(pattern, "/") && strings.HasSuffix(pattern, "/") {
		expr = pattern[1 : len(pattern)-1]
	}
	if !caseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	const contextChars = 50
	var results []SearchResult
	for _, loc := range re.FindAllStringIndex(text, maxResults) {
		if loc[0] == loc[1] {
			continue
		}
		start := max(0, loc[0]-contextChars)
		end := min(len(text), loc[1]+contextChars)
		results = append(results, SearchResult{
			Text:    text[loc[0]:loc[1]],
			Context: collapseWhitespace(text[start:end]),
		})
	}
	return results, nil
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
