package browser

import (
	"time"

	"github.com/playwright-community/playwright-go"
)

// Tab is one page of the shared browser context.
type Tab struct {
	// ID is stable for the lifetime of the tab and never reused.
	ID int

	// Page is the Playwright page backing this tab.
	Page playwright.Page

	CreatedAt  time.Time
	LastUsedAt time.Time
}

// TabInfo is a point-in-time description of a tab.
type TabInfo struct {
	ID     int
	URL    string
	Title  string
	Active bool
}

// Options configures the browser launched by the tab manager.
type Options struct {
	// Headless controls whether the browser runs without a visible window.
	Headless bool

	// Viewport sets the size of every tab.
	Viewport Viewport

	// Timeout is the default Playwright operation timeout in milliseconds.
	Timeout float64

	// ProbeTimeout bounds the health check run before session tools.
	ProbeTimeout time.Duration

	// ScreenshotDir is where browser_screenshot writes PNG files.
	ScreenshotDir string

	// MaxContentLength caps the characters browser_get_content returns.
	MaxContentLength int
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// NavigateOptions configures page navigation behavior.
type NavigateOptions struct {
	// WaitUntil is one of "load", "domcontentloaded", "networkidle", "commit".
	WaitUntil string

	// Timeout in milliseconds (0 means default)
	Timeout float64
}

// ClickOptions configures element clicking behavior.
type ClickOptions struct {
	Selector   string
	Button     string
	ClickCount int
	Timeout    float64
}

// TypeOptions configures text entry into an input element.
type TypeOptions struct {
	Selector string
	Text     string

	// Submit presses Enter after the text is entered.
	Submit bool

	Timeout float64
}

// WaitOptions configures waiting for an element state.
type WaitOptions struct {
	Selector string

	// State is one of "attached", "detached", "visible", "hidden".
	State string

	Timeout float64
}

// SearchResult represents a single text match on a page.
type SearchResult struct {
	Text    string `json:"text"`
	Context string `json:"context"`
}

// Default values for various operations
const (
	DefaultTimeout          = 30000.0 // milliseconds
	DefaultMaxLength        = 10000   // characters
	DefaultViewportWidth    = 1280
	DefaultViewportHeight   = 720
	DefaultProbeTimeout     = 5 * time.Second
	DefaultMaxSearchResults = 10
	MaxWaitTimeout          = 300000.0 // milliseconds
)

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Headless: true,
		Viewport: Viewport{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
		Timeout:          DefaultTimeout,
		ProbeTimeout:     DefaultProbeTimeout,
		MaxContentLength: DefaultMaxLength,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Viewport.Width <= 0 || o.Viewport.Height <= 0 {
		o.Viewport = d.Viewport
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = d.ProbeTimeout
	}
	if o.MaxContentLength <= 0 {
		o.MaxContentLength = d.MaxContentLength
	}
	return o
}
