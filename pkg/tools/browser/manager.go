package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/entrhq/tabpilot/pkg/logging"
	"github.com/playwright-community/playwright-go"
)

var (
	// ErrNotStarted is returned when the browser has not been launched yet.
	ErrNotStarted = errors.New("browser not started")

	// ErrNoActiveTab is returned when no tab is selected.
	ErrNoActiveTab = errors.New("no active tab")
)

var managerLogger *logging.Logger

func init() {
	managerLogger = logging.NewLogger("browser")
}

// TabManager owns one browser with a single context and tracks its pages as
// numbered tabs. Exactly one tab is active at a time; session tools operate on it.
type TabManager struct {
	mu         sync.RWMutex
	opts       Options
	playwright *playwright.Playwright
	browser    playwright.Browser
	context    playwright.BrowserContext
	tabs       []*Tab
	activeID   int
	nextID     int
	started    bool
}

// NewTabManager creates a tab manager. Start must be called before use.
func NewTabManager(opts Options) *TabManager {
	return &TabManager{
		opts:   opts.withDefaults(),
		nextID: 1,
	}
}

// Options returns the effective options.
func (m *TabManager) Options() Options {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.opts
}

// Start installs and runs Playwright, launches Chromium and opens the first tab.
func (m *TabManager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}

	// driver output would interleave with the terminal approval prompt
	runOpts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(runOpts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	headless := m.opts.Headless
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &headless,
	})
	if err != nil {
		_ = pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  m.opts.Viewport.Width,
			Height: m.opts.Viewport.Height,
		},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return fmt.Errorf("failed to create context: %w", err)
	}

	err = m.attachLocked(
		func() (playwright.Page, error) { return bctx.NewPage() },
		func() {
			_ = bctx.Close()
			_ = browser.Close()
			_ = pw.Stop()
		},
	)
	if err != nil {
		return err
	}
	m.playwright = pw
	m.browser = browser
	m.context = bctx

	// pages opened by the site (target=_blank, window.open) become tabs too
	bctx.OnPage(func(page playwright.Page) {
		// the handler runs on the driver's dispatch goroutine; blocking it on
		// m.mu would deadlock against NewTab waiting for its NewPage reply
		go m.adoptExternal(page)
	})

	managerLogger.Infof("Browser started (headless=%v, viewport=%dx%d)", headless, m.opts.Viewport.Width, m.opts.Viewport.Height)
	return nil
}

// attachLocked opens the first tab and marks the manager started. If the tab
// cannot be opened, teardown releases whatever was launched and the manager
// stays stopped. Caller holds m.mu.
func (m *TabManager) attachLocked(newPage func() (playwright.Page, error), teardown func()) error {
	page, err := newPage()
	if err != nil {
		teardown()
		return fmt.Errorf("failed to create page: %w", err)
	}

	m.started = true
	tab := m.adoptLocked(page)
	m.activeID = tab.ID
	return nil
}

func (m *TabManager) adoptExternal(page playwright.Page) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started && m.findByPage(page) == nil && !page.IsClosed() {
		tab := m.adoptLocked(page)
		managerLogger.Debugf("Adopted page opened by site as tab %d", tab.ID)
	}
}

// adoptLocked registers page as a new tab. Caller holds m.mu.
func (m *TabManager) adoptLocked(page playwright.Page) *Tab {
	page.SetDefaultTimeout(m.opts.Timeout)

	now := time.Now()
	tab := &Tab{
		ID:         m.nextID,
		Page:       page,
		CreatedAt:  now,
		LastUsedAt: now,
	}
	m.nextID++
	m.tabs = append(m.tabs, tab)
	return tab
}

func (m *TabManager) findByPage(page playwright.Page) *Tab {
	for _, tab := range m.tabs {
		if tab.Page == page {
			return tab
		}
	}
	return nil
}

// pruneLocked drops tabs whose page was closed outside the manager.
func (m *TabManager) pruneLocked() {
	live := m.tabs[:0]
	for _, tab := range m.tabs {
		if tab.Page != nil && !tab.Page.IsClosed() {
			live = append(live, tab)
			continue
		}
		managerLogger.Debugf("Tab %d was closed externally", tab.ID)
		if tab.ID == m.activeID {
			m.activeID = 0
		}
	}
	m.tabs = live
}

// NewTab opens a tab, makes it active and returns it.
func (m *TabManager) NewTab() (*Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil, ErrNotStarted
	}

	// the OnPage adoption runs after this method releases the lock and finds
	// the page already registered
	page, err := m.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	tab := m.findByPage(page)
	if tab == nil {
		tab = m.adoptLocked(page)
	}
	m.activeID = tab.ID
	return tab, nil
}

// SelectTab makes the tab with the given id active and brings it to the front.
func (m *TabManager) SelectTab(id int) (*Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil, ErrNotStarted
	}
	m.pruneLocked()

	tab := m.tabLocked(id)
	if tab == nil {
		return nil, fmt.Errorf("tab %d not found", id)
	}
	if err := tab.Page.BringToFront(); err != nil {
		return nil, fmt.Errorf("failed to bring tab %d to front: %w", id, err)
	}
	m.activeID = id
	tab.LastUsedAt = time.Now()
	return tab, nil
}

// CloseTab closes the tab with the given id. When the active tab is closed
// the most recently opened remaining tab becomes active.
func (m *TabManager) CloseTab(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return ErrNotStarted
	}

	idx := -1
	for i, tab := range m.tabs {
		if tab.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("tab %d not found", id)
	}

	tab := m.tabs[idx]
	m.tabs = append(m.tabs[:idx], m.tabs[idx+1:]...)
	if err := tab.Page.Close(); err != nil {
		managerLogger.Warnf("Closing tab %d: %v", id, err)
	}

	if m.activeID == id {
		m.activeID = 0
		if n := len(m.tabs); n > 0 {
			m.activeID = m.tabs[n-1].ID
		}
	}
	return nil
}

// ListTabs describes every open tab in creation order.
func (m *TabManager) ListTabs() ([]TabInfo, error) {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil, ErrNotStarted
	}
	m.pruneLocked()
	tabs := make([]*Tab, len(m.tabs))
	copy(tabs, m.tabs)
	active := m.activeID
	m.mu.Unlock()

	infos := make([]TabInfo, 0, len(tabs))
	for _, tab := range tabs {
		title, err := tab.Page.Title()
		if err != nil {
			title = ""
		}
		infos = append(infos, TabInfo{
			ID:     tab.ID,
			URL:    tab.Page.URL(),
			Title:  title,
			Active: tab.ID == active,
		})
	}
	return infos, nil
}

// ActiveTab returns the tab session tools operate on.
func (m *TabManager) ActiveTab() (*Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil, ErrNotStarted
	}
	m.pruneLocked()

	tab := m.tabLocked(m.activeID)
	if tab == nil {
		return nil, ErrNoActiveTab
	}
	tab.LastUsedAt = time.Now()
	return tab, nil
}

// ActiveTabID returns the active tab id, or 0 when there is none.
func (m *TabManager) ActiveTabID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeID
}

func (m *TabManager) tabLocked(id int) *Tab {
	if id == 0 {
		return nil
	}
	for _, tab := range m.tabs {
		if tab.ID == id {
			return tab
		}
	}
	return nil
}

// Probe checks that the active tab is attached and its page responds.
// It satisfies the health check contract used to guard session tools.
func (m *TabManager) Probe(ctx context.Context) error {
	tab, err := m.ActiveTab()
	if err != nil {
		return err
	}

	timeout := m.Options().ProbeTimeout
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := tab.Page.Evaluate("() => document.readyState")
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("tab %d did not respond: %w", tab.ID, err)
		}
		return nil
	case <-probeCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("tab %d did not respond within %s", tab.ID, timeout)
	}
}

// CurrentPage returns the active tab's URL and title.
func (m *TabManager) CurrentPage(ctx context.Context) (string, string, error) {
	tab, err := m.ActiveTab()
	if err != nil {
		return "", "", err
	}
	title, err := tab.Page.Title()
	if err != nil {
		return tab.Page.URL(), "", fmt.Errorf("failed to read title: %w", err)
	}
	return tab.Page.URL(), title, nil
}

// ActiveWindowID identifies the active tab for approval requests.
func (m *TabManager) ActiveWindowID(ctx context.Context) (string, error) {
	id := m.ActiveTabID()
	if id == 0 {
		return "", ErrNoActiveTab
	}
	return WindowID(id), nil
}

// WindowID formats a tab id the way approval requests carry it.
func WindowID(tabID int) string {
	return "tab-" + strconv.Itoa(tabID)
}

// Shutdown closes the browser and stops Playwright.
func (m *TabManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil
	}
	m.started = false
	m.tabs = nil
	m.activeID = 0

	var errs []error
	if err := m.context.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close context: %w", err))
	}
	if err := m.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	if err := m.playwright.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop playwright: %w", err))
	}

	managerLogger.Infof("Browser shut down")
	return errors.Join(errs...)
}
