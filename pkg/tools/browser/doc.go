// Package browser drives a Chromium instance through Playwright and exposes
// it to the agent as tools.
//
// # Tabs
//
// TabManager launches one browser with a single context. Every page of that
// context is a numbered tab; ids start at 1 and are never reused. Pages the
// site opens itself (target=_blank, window.open) are adopted as tabs too.
// Exactly one tab is active and every session tool acts on it.
//
// # Tools
//
// Tab lifecycle tools (browser_tab_new, browser_tab_list, browser_tab_select,
// browser_tab_close) manage the tab set and work even when the active tab is
// gone. All other tools act on the active tab:
//
//	browser_navigate     load a URL
//	browser_click        click an element
//	browser_type         fill an input, optionally pressing Enter
//	browser_press_key    send a key or shortcut
//	browser_wait         wait for an element state
//	browser_get_content  cleaned HTML or text of the page
//	browser_search       find text on the page
//	browser_screenshot   save a PNG
//	browser_evaluate     run JavaScript
//
// Tool input is either a plain string (the tool's primary argument, such as
// the URL or selector) or a JSON object with named fields.
//
// # Health
//
// TabManager.Probe checks that the active tab still answers. The agent runs
// it before every session tool so a detached tab surfaces as a recoverable
// message instead of a raw Playwright error. CurrentPage and ActiveWindowID
// feed the prompt's page context and approval requests.
//
// # Content
//
// CleanPage reduces raw markup using golang.org/x/net/html: scripts, styles
// and embedded objects are removed, semantic structure and selector-friendly
// attributes (id, class, role, aria-*, data-*) are kept, and output stops at
// a character budget.
package browser
