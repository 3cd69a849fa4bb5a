package browser

import (
	"context"
	"fmt"
)

// WaitTool waits for an element in the active tab to reach a state.
type WaitTool struct {
	manager *TabManager
}

// NewWaitTool creates the browser_wait tool.
func NewWaitTool(manager *TabManager) *WaitTool {
	return &WaitTool{manager: manager}
}

func (t *WaitTool) Name() string { return "browser_wait" }

func (t *WaitTool) Description() string {
	return `Wait for an element in the active tab. Input: a selector, or {"selector": "...", "state": "visible|hidden|attached|detached", "timeout_ms": 30000}.`
}

var validWaitStates = map[string]bool{
	"attached": true,
	"detached": true,
	"visible":  true,
	"hidden":   true,
}

// Invoke blocks until the element reaches the state or the timeout elapses.
func (t *WaitTool) Invoke(ctx context.Context, input string) (string, error) {
	var args struct {
		Selector  string   `json:"selector"`
		State     string   `json:"state"`
		TimeoutMS *float64 `json:"timeout_ms"`
	}
	if err := decodeInput(input, &args, &args.Selector); err != nil {
		return "", err
	}

	opts, err := waitOptions(args.Selector, args.State, args.TimeoutMS)
	if err != nil {
		return "", err
	}

	tab, err := t.manager.ActiveTab()
	if err != nil {
		return "", err
	}
	if err := tab.Wait(opts); err != nil {
		return "", err
	}
	return fmt.Sprintf("Element %s is %s in tab [%d].", opts.Selector, opts.State, tab.ID), nil
}

func waitOptions(selector, state string, timeout *float64) (WaitOptions, error) {
	if selector == "" {
		return WaitOptions{}, fmt.Errorf("selector is required")
	}
	if state == "" {
		state = "visible"
	}
	if !validWaitStates[state] {
		return WaitOptions{}, fmt.Errorf("invalid state: %s (must be 'attached', 'detached', 'visible', or 'hidden')", state)
	}

	opts := WaitOptions{Selector: selector, State: state}
	if timeout != nil {
		if *timeout < 0 || *timeout > MaxWaitTimeout {
			return WaitOptions{}, fmt.Errorf("timeout_ms must be between 0 and %.0f", MaxWaitTimeout)
		}
		opts.Timeout = *timeout
	}
	return opts, nil
}
