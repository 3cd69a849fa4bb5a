package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/entrhq/tabpilot/pkg/logging"
)

var wrapLogger *logging.Logger

func init() {
	wrapLogger = logging.NewLogger("tools")
}

// Prober checks that the active browser session can serve a command.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

// Probe calls f.
func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

const recoveryHint = "Use browser_tab_list to see open tabs, browser_tab_select to switch to one, " +
	"or browser_tab_new to open a new tab, then retry."

// connectionMarkers is the closed set of substrings that identify a lost browser
// connection. Anything else is reported as an ordinary tool failure.
var connectionMarkers = []string{
	"target closed",
	"target page, context or browser has been closed",
	"session closed",
	"detached",
	"has been destroyed",
	"execution context was destroyed",
	"connection closed",
	"browser has been closed",
	"page has been closed",
	"browser has disconnected",
}

// IsConnectionError reports whether a failure message indicates the session is gone.
func IsConnectionError(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range connectionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// ProbeFailureMessage is returned instead of invoking a session-dependent tool
// whose probe failed.
func ProbeFailureMessage(err error) string {
	return fmt.Sprintf("Error: The browser session is not available (%v). %s", err, recoveryHint)
}

// ConnectionLostMessage is returned when a tool fails because the session disconnected.
func ConnectionLostMessage(msg string) string {
	return fmt.Sprintf("Error: Lost connection to the browser tab (%s). %s", msg, recoveryHint)
}

// ToolErrorMessage renders any other tool failure.
func ToolErrorMessage(msg string) string {
	return "Error executing tool: " + msg
}

// Wrap guards session-dependent tools with a health probe and turns every failure
// into a string result. Tab-lifecycle tools are returned unchanged. Names, descriptions
// and order are preserved.
func Wrap(list []Registered, probe Prober) []Registered {
	wrapped := make([]Registered, 0, len(list))
	for _, r := range list {
		if r.Kind == KindTabLifecycle {
			wrapped = append(wrapped, r)
			continue
		}
		wrapped = append(wrapped, Registered{
			Tool: &guardedTool{inner: r.Tool, probe: probe},
			Kind: r.Kind,
		})
	}
	return wrapped
}

type guardedTool struct {
	inner Tool
	probe Prober
}

func (g *guardedTool) Name() string        { return g.inner.Name() }
func (g *guardedTool) Description() string { return g.inner.Description() }

// Invoke never returns an error.
func (g *guardedTool) Invoke(ctx context.Context, input string) (string, error) {
	if g.probe != nil {
		if err := g.probe.Probe(ctx); err != nil {
			wrapLogger.Warnf("Probe failed before %s: %v", g.inner.Name(), err)
			return ProbeFailureMessage(err), nil
		}
	}

	result, err := g.invokeRecovered(ctx, input)
	if err == nil {
		return result, nil
	}

	msg := err.Error()
	if IsConnectionError(msg) {
		wrapLogger.Warnf("Tool %s lost the browser connection: %s", g.inner.Name(), msg)
		return ConnectionLostMessage(msg), nil
	}
	wrapLogger.Errorf("Tool %s failed: %s", g.inner.Name(), msg)
	return ToolErrorMessage(msg), nil
}

func (g *guardedTool) invokeRecovered(ctx context.Context, input string) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return g.inner.Invoke(ctx, input)
}
