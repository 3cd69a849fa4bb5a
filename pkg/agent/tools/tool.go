package tools

import (
	"context"
	"strings"
)

// Tool represents a capability the model can invoke through a <tool_call> block.
//
// Tools receive the raw <tool_input> text and return a string result. Expected
// failures should be reported as strings starting with "Error:"; returned Go
// errors and panics are treated as unexpected and translated by Wrap.
type Tool interface {
	// Name returns the unique identifier for this tool (e.g., "browser_click")
	Name() string

	// Description returns a one-line description rendered into the system prompt
	Description() string

	// Invoke runs the tool with the given input
	Invoke(ctx context.Context, input string) (string, error)
}

// Kind tags how a tool relates to the browser session.
type Kind int

const (
	// KindSessionDependent tools need a healthy page and are probed before each call.
	KindSessionDependent Kind = iota
	// KindTabLifecycle tools manage tabs and stay callable when the session is broken.
	KindTabLifecycle
)

// TabLifecyclePrefix marks tab-lifecycle tools by name.
const TabLifecyclePrefix = "browser_tab_"

func (k Kind) String() string {
	if k == KindTabLifecycle {
		return "tab_lifecycle"
	}
	return "session_dependent"
}

// KindOf returns the variant for a tool name.
func KindOf(name string) Kind {
	if strings.HasPrefix(name, TabLifecyclePrefix) {
		return KindTabLifecycle
	}
	return KindSessionDependent
}

// Registered is a tool together with the variant computed when it was registered.
type Registered struct {
	Tool
	Kind Kind
}

// Register tags a tool with its variant.
func Register(t Tool) Registered {
	return Registered{Tool: t, Kind: KindOf(t.Name())}
}

// RegisterAll tags every tool, preserving order.
func RegisterAll(ts ...Tool) []Registered {
	out := make([]Registered, 0, len(ts))
	for _, t := range ts {
		if t == nil {
			continue
		}
		out = append(out, Register(t))
	}
	return out
}

// Find returns the first tool with the given name.
func Find(list []Registered, name string) (Registered, bool) {
	for _, r := range list {
		if r.Tool != nil && r.Name() == name {
			return r, true
		}
	}
	return Registered{}, false
}

// Names lists tool names in registration order.
func Names(list []Registered) []string {
	names := make([]string, 0, len(list))
	for _, r := range list {
		names = append(names, r.Name())
	}
	return names
}

// InvokeFunc is the signature of a function-backed tool.
type InvokeFunc func(ctx context.Context, input string) (string, error)

type funcTool struct {
	name        string
	description string
	fn          InvokeFunc
}

// NewFunc builds a Tool from a plain function.
func NewFunc(name, description string, fn InvokeFunc) Tool {
	return &funcTool{name: name, description: description, fn: fn}
}

func (f *funcTool) Name() string        { return f.name }
func (f *funcTool) Description() string { return f.description }

func (f *funcTool) Invoke(ctx context.Context, input string) (string, error) {
	return f.fn(ctx, input)
}
