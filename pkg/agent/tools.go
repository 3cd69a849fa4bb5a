package agent

import (
	"github.com/entrhq/tabpilot/pkg/agent/tools"
)

// UpdateTools replaces the tool set. The new set is wrapped with the health
// probe and handed to the prompt assembler and the memory injector.
func (a *Agent) UpdateTools(list []tools.Tool) {
	registered := tools.RegisterAll(list...)
	wrapped := tools.Wrap(registered, a.prober)

	a.toolsMu.Lock()
	a.raw = append([]tools.Tool(nil), list...)
	a.wrapped = wrapped
	a.toolsMu.Unlock()

	a.assembler.UpdateTools(wrapped)
	a.injector.UpdateMemoryTool(registered)
}

// Tools returns the wrapped tool set in registration order.
func (a *Agent) Tools() []tools.Registered {
	a.toolsMu.RLock()
	defer a.toolsMu.RUnlock()

	out := make([]tools.Registered, len(a.wrapped))
	copy(out, a.wrapped)
	return out
}

// getTool retrieves a tool by name (thread-safe)
func (a *Agent) getTool(name string) (tools.Registered, bool) {
	a.toolsMu.RLock()
	defer a.toolsMu.RUnlock()

	return tools.Find(a.wrapped, name)
}
