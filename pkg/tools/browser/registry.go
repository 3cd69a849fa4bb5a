package browser

import (
	"github.com/entrhq/tabpilot/pkg/agent/tools"
)

// ToolSet groups the browser tools bound to one tab manager.
type ToolSet struct {
	manager *TabManager
	tools   []tools.Tool
}

// NewToolSet creates the browser tools for manager.
func NewToolSet(manager *TabManager) *ToolSet {
	return &ToolSet{manager: manager}
}

// Tools returns every browser tool, tab lifecycle tools first. The same
// slice is returned on every call.
func (s *ToolSet) Tools() []tools.Tool {
	if len(s.tools) > 0 {
		return s.tools
	}

	// tab lifecycle tools stay usable when the active tab is gone
	s.tools = append(s.tools,
		NewTabNewTool(s.manager),
		NewTabListTool(s.manager),
		NewTabSelectTool(s.manager),
		NewTabCloseTool(s.manager),
	)

	// the rest act on the active tab and are guarded by Probe
	s.tools = append(s.tools,
		NewNavigateTool(s.manager),
		NewClickTool(s.manager),
		NewTypeTool(s.manager),
		NewPressKeyTool(s.manager),
		NewWaitTool(s.manager),
		NewGetContentTool(s.manager),
		NewSearchTool(s.manager),
		NewScreenshotTool(s.manager),
		NewEvaluateTool(s.manager),
	)

	return s.tools
}

// Manager returns the tab manager the tools act on.
func (s *ToolSet) Manager() *TabManager {
	return s.manager
}

// Lookup returns the tool registered under name.
func (s *ToolSet) Lookup(name string) (tools.Tool, bool) {
	for _, t := range s.Tools() {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}
