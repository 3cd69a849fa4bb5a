package config

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// AutoApproval lists tools whose approval requests are answered without
// prompting. Tools not listed always prompt.
type AutoApproval struct {
	// tools maps tool names to their auto-approval status
	tools map[string]bool
	mu    sync.RWMutex
}

// NewAutoApproval creates an empty auto-approval list.
func NewAutoApproval() *AutoApproval {
	return &AutoApproval{
		tools: make(map[string]bool),
	}
}

// IsToolAutoApproved returns true if the tool is auto-approved.
// Unknown tools are not.
func (a *AutoApproval) IsToolAutoApproved(toolName string) bool {
	if a == nil {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tools[toolName]
}

// SetToolAutoApproval sets the auto-approval status for a tool.
func (a *AutoApproval) SetToolAutoApproval(toolName string, enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tools[toolName] = enabled
}

// GetTools returns a copy of all tool names and their status.
func (a *AutoApproval) GetTools() map[string]bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	toolsCopy := make(map[string]bool, len(a.tools))
	maps.Copy(toolsCopy, a.tools)
	return toolsCopy
}

// Approved returns the sorted names of auto-approved tools.
func (a *AutoApproval) Approved() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var names []string
	for name, enabled := range a.tools {
		if enabled {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// UnmarshalYAML accepts a mapping of tool name to bool.
func (a *AutoApproval) UnmarshalYAML(node *yaml.Node) error {
	var data map[string]any
	if err := node.Decode(&data); err != nil {
		return err
	}

	parsed := make(map[string]bool, len(data))
	for tool, value := range data {
		enabled, ok := value.(bool)
		if !ok {
			return fmt.Errorf("invalid value type for tool '%s': expected bool, got %T", tool, value)
		}
		parsed[tool] = enabled
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.tools = parsed
	return nil
}

// MarshalYAML renders the list as a mapping.
func (a *AutoApproval) MarshalYAML() (interface{}, error) {
	return a.GetTools(), nil
}
