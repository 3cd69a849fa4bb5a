package prompts

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/entrhq/tabpilot/pkg/agent/tools"
	"github.com/entrhq/tabpilot/pkg/types"
)

// Assembler builds the system prompt from the tool list, page context and platform.
// The output is a pure function of that state.
type Assembler struct {
	mu       sync.RWMutex
	tools    []tools.Registered
	platform string
	pageURL  string
	title    string
	hasPage  bool
}

// NewAssembler creates an assembler for the given platform (a GOOS value).
func NewAssembler(platform string) *Assembler {
	if platform == "" {
		platform = DetectPlatform()
	}
	return &Assembler{platform: platform}
}

// DetectPlatform returns the operating system this process runs on.
func DetectPlatform() string {
	return runtime.GOOS
}

// ModifierKey returns the primary shortcut modifier for a platform.
func ModifierKey(platform string) string {
	if platform == "darwin" {
		return "Meta"
	}
	return "Control"
}

// UpdateTools replaces the rendered tool list. Page context is kept.
func (a *Assembler) UpdateTools(list []tools.Registered) {
	snapshot := make([]tools.Registered, len(list))
	copy(snapshot, list)

	a.mu.Lock()
	a.tools = snapshot
	a.mu.Unlock()
}

// SetCurrentPageContext replaces the current page block.
func (a *Assembler) SetCurrentPageContext(url, title string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pageURL = url
	a.title = title
	a.hasPage = url != "" || title != ""
}

// CurrentPage returns the page context last set.
func (a *Assembler) CurrentPage() (url, title string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.pageURL, a.title
}

// GetSystemPrompt assembles the prompt sections in their fixed order.
func (a *Assembler) GetSystemPrompt() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var builder strings.Builder

	builder.WriteString(PersonaPrompt)
	builder.WriteString("\n\n")

	builder.WriteString(OperatingSequencePrompt)
	builder.WriteString("\n\n")

	builder.WriteString(ToolCallingPrompt)
	builder.WriteString("\n\n")

	builder.WriteString("<available_tools>\n")
	builder.WriteString(FormatToolList(a.tools))
	builder.WriteString("</available_tools>\n\n")

	key := ModifierKey(a.platform)
	fmt.Fprintf(&builder, ModifierKeyTemplate, key, key, key)

	if a.hasPage {
		builder.WriteString("\n\n<page_context>\n")
		fmt.Fprintf(&builder, "Current page: %s\nTitle: %s\n", a.pageURL, a.title)
		builder.WriteString("</page_context>")
	}

	return builder.String()
}

// FormatToolList renders one "name: description" line per tool.
func FormatToolList(list []tools.Registered) string {
	var b strings.Builder
	for _, t := range list {
		fmt.Fprintf(&b, "%s: %s\n", t.Name(), t.Description())
	}
	return b.String()
}

// BuildMessages prepends the system prompt to the history, skipping stale system messages.
func BuildMessages(systemPrompt string, history []*types.Message) []*types.Message {
	messages := make([]*types.Message, 0, len(history)+1)
	messages = append(messages, types.NewSystemMessage(systemPrompt))

	for _, msg := range history {
		if msg != nil && msg.Role != types.RoleSystem {
			messages = append(messages, msg)
		}
	}
	return messages
}
