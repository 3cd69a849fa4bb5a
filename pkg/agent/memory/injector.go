// Package memory injects previously learned task recipes for a site into the
// conversation before the model starts working on it.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/entrhq/tabpilot/pkg/agent/tools"
	"github.com/entrhq/tabpilot/pkg/logging"
	"github.com/entrhq/tabpilot/pkg/types"
)

// DefaultLookupTool is the name of the tool the injector calls.
const DefaultLookupTool = "memory_lookup"

// SequenceSeparator joins tool names when a record is rendered.
const SequenceSeparator = " → "

var logger *logging.Logger

func init() {
	logger = logging.NewLogger("memory")
}

// Record is one learned recipe: the tools that accomplished a task on a domain.
type Record struct {
	Domain          string   `json:"domain" yaml:"domain"`
	TaskDescription string   `json:"taskDescription" yaml:"taskDescription"`
	ToolSequence    []string `json:"toolSequence" yaml:"toolSequence"`
}

// Injector appends memories for a domain to a message history.
type Injector struct {
	mu       sync.RWMutex
	toolName string
	tool     tools.Tool
}

// NewInjector returns an injector that looks memories up through the named tool.
func NewInjector(lookupToolName string) *Injector {
	if lookupToolName == "" {
		lookupToolName = DefaultLookupTool
	}
	return &Injector{toolName: lookupToolName}
}

// UpdateMemoryTool re-resolves the lookup tool by name from the current tool set.
func (i *Injector) UpdateMemoryTool(list []tools.Registered) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.tool = nil
	if r, ok := tools.Find(list, i.toolName); ok {
		i.tool = r.Tool
	}
}

// LookupMemories returns messages with one summary message appended when the
// lookup tool knows recipes for domain. Failures leave messages untouched.
func (i *Injector) LookupMemories(ctx context.Context, domain string, messages []*types.Message) []*types.Message {
	out, _ := i.Inject(ctx, domain, messages)
	return out
}

// Inject is LookupMemories that also reports how many records were injected.
func (i *Injector) Inject(ctx context.Context, domain string, messages []*types.Message) ([]*types.Message, int) {
	i.mu.RLock()
	tool := i.tool
	i.mu.RUnlock()

	if tool == nil || domain == "" {
		return messages, 0
	}

	raw, err := tool.Invoke(ctx, domain)
	if err != nil {
		logger.Warnf("Memory lookup for %s failed: %v", domain, err)
		return messages, 0
	}

	var records []Record
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &records); err != nil {
		logger.Warnf("Memory lookup for %s returned unparseable result: %v", domain, err)
		return messages, 0
	}
	if len(records) == 0 {
		return messages, 0
	}

	logger.Infof("Injecting %d memories for %s", len(records), domain)
	out := make([]*types.Message, len(messages), len(messages)+1)
	copy(out, messages)
	return append(out, types.NewUserMessage(Summarize(domain, records))), len(records)
}

// Summarize renders records as the injected message body.
func Summarize(domain string, records []Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d memories for %s:", len(records), domain)
	for _, r := range records {
		fmt.Fprintf(&b, "\n- %s: %s", r.TaskDescription, strings.Join(r.ToolSequence, SequenceSeparator))
	}
	return b.String()
}

// DomainOf returns the lower-cased host of a URL, or "" when there is none.
func DomainOf(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

var urlRegex = regexp.MustCompile(`https?://[^\s"'<>]+`)

// DomainFromPrompt returns the domain of the first URL in text.
func DomainFromPrompt(text string) string {
	loc := urlRegex.FindString(text)
	if loc == "" {
		return ""
	}
	return DomainOf(strings.TrimRight(loc, ".,;:!?)"))
}
