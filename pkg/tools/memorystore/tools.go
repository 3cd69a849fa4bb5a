package memorystore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/entrhq/tabpilot/pkg/agent/memory"
)

// DefaultLookupLimit is how many memories memory_lookup returns.
const DefaultLookupLimit = 5

// SaveToolName is the name of the tool that records a memory.
const SaveToolName = "memory_save"

// LookupTool returns a domain's memories as a JSON array of records.
type LookupTool struct {
	store Store
	limit int
	name  string
}

// NewLookupTool creates the memory_lookup tool. limit <= 0 uses DefaultLookupLimit.
func NewLookupTool(store Store, limit int) *LookupTool {
	if limit <= 0 {
		limit = DefaultLookupLimit
	}
	return &LookupTool{store: store, limit: limit, name: memory.DefaultLookupTool}
}

// Named registers the tool under name instead of memory_lookup. The agent
// must be told the same name so it injects the tool's output.
func (t *LookupTool) Named(name string) *LookupTool {
	if name = strings.TrimSpace(name); name != "" {
		t.name = name
	}
	return t
}

func (t *LookupTool) Name() string { return t.name }

func (t *LookupTool) Description() string {
	return `Recall how tasks were done before on a site. Input: a domain or URL, or {"domain": "..."}. Returns a JSON array of {domain, taskDescription, toolSequence}.`
}

// Invoke looks up the domain. Unknown domains return an empty array.
func (t *LookupTool) Invoke(ctx context.Context, input string) (string, error) {
	domain := strings.TrimSpace(input)
	if strings.HasPrefix(domain, "{") {
		var args struct {
			Domain string `json:"domain"`
		}
		if err := json.Unmarshal([]byte(domain), &args); err != nil {
			return "", fmt.Errorf("invalid input: %w", err)
		}
		domain = args.Domain
	}
	if memory.DomainOf(domain) == "" {
		return "", fmt.Errorf("a domain or URL is required")
	}

	entries, err := t.store.Lookup(ctx, domain, t.limit)
	if err != nil {
		return "", err
	}

	records := make([]memory.Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, e.Record)
	}
	b, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("failed to encode memories: %w", err)
	}
	return string(b), nil
}

// SaveTool records which tool sequence completed a task on a domain.
type SaveTool struct {
	store     Store
	sessionID func() string
}

// NewSaveTool creates the memory_save tool. sessionID may be nil.
func NewSaveTool(store Store, sessionID func() string) *SaveTool {
	return &SaveTool{store: store, sessionID: sessionID}
}

func (t *SaveTool) Name() string { return SaveToolName }

func (t *SaveTool) Description() string {
	return `Remember how a task was completed so it can be repeated later. Input: {"domain": "...", "taskDescription": "...", "toolSequence": ["browser_navigate", "browser_click"]}.`
}

// Invoke validates and stores the record.
func (t *SaveTool) Invoke(ctx context.Context, input string) (string, error) {
	var rec memory.Record
	if err := json.Unmarshal([]byte(strings.TrimSpace(input)), &rec); err != nil {
		return "", fmt.Errorf("invalid input: expected a JSON object: %w", err)
	}

	session := ""
	if t.sessionID != nil {
		session = t.sessionID()
	}

	entry, err := t.store.Save(ctx, rec, session)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Saved memory %s for %s: %s", entry.ID, entry.Domain,
		strings.Join(entry.ToolSequence, memory.SequenceSeparator)), nil
}
