package commands

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/entrhq/tabpilot/pkg/agent"
	"github.com/entrhq/tabpilot/pkg/llm/parser"
	"github.com/entrhq/tabpilot/pkg/types"
)

const (
	maxInputPreview  = 160
	maxResultPreview = 6
)

// renderer prints agent events to the terminal.
type renderer struct {
	mu       sync.Mutex
	w        io.Writer
	verbose  bool
	streamed bool
	stream   *parser.ToolCallParser
}

func newRenderer(w io.Writer, verbose bool) *renderer {
	return &renderer{w: w, verbose: verbose, stream: parser.NewToolCallParser()}
}

// handle renders one event. Approval requests are left to the prompter.
func (r *renderer) handle(event *types.AgentEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch event.Type {
	case types.EventTypeIterationStart:
		if r.verbose {
			fmt.Fprintln(r.w, tipsStyle.Render(fmt.Sprintf("· iteration %d", event.Iteration)))
		}
	case types.EventTypeMessageContent:
		r.streamed = true
		if prose, _ := r.stream.Parse(event.Content); prose != "" {
			fmt.Fprint(r.w, thinkingStyle.Render(prose))
		}
	case types.EventTypeAssistantMessage:
		if r.streamed {
			prose, _ := r.stream.Flush()
			fmt.Fprintln(r.w, thinkingStyle.Render(prose))
			r.stream.Reset()
		} else if thinking := strings.TrimSpace(stripToolCall(event.Content)); thinking != "" {
			fmt.Fprintln(r.w, thinkingStyle.Render(thinking))
		}
		r.streamed = false
	case types.EventTypeToolCall:
		line := toolStyle.Render("▸ " + event.ToolName)
		if input := oneLine(event.ToolInput, maxInputPreview); input != "" {
			line += " " + tipsStyle.Render(input)
		}
		fmt.Fprintln(r.w, line)
	case types.EventTypeToolResult:
		fmt.Fprintln(r.w, toolResultStyle.Render(indent(preview(event.Content, maxResultPreview), "  ")))
	case types.EventTypeProtocolError:
		fmt.Fprintln(r.w, errorStyle.Render("✗ "+event.Content))
	case types.EventTypeProviderRetry:
		fmt.Fprintln(r.w, tipsStyle.Render(fmt.Sprintf("↻ %s (attempt %v, retrying in %vms)",
			event.Content, event.Metadata["attempt"], event.Metadata["wait_ms"])))
	case types.EventTypeMemoriesInjected:
		fmt.Fprintln(r.w, tipsStyle.Render(fmt.Sprintf("◆ recalled %v memories for %s", event.Metadata["count"], event.Content)))
	case types.EventTypeTokenUsage:
		if r.verbose && event.TokenUsage != nil {
			fmt.Fprintln(r.w, tipsStyle.Render(formatUsage(*event.TokenUsage)))
		}
	case types.EventTypeToolApprovalGranted:
		fmt.Fprintln(r.w, toolStyle.Render("✓ approved "+event.ToolName))
	case types.EventTypeToolApprovalRejected:
		fmt.Fprintln(r.w, errorStyle.Render("✗ declined "+event.ToolName))
	case types.EventTypeToolApprovalTimeout:
		fmt.Fprintln(r.w, errorStyle.Render("⏱ approval for "+event.ToolName+" timed out"))
	case types.EventTypeCancelled:
		fmt.Fprintln(r.w, errorStyle.Render("Cancelled."))
	case types.EventTypeError:
		fmt.Fprintln(r.w, errorStyle.Render("Error: "+event.Content))
	}
}

// printResult renders the final answer and run statistics.
func (r *renderer) printResult(result *agent.Result) {
	if result == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if answer := strings.TrimSpace(result.Answer); answer != "" {
		fmt.Fprintln(r.w, answerBoxStyle.Render(headerStyle.Render("Answer")+"\n"+answer))
	}
	stats := fmt.Sprintf("%d iteration(s) · %s", result.Iterations, formatUsage(result.Usage))
	fmt.Fprintln(r.w, tipsStyle.Render(stats))
}

func formatUsage(u types.TokenUsage) string {
	s := fmt.Sprintf("%d tokens (%d prompt, %d completion)", u.TotalTokens, u.PromptTokens, u.CompletionTokens)
	if u.Estimated {
		s += " estimated"
	}
	return s
}

// stripToolCall drops the tool call block from an assistant message so only
// the model's reasoning is shown.
func stripToolCall(content string) string {
	if i := strings.Index(content, "<tool_call"); i >= 0 {
		return content[:i]
	}
	return content
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > limit {
		return s[:limit] + "…"
	}
	return s
}

// preview keeps the first n non-empty lines of s.
func preview(s string, n int) string {
	var kept []string
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(kept) == n {
			kept = append(kept, "…")
			break
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func indent(s, prefix string) string {
	if s == "" {
		return s
	}
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
