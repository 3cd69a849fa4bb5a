package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/entrhq/tabpilot/pkg/config"
	"github.com/entrhq/tabpilot/pkg/types"
)

// Responder delivers a decision for a pending approval request.
type Responder interface {
	HandleApprovalResponse(requestID string, approved bool) bool
}

// prompter answers approval requests, either from the auto-approval list or
// by asking on the terminal.
type prompter struct {
	mu        sync.Mutex
	in        *bufio.Reader
	out       io.Writer
	auto      *config.AutoApproval
	responder Responder
	assumeYes bool
}

func newPrompter(in *bufio.Reader, out io.Writer, auto *config.AutoApproval, responder Responder) *prompter {
	if auto == nil {
		auto = config.NewAutoApproval()
	}
	return &prompter{in: in, out: out, auto: auto, responder: responder}
}

// handle answers one approval request event. Other events are ignored.
func (p *prompter) handle(event *types.AgentEvent) {
	if event.Type != types.EventTypeToolApprovalRequest || event.Approval == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	req := event.Approval
	if p.assumeYes || p.auto.IsToolAutoApproved(req.ToolName) {
		fmt.Fprintln(p.out, tipsStyle.Render("auto-approved "+req.ToolName))
		p.respond(req.RequestID, true)
		return
	}

	fmt.Fprintln(p.out, approvalBoxStyle.Render(formatApprovalRequest(req)))
	fmt.Fprint(p.out, promptStyle.Render("Allow? [y]es / [N]o / [a]lways for this tool: "))

	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		p.respond(req.RequestID, false)
		return
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		p.respond(req.RequestID, true)
	case "a", "always":
		p.auto.SetToolAutoApproval(req.ToolName, true)
		p.respond(req.RequestID, true)
	default:
		p.respond(req.RequestID, false)
	}
}

func (p *prompter) respond(requestID string, approved bool) {
	if !p.responder.HandleApprovalResponse(requestID, approved) {
		fmt.Fprintln(p.out, errorStyle.Render("That approval request already expired."))
	}
}

func formatApprovalRequest(req *types.ApprovalRequest) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Approval required: " + req.ToolName))
	if req.WindowID != "" {
		b.WriteString(tipsStyle.Render("  (" + req.WindowID + ")"))
	}
	if input := strings.TrimSpace(req.ToolInput); input != "" {
		b.WriteString("\n")
		b.WriteString(toolResultStyle.Render(input))
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		b.WriteString("\n")
		b.WriteString(thinkingStyle.Render(reason))
	}
	return b.String()
}
