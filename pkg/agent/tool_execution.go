package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/entrhq/tabpilot/pkg/agent/approval"
	"github.com/entrhq/tabpilot/pkg/agent/memory"
	"github.com/entrhq/tabpilot/pkg/agent/tools"
	"github.com/entrhq/tabpilot/pkg/types"
)

// executeTool handles tool lookup, approval, execution and result recording.
// Only cancellation is returned as an error; every other outcome becomes a
// message the model sees on the next iteration.
func (a *Agent) executeTool(r *run, call *tools.ToolCall, thinking string) error {
	tool, ok := a.getTool(call.ToolName)
	if !ok {
		err := fmt.Errorf("unknown tool: %s", call.ToolName)
		a.reportProtocolError(r, err, tools.UnknownToolMessage(call.ToolName, a.Tools()))
		return nil
	}

	a.emitEvent(types.NewToolCallEvent(r.sessionID, call.ToolName, call.Input))

	result, err := a.runTool(r, tool, call, thinking)
	if err != nil {
		return err
	}

	agentLog.Debugf("Session %s: %s returned %d chars", r.sessionID, call.ToolName, len(result))
	a.appendHistory(types.NewUserMessage(fmt.Sprintf("Tool %s result:\n%s", call.ToolName, result)))
	a.emitEvent(types.NewToolResultEvent(r.sessionID, call.ToolName, result))

	if url := a.refreshPageContext(r.ctx); url != "" {
		a.injectMemories(r, memory.DomainOf(url))
	}
	return nil
}

// runTool asks for approval when the model flagged the call, then invokes the tool.
func (a *Agent) runTool(r *run, tool tools.Registered, call *tools.ToolCall, thinking string) (string, error) {
	if call.RequiresApproval {
		approved, err := a.approver.RequestApproval(r.ctx, approval.Request{
			SessionID: r.sessionID,
			ToolName:  call.ToolName,
			ToolInput: call.Input,
			Reason:    thinking,
			WindowID:  r.exec.WindowID,
		})
		switch {
		case err != nil && (isCancellation(err) || a.stopped(r.ctx)):
			return "", ErrCancelled
		case errors.Is(err, approval.ErrApprovalTimeout):
			return fmt.Sprintf("Approval for %s timed out. The tool was not run.", call.ToolName), nil
		case err != nil:
			agentLog.Errorf("Session %s: approval for %s failed: %v", r.sessionID, call.ToolName, err)
			return fmt.Sprintf("Approval for %s failed (%v). The tool was not run.", call.ToolName, err), nil
		case !approved:
			return fmt.Sprintf("User declined to run %s.", call.ToolName), nil
		}
	}

	result, err := invokeTool(r.toolCtx, tool, call.Input)
	if err != nil {
		// Tab-lifecycle tools are not wrapped and may still return errors.
		agentLog.Errorf("Session %s: %s failed: %v", r.sessionID, call.ToolName, err)
		return tools.ToolErrorMessage(err.Error()), nil
	}
	return result, nil
}

func invokeTool(ctx context.Context, tool tools.Tool, input string) (result string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return tool.Invoke(ctx, input)
}

// refreshPageContext pulls the current page from the browser into the system
// prompt and returns its URL, or "" when unknown.
func (a *Agent) refreshPageContext(ctx context.Context) string {
	if a.pages == nil {
		return ""
	}
	url, title, err := a.pages.CurrentPage(ctx)
	if err != nil {
		agentLog.Debugf("Page context unavailable: %v", err)
		return ""
	}
	if url != "" {
		a.assembler.SetCurrentPageContext(url, title)
	}
	return url
}
