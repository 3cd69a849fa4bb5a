package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/tabpilot/pkg/agent/memory"
	"github.com/entrhq/tabpilot/pkg/agent/tools"
	"github.com/entrhq/tabpilot/pkg/types"
	"github.com/google/uuid"
)

// run holds the state of one ExecutePrompt call. Tools are invoked with
// toolCtx, the caller's context, which Cancel does not reach: a tool call in
// progress finishes before the loop stops.
type run struct {
	ctx       context.Context
	toolCtx   context.Context
	exec      ExecutionContext
	sessionID string
	domain    string
	result    *Result
}

// ExecutePrompt runs the loop for prompt until the model answers without a
// tool call, the run is cancelled, the provider fails or the iteration limit
// is reached.
func (a *Agent) ExecutePrompt(ctx context.Context, prompt string, exec ExecutionContext) (*Result, error) {
	if a.provider == nil {
		return nil, ErrNoProvider
	}

	a.state.ResetCancel()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.cancelMu.Lock()
	a.cancelRun = cancel
	a.cancelMu.Unlock()
	defer func() {
		a.cancelMu.Lock()
		a.cancelRun = nil
		a.cancelMu.Unlock()
	}()

	sessionID := exec.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	r := &run{
		ctx:       runCtx,
		toolCtx:   ctx,
		exec:      exec,
		sessionID: sessionID,
		result:    &Result{SessionID: sessionID},
	}

	a.setHistory([]*types.Message{types.NewUserMessage(prompt)})

	pageURL := exec.PageURL
	if pageURL != "" {
		a.assembler.SetCurrentPageContext(exec.PageURL, exec.PageTitle)
	} else {
		pageURL = a.refreshPageContext(runCtx)
	}

	domain := memory.DomainOf(pageURL)
	if domain == "" {
		domain = memory.DomainFromPrompt(prompt)
	}
	a.injectMemories(r, domain)

	agentLog.Infof("Session %s: executing prompt (%d chars)", sessionID, len(prompt))

	for iteration := 1; iteration <= a.maxIterations; iteration++ {
		if a.stopped(runCtx) {
			return a.cancelled(r)
		}

		r.result.Iterations = iteration
		a.emitEvent(types.NewIterationStartEvent(sessionID, iteration))

		done, err := a.executeIteration(r)
		if err != nil {
			if a.stopped(runCtx) {
				return a.cancelled(r)
			}
			agentLog.Errorf("Session %s: %v", sessionID, err)
			a.emitEvent(types.NewErrorEvent(sessionID, err))
			return r.result, err
		}
		if done {
			return r.result, nil
		}
	}

	agentLog.Warnf("Session %s: stopped after %d iterations", sessionID, a.maxIterations)
	a.emitEvent(types.NewErrorEvent(sessionID, ErrMaxIterations))
	return r.result, ErrMaxIterations
}

// executeIteration performs one model call and acts on the response.
// It reports done when the model answered without a tool call.
func (a *Agent) executeIteration(r *run) (bool, error) {
	resp, err := a.callLLM(r)
	if err != nil {
		return false, err
	}

	a.appendHistory(types.NewAssistantMessage(resp.Content))
	a.emitEvent(types.NewAssistantMessageEvent(r.sessionID, resp.Content))

	thinking, call, err := tools.ExtractToolCall(resp.Content)
	if err != nil {
		a.reportProtocolError(r, err, tools.ProtocolErrorMessage(err))
		return false, nil
	}

	if call == nil {
		r.result.Answer = strings.TrimSpace(resp.Content)
		agentLog.Infof("Session %s: completed after %d iterations", r.sessionID, r.result.Iterations)
		a.emitEvent(types.NewCompletedEvent(r.sessionID, r.result.Answer))
		return true, nil
	}

	return false, a.executeTool(r, call, thinking)
}

func (a *Agent) reportProtocolError(r *run, err error, feedback string) {
	agentLog.Warnf("Session %s: protocol error: %v", r.sessionID, err)
	a.appendHistory(types.NewUserMessage(feedback))
	a.emitEvent(types.NewProtocolErrorEvent(r.sessionID, err))
}

func (a *Agent) stopped(ctx context.Context) bool {
	return a.state.IsCancelled() || ctx.Err() != nil
}

func (a *Agent) cancelled(r *run) (*Result, error) {
	agentLog.Infof("Session %s: cancelled", r.sessionID)
	r.result.Cancelled = true
	a.emitEvent(types.NewCancelledEvent(r.sessionID))

	if err := r.ctx.Err(); err != nil && !a.state.IsCancelled() {
		return r.result, fmt.Errorf("%w: %w", ErrCancelled, context.Cause(r.ctx))
	}
	return r.result, ErrCancelled
}

func (a *Agent) injectMemories(r *run, domain string) {
	if domain == "" || domain == r.domain {
		return
	}
	r.domain = domain

	updated, count := a.injector.Inject(r.ctx, domain, a.History())
	if count > 0 {
		a.setHistory(updated)
		a.emitEvent(types.NewMemoriesInjectedEvent(r.sessionID, domain, count))
	}
}

func (a *Agent) setHistory(msgs []*types.Message) {
	a.historyMu.Lock()
	defer a.historyMu.Unlock()
	a.history = msgs
}

func (a *Agent) appendHistory(msg *types.Message) {
	a.historyMu.Lock()
	defer a.historyMu.Unlock()
	a.history = append(a.history, msg)
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
