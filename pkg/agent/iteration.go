package agent

import (
	"github.com/entrhq/tabpilot/pkg/agent/history"
	"github.com/entrhq/tabpilot/pkg/agent/prompts"
	"github.com/entrhq/tabpilot/pkg/agent/retry"
	"github.com/entrhq/tabpilot/pkg/llm"
	"github.com/entrhq/tabpilot/pkg/types"
)

// preparePrompt trims the history to the context budget and prepends the system prompt.
func (a *Agent) preparePrompt() []*types.Message {
	trimmed := history.TrimHistory(a.History(), a.maxContextTokens)
	messages := prompts.BuildMessages(a.assembler.GetSystemPrompt(), trimmed)
	agentLog.Debugf("Prompt prepared: %d messages, ~%d history tokens", len(messages), history.ContextTokenCount(trimmed))
	return messages
}

// callLLM sends the prompt, retrying rate-limit and overload errors with backoff.
func (a *Agent) callLLM(r *run) (*llm.Response, error) {
	messages := a.preparePrompt()

	var lastErr error
	attempts := 0
	for attempt := 0; attempt < a.maxProviderAttempts; attempt++ {
		attempts++
		resp, err := a.complete(r, messages)
		if err == nil {
			a.recordUsage(r, messages, resp)
			return resp, nil
		}
		if a.stopped(r.ctx) {
			return nil, ErrCancelled
		}

		lastErr = err
		if !retry.IsRetryable(err) || attempt == a.maxProviderAttempts-1 {
			break
		}

		wait := retry.CalculateBackoff(err, attempt)
		msg := retry.FormatErrorMessage(err)
		agentLog.Warnf("Session %s: %s (attempt %d, retrying in %s)", r.sessionID, msg, attempt+1, wait)
		a.emitEvent(types.NewProviderRetryEvent(r.sessionID, msg, attempt+1, wait.Milliseconds()))

		if err := a.sleep(r.ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, &ProviderFailure{
		Err:      lastErr,
		Message:  retry.FormatErrorMessage(lastErr),
		Attempts: attempts,
	}
}

// complete makes a single model call, streaming when the provider and client allow it.
func (a *Agent) complete(r *run, messages []*types.Message) (*llm.Response, error) {
	if a.streamingSupported(r.exec.ClientID) {
		stream, err := a.provider.(llm.Streamer).StreamCompletion(r.ctx, messages)
		if err != nil {
			return nil, err
		}
		return llm.Collect(stream, func(delta string) {
			a.emitEvent(types.NewMessageContentEvent(r.sessionID, delta))
		})
	}
	return a.provider.Complete(r.ctx, messages)
}

func (a *Agent) streamingSupported(clientID string) bool {
	if a.streaming != nil {
		return a.streaming.Supported(a.provider, clientID)
	}
	return retry.IsStreamingSupported(a.provider, clientID)
}

// recordUsage accumulates token usage, estimating it when the provider reports none.
func (a *Agent) recordUsage(r *run, messages []*types.Message, resp *llm.Response) {
	var usage types.TokenUsage
	if resp.Usage != nil && a.provider.ReportsUsage() {
		usage = *resp.Usage
	} else {
		usage = a.tokenizer.EstimateUsage(messages, resp.Content)
	}

	total := &r.result.Usage
	total.PromptTokens += usage.PromptTokens
	total.CompletionTokens += usage.CompletionTokens
	total.TotalTokens += usage.TotalTokens
	total.Estimated = total.Estimated || usage.Estimated

	a.emitEvent(types.NewTokenUsageEvent(r.sessionID, usage))
}
