// Package agent runs the browser-operator loop: it asks the model for the next
// step, executes the tool call it names and feeds the result back until the
// model answers without a tool call.
//
//	ag := agent.New(provider,
//	    agent.WithTools(browserTools...),
//	    agent.WithEventEmitter(b.Emitter()),
//	)
//	result, err := ag.ExecutePrompt(ctx, "find the cheapest flight on example.com", agent.ExecutionContext{})
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/tabpilot/pkg/agent/approval"
	"github.com/entrhq/tabpilot/pkg/agent/history"
	"github.com/entrhq/tabpilot/pkg/agent/memory"
	"github.com/entrhq/tabpilot/pkg/agent/prompts"
	"github.com/entrhq/tabpilot/pkg/agent/retry"
	"github.com/entrhq/tabpilot/pkg/agent/tools"
	"github.com/entrhq/tabpilot/pkg/llm"
	"github.com/entrhq/tabpilot/pkg/llm/tokenizer"
	"github.com/entrhq/tabpilot/pkg/logging"
	"github.com/entrhq/tabpilot/pkg/types"
)

const (
	// DefaultMaxIterations bounds the number of model calls in one run.
	DefaultMaxIterations = 50
	// DefaultMaxProviderAttempts bounds attempts per model call, retries included.
	DefaultMaxProviderAttempts = 3
)

var (
	// ErrMaxIterations is returned when the model has not finished within the iteration limit.
	ErrMaxIterations = errors.New("maximum iterations reached without completion")
	// ErrNoProvider is returned when the agent has no model provider.
	ErrNoProvider = errors.New("no LLM provider configured")
	// ErrCancelled is returned when a run stops because Cancel was called or its context ended.
	ErrCancelled = errors.New("execution cancelled")
)

var agentLog *logging.Logger

func init() {
	agentLog = logging.NewLogger("agent")
}

// ProviderFailure reports a model call that could not be completed, either
// because the error was not retryable or because retries ran out.
type ProviderFailure struct {
	Err      error
	Message  string
	Attempts int
}

func (e *ProviderFailure) Error() string {
	return fmt.Sprintf("provider failed after %d attempt(s): %s", e.Attempts, e.Message)
}

func (e *ProviderFailure) Unwrap() error { return e.Err }

// Approver asks a human to allow a tool call.
type Approver interface {
	RequestApproval(ctx context.Context, req approval.Request) (bool, error)
}

// PageContextProvider reports the page the browser currently shows.
type PageContextProvider interface {
	CurrentPage(ctx context.Context) (url, title string, err error)
}

// ExecutionContext carries per-run details from the host.
type ExecutionContext struct {
	// SessionID tags events and approval requests. Generated when empty.
	SessionID string
	// ClientID identifies the host client for the streaming capability check.
	ClientID string
	// WindowID is forwarded on approval requests.
	WindowID string
	// PageURL and PageTitle seed the page context when the host already knows them.
	PageURL   string
	PageTitle string
}

// Result summarizes a finished run.
type Result struct {
	SessionID  string
	Answer     string
	Iterations int
	Usage      types.TokenUsage
	Cancelled  bool
}

// Agent drives one conversation at a time. Separate agents share nothing but
// the approval correlator.
type Agent struct {
	provider  llm.Provider
	emitFn    func(*types.AgentEvent)
	approver  Approver
	prober    tools.Prober
	pages     PageContextProvider
	assembler *prompts.Assembler
	injector  *memory.Injector
	streaming *retry.StreamingPolicy
	tokenizer *tokenizer.Tokenizer
	state     retry.ExecutionState

	platform            string
	memoryToolName      string
	maxIterations       int
	maxProviderAttempts int
	maxContextTokens    int
	sleep               func(ctx context.Context, d time.Duration) error

	toolsMu sync.RWMutex
	raw     []tools.Tool
	wrapped []tools.Registered

	historyMu sync.RWMutex
	history   []*types.Message

	cancelMu  sync.Mutex
	cancelRun context.CancelFunc
}

// Option is a function that configures an agent
type Option func(*Agent)

// WithTools sets the initial tool list.
func WithTools(list ...tools.Tool) Option {
	return func(a *Agent) { a.raw = append([]tools.Tool(nil), list...) }
}

// WithEventEmitter sets where events are published, usually a bus emitter.
func WithEventEmitter(emit func(*types.AgentEvent)) Option {
	return func(a *Agent) { a.emitFn = emit }
}

// WithApprover replaces the process-wide approval correlator.
func WithApprover(approver Approver) Option {
	return func(a *Agent) { a.approver = approver }
}

// WithProber sets the browser health probe used by the tool wrapper.
func WithProber(p tools.Prober) Option {
	return func(a *Agent) { a.prober = p }
}

// WithPageContextProvider lets the agent follow navigation between tool calls.
func WithPageContextProvider(p PageContextProvider) Option {
	return func(a *Agent) { a.pages = p }
}

// WithPlatform overrides the detected platform used for the modifier-key hint.
func WithPlatform(platform string) Option {
	return func(a *Agent) { a.platform = platform }
}

// WithMemoryLookupTool names the tool used for domain memory injection.
func WithMemoryLookupTool(name string) Option {
	return func(a *Agent) { a.memoryToolName = name }
}

// WithMaxIterations sets the iteration limit.
func WithMaxIterations(n int) Option {
	return func(a *Agent) { a.maxIterations = n }
}

// WithMaxProviderAttempts sets how many times one model call is attempted.
func WithMaxProviderAttempts(n int) Option {
	return func(a *Agent) { a.maxProviderAttempts = n }
}

// WithMaxContextTokens sets the history trimming budget.
func WithMaxContextTokens(n int) Option {
	return func(a *Agent) { a.maxContextTokens = n }
}

// WithStreamingPolicy sets the client patterns that disable streaming.
func WithStreamingPolicy(p *retry.StreamingPolicy) Option {
	return func(a *Agent) { a.streaming = p }
}

// WithTokenizer sets the counter used when the provider reports no usage.
func WithTokenizer(t *tokenizer.Tokenizer) Option {
	return func(a *Agent) { a.tokenizer = t }
}

// New creates an agent for provider.
func New(provider llm.Provider, opts ...Option) *Agent {
	a := &Agent{
		provider:            provider,
		memoryToolName:      memory.DefaultLookupTool,
		maxIterations:       DefaultMaxIterations,
		maxProviderAttempts: DefaultMaxProviderAttempts,
		maxContextTokens:    history.DefaultMaxTokens,
		sleep:               sleepContext,
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.approver == nil {
		a.approver = approval.Default()
	}
	if a.tokenizer == nil {
		a.tokenizer = &tokenizer.Tokenizer{}
	}
	if a.maxIterations <= 0 {
		a.maxIterations = DefaultMaxIterations
	}
	if a.maxProviderAttempts <= 0 {
		a.maxProviderAttempts = DefaultMaxProviderAttempts
	}

	a.assembler = prompts.NewAssembler(a.platform)
	a.injector = memory.NewInjector(a.memoryToolName)
	a.UpdateTools(a.raw)

	return a
}

// Cancel stops the current run at the next iteration boundary and interrupts
// any provider call, backoff sleep or approval wait in progress.
func (a *Agent) Cancel() {
	a.state.Cancel()

	a.cancelMu.Lock()
	defer a.cancelMu.Unlock()
	if a.cancelRun != nil {
		a.cancelRun()
	}
}

// SetCurrentPageContext replaces the page block of the system prompt.
func (a *Agent) SetCurrentPageContext(url, title string) {
	a.assembler.SetCurrentPageContext(url, title)
}

// SystemPrompt returns the prompt the next model call would use.
func (a *Agent) SystemPrompt() string {
	return a.assembler.GetSystemPrompt()
}

// History returns a copy of the current run's messages.
func (a *Agent) History() []*types.Message {
	a.historyMu.RLock()
	defer a.historyMu.RUnlock()
	return types.CloneMessages(a.history)
}

// GetProvider returns the LLM provider used by this agent
func (a *Agent) GetProvider() llm.Provider {
	return a.provider
}

func (a *Agent) emitEvent(event *types.AgentEvent) {
	if a.emitFn != nil {
		a.emitFn(event)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
