package agent

import (
	"context"
	"sync"
	"time"

	"github.com/entrhq/tabpilot/pkg/agent/approval"
	"github.com/entrhq/tabpilot/pkg/agent/tools"
	"github.com/entrhq/tabpilot/pkg/llm"
	"github.com/entrhq/tabpilot/pkg/types"
)

// reply is one scripted provider outcome.
type reply struct {
	content string
	err     error
	usage   *types.TokenUsage
}

// scriptedProvider returns replies in order and records every request.
type scriptedProvider struct {
	mu       sync.Mutex
	replies  []reply
	requests [][]*types.Message
	usage    bool
	fallback string
}

func newProvider(replies ...reply) *scriptedProvider {
	return &scriptedProvider{replies: replies, usage: true}
}

func (p *scriptedProvider) Complete(_ context.Context, messages []*types.Message) (*llm.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, types.CloneMessages(messages))
	if len(p.replies) == 0 {
		return &llm.Response{Content: p.fallback}, nil
	}
	r := p.replies[0]
	p.replies = p.replies[1:]
	if r.err != nil {
		return nil, r.err
	}
	return &llm.Response{Content: r.content, Usage: r.usage}, nil
}

func (p *scriptedProvider) GetModelInfo() *types.ModelInfo {
	return &types.ModelInfo{Provider: "test", Name: "scripted"}
}

func (p *scriptedProvider) ReportsUsage() bool { return p.usage }

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *scriptedProvider) request(i int) []*types.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[i]
}

// streamingProvider streams each reply in two chunks.
type streamingProvider struct {
	*scriptedProvider
}

func (p streamingProvider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	resp, err := p.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}
	ch := make(chan *llm.StreamChunk, 3)
	half := len(resp.Content) / 2
	ch <- &llm.StreamChunk{Content: resp.Content[:half]}
	ch <- &llm.StreamChunk{Content: resp.Content[half:]}
	ch <- &llm.StreamChunk{Finished: true, Usage: &types.TokenUsage{PromptTokens: 1, CompletionTokens: 1, TotalTokens: 2}}
	close(ch)
	return ch, nil
}

// eventRecorder captures emitted events for testing
type eventRecorder struct {
	mu     sync.Mutex
	events []*types.AgentEvent
}

func (r *eventRecorder) emit(e *types.AgentEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) ofType(t types.AgentEventType) []*types.AgentEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.AgentEvent
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// fakeApprover answers every request with a fixed decision.
type fakeApprover struct {
	mu       sync.Mutex
	approved bool
	err      error
	requests []approval.Request
}

func (f *fakeApprover) RequestApproval(_ context.Context, req approval.Request) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.approved, f.err
}

// recordingTool remembers its inputs.
type recordingTool struct {
	mu     sync.Mutex
	name   string
	result string
	err    error
	inputs []string
	onCall func()
}

func (t *recordingTool) Name() string        { return t.name }
func (t *recordingTool) Description() string { return "test tool " + t.name }

func (t *recordingTool) Invoke(_ context.Context, input string) (string, error) {
	t.mu.Lock()
	t.inputs = append(t.inputs, input)
	onCall := t.onCall
	t.mu.Unlock()
	if onCall != nil {
		onCall()
	}
	return t.result, t.err
}

func (t *recordingTool) calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inputs)
}

// funcTool runs fn on every call.
type funcTool struct {
	name string
	fn   func(ctx context.Context, input string) (string, error)
}

func (t *funcTool) Name() string        { return t.name }
func (t *funcTool) Description() string { return "test tool " + t.name }

func (t *funcTool) Invoke(ctx context.Context, input string) (string, error) {
	return t.fn(ctx, input)
}

// fakePages reports a page that tests can change between tool calls.
type fakePages struct {
	mu    sync.Mutex
	url   string
	title string
}

func (p *fakePages) set(url, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url, p.title = url, title
}

func (p *fakePages) CurrentPage(context.Context) (string, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url, p.title, nil
}

// noSleep records backoff waits instead of sleeping.
type noSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *noSleep) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func toolCall(name, input string, requiresApproval bool) string {
	flag := "false"
	if requiresApproval {
		flag = "true"
	}
	return "<tool_call><tool_name>" + name + "</tool_name><tool_input>" + input +
		"</tool_input><requires_approval>" + flag + "</requires_approval></tool_call>"
}

var _ tools.Tool = (*recordingTool)(nil)
