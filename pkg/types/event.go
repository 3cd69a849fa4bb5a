package types

// AgentEventType defines the type of event published on the host message bus.
type AgentEventType string

const (
	EventTypeIterationStart       AgentEventType = "iteration_start"        // EventTypeIterationStart indicates a new loop iteration began.
	EventTypeAssistantMessage     AgentEventType = "assistant_message"      // EventTypeAssistantMessage carries the model's full response for one iteration.
	EventTypeMessageContent       AgentEventType = "message_content"        // EventTypeMessageContent carries a streamed content delta.
	EventTypeToolCall             AgentEventType = "tool_call"              // EventTypeToolCall indicates the agent is invoking a tool.
	EventTypeToolResult           AgentEventType = "tool_result"            // EventTypeToolResult carries the string result of a tool.
	EventTypeProtocolError        AgentEventType = "protocol_error"         // EventTypeProtocolError indicates the model produced a malformed tool call.
	EventTypeToolApprovalRequest  AgentEventType = "tool_approval_request"  // EventTypeToolApprovalRequest asks the UI to approve a tool call.
	EventTypeToolApprovalResponse AgentEventType = "tool_approval_response" // EventTypeToolApprovalResponse carries the UI's decision.
	EventTypeToolApprovalGranted  AgentEventType = "tool_approval_granted"  // EventTypeToolApprovalGranted indicates the user approved.
	EventTypeToolApprovalRejected AgentEventType = "tool_approval_rejected" // EventTypeToolApprovalRejected indicates the user declined.
	EventTypeToolApprovalTimeout  AgentEventType = "tool_approval_timeout"  // EventTypeToolApprovalTimeout indicates nobody answered in time.
	EventTypeProviderRetry        AgentEventType = "provider_retry"         // EventTypeProviderRetry indicates a retryable provider error and the wait before retrying.
	EventTypeTokenUsage           AgentEventType = "token_usage"            // EventTypeTokenUsage carries token usage for one provider call.
	EventTypeMemoriesInjected     AgentEventType = "memories_injected"      // EventTypeMemoriesInjected indicates domain memories were added to the history.
	EventTypeCompleted            AgentEventType = "completed"              // EventTypeCompleted indicates the model signalled completion.
	EventTypeCancelled            AgentEventType = "cancelled"              // EventTypeCancelled indicates the run observed a cancel request.
	EventTypeError                AgentEventType = "error"                  // EventTypeError indicates the run stopped on an error.
)

// AgentEvent is a fire-and-forget notification for the UI collaborator.
// Only the fields relevant to Type are populated.
type AgentEvent struct {
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Approval carries request details for approval request events.
	Approval *ApprovalRequest `json:"approval,omitempty"`

	// ApprovalResponse carries the decision for approval response events.
	ApprovalResponse *ApprovalResponse `json:"approval_response,omitempty"`

	// TokenUsage carries prompt/completion counts for token usage events.
	TokenUsage *TokenUsage `json:"token_usage,omitempty"`

	Error error `json:"-"`

	Type       AgentEventType `json:"type"`
	SessionID  string         `json:"session_id,omitempty"`
	Content    string         `json:"content,omitempty"`
	ToolName   string         `json:"tool_name,omitempty"`
	ToolInput  string         `json:"tool_input,omitempty"`
	ApprovalID string         `json:"approval_id,omitempty"`
	Iteration  int            `json:"iteration,omitempty"`
}

// ApprovalRequest is the payload sent to the UI when a tool call needs a human decision.
type ApprovalRequest struct {
	RequestID string `json:"requestId"`
	ToolName  string `json:"toolName"`
	ToolInput string `json:"toolInput"`
	Reason    string `json:"reason"`
	SessionID string `json:"sessionId"`
	WindowID  string `json:"windowId"`
}

// ApprovalResponse is the UI's answer to an ApprovalRequest.
type ApprovalResponse struct {
	RequestID string `json:"requestId"`
	Approved  bool   `json:"approved"`
}

// TokenUsage contains token usage statistics from one provider call.
type TokenUsage struct {
	PromptTokens     int  `json:"prompt_tokens"`
	CompletionTokens int  `json:"completion_tokens"`
	TotalTokens      int  `json:"total_tokens"`
	Estimated        bool `json:"estimated"`
}

func newEvent(t AgentEventType) *AgentEvent {
	return &AgentEvent{Type: t, Metadata: make(map[string]interface{})}
}

// NewIterationStartEvent creates an iteration start event.
func NewIterationStartEvent(sessionID string, iteration int) *AgentEvent {
	e := newEvent(EventTypeIterationStart)
	e.SessionID = sessionID
	e.Iteration = iteration
	return e
}

// NewAssistantMessageEvent creates an event carrying one full model response.
func NewAssistantMessageEvent(sessionID, content string) *AgentEvent {
	e := newEvent(EventTypeAssistantMessage)
	e.SessionID = sessionID
	e.Content = content
	return e
}

// NewMessageContentEvent creates a streamed content delta event.
func NewMessageContentEvent(sessionID, delta string) *AgentEvent {
	e := newEvent(EventTypeMessageContent)
	e.SessionID = sessionID
	e.Content = delta
	return e
}

// NewToolCallEvent creates a tool call event.
func NewToolCallEvent(sessionID, toolName, toolInput string) *AgentEvent {
	e := newEvent(EventTypeToolCall)
	e.SessionID = sessionID
	e.ToolName = toolName
	e.ToolInput = toolInput
	return e
}

// NewToolResultEvent creates a tool result event.
func NewToolResultEvent(sessionID, toolName, result string) *AgentEvent {
	e := newEvent(EventTypeToolResult)
	e.SessionID = sessionID
	e.ToolName = toolName
	e.Content = result
	return e
}

// NewProtocolErrorEvent creates an event for a malformed tool call.
func NewProtocolErrorEvent(sessionID string, err error) *AgentEvent {
	e := newEvent(EventTypeProtocolError)
	e.SessionID = sessionID
	e.Error = err
	if err != nil {
		e.Content = err.Error()
	}
	return e
}

// NewToolApprovalRequestEvent creates an approval request event.
func NewToolApprovalRequestEvent(req ApprovalRequest) *AgentEvent {
	e := newEvent(EventTypeToolApprovalRequest)
	e.Approval = &req
	e.ApprovalID = req.RequestID
	e.SessionID = req.SessionID
	e.ToolName = req.ToolName
	e.ToolInput = req.ToolInput
	return e
}

// NewToolApprovalResponseEvent creates an approval response event.
func NewToolApprovalResponseEvent(requestID string, approved bool) *AgentEvent {
	e := newEvent(EventTypeToolApprovalResponse)
	e.ApprovalID = requestID
	e.ApprovalResponse = &ApprovalResponse{RequestID: requestID, Approved: approved}
	return e
}

// NewToolApprovalGrantedEvent creates an approval granted event.
func NewToolApprovalGrantedEvent(approvalID, toolName string) *AgentEvent {
	e := newEvent(EventTypeToolApprovalGranted)
	e.ApprovalID = approvalID
	e.ToolName = toolName
	return e
}

// NewToolApprovalRejectedEvent creates an approval rejected event.
func NewToolApprovalRejectedEvent(approvalID, toolName string) *AgentEvent {
	e := newEvent(EventTypeToolApprovalRejected)
	e.ApprovalID = approvalID
	e.ToolName = toolName
	return e
}

// NewToolApprovalTimeoutEvent creates an approval timeout event.
func NewToolApprovalTimeoutEvent(approvalID, toolName string) *AgentEvent {
	e := newEvent(EventTypeToolApprovalTimeout)
	e.ApprovalID = approvalID
	e.ToolName = toolName
	return e
}

// NewProviderRetryEvent creates an event describing a retry wait.
func NewProviderRetryEvent(sessionID, message string, attempt int, waitMillis int64) *AgentEvent {
	e := newEvent(EventTypeProviderRetry)
	e.SessionID = sessionID
	e.Content = message
	e.Metadata["attempt"] = attempt
	e.Metadata["wait_ms"] = waitMillis
	return e
}

// NewTokenUsageEvent creates a token usage event.
func NewTokenUsageEvent(sessionID string, usage TokenUsage) *AgentEvent {
	e := newEvent(EventTypeTokenUsage)
	e.SessionID = sessionID
	e.TokenUsage = &usage
	return e
}

// NewMemoriesInjectedEvent creates an event for a memory injection.
func NewMemoriesInjectedEvent(sessionID, domain string, count int) *AgentEvent {
	e := newEvent(EventTypeMemoriesInjected)
	e.SessionID = sessionID
	e.Content = domain
	e.Metadata["count"] = count
	return e
}

// NewCompletedEvent creates a completion event carrying the final answer.
func NewCompletedEvent(sessionID, answer string) *AgentEvent {
	e := newEvent(EventTypeCompleted)
	e.SessionID = sessionID
	e.Content = answer
	return e
}

// NewCancelledEvent creates a cancellation event.
func NewCancelledEvent(sessionID string) *AgentEvent {
	e := newEvent(EventTypeCancelled)
	e.SessionID = sessionID
	return e
}

// NewErrorEvent creates an error event.
func NewErrorEvent(sessionID string, err error) *AgentEvent {
	e := newEvent(EventTypeError)
	e.SessionID = sessionID
	e.Error = err
	if err != nil {
		e.Content = err.Error()
	}
	return e
}

// WithMetadata adds metadata to the event and returns it for chaining.
func (e *AgentEvent) WithMetadata(key string, value interface{}) *AgentEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// IsApprovalEvent reports whether the event belongs to the approval flow.
func (e *AgentEvent) IsApprovalEvent() bool {
	switch e.Type {
	case EventTypeToolApprovalRequest, EventTypeToolApprovalResponse,
		EventTypeToolApprovalGranted, EventTypeToolApprovalRejected, EventTypeToolApprovalTimeout:
		return true
	}
	return false
}

// IsTerminal reports whether the event ends an execution.
func (e *AgentEvent) IsTerminal() bool {
	return e.Type == EventTypeCompleted || e.Type == EventTypeCancelled || e.Type == EventTypeError
}
