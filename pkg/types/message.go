package types

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"    // RoleSystem carries the assembled instructions.
	RoleUser      MessageRole = "user"      // RoleUser carries prompts, tool results and injected context.
	RoleAssistant MessageRole = "assistant" // RoleAssistant carries model output.
)

// Message is a single turn of the conversation history.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// NewUserMessage creates a user-role message.
func NewUserMessage(content string) *Message {
	return &Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant-role message.
func NewAssistantMessage(content string) *Message {
	return &Message{Role: RoleAssistant, Content: content}
}

// NewSystemMessage creates a system-role message.
func NewSystemMessage(content string) *Message {
	return &Message{Role: RoleSystem, Content: content}
}

// IsUser reports whether the message was authored by the user side.
func (m *Message) IsUser() bool {
	return m != nil && m.Role == RoleUser
}

// CloneMessages returns a shallow copy of the slice so callers can append
// without aliasing the original backing array.
func CloneMessages(messages []*Message) []*Message {
	out := make([]*Message, len(messages))
	copy(out, messages)
	return out
}

// ModelInfo describes the model behind a provider.
type ModelInfo struct {
	Metadata          map[string]interface{}
	Provider          string
	Name              string
	MaxTokens         int
	SupportsStreaming bool
	ReportsUsage      bool
}
