package dialog

// Role represents the message roles understood by the nucleus
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleCommand   Role = "command"
)

// Markers map roles to the tokenizer's special tokens.
var roleMarkers = map[Role]string{
	RoleSystem:    "<sys>",
	RoleUser:      "<usr>",
	RoleAssistant: "<bot>",
	RoleCommand:   "<cmd>",
}

// Message represents a single message in a conversation
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation represents a complete nucleus conversation
type Conversation struct {
	System   string    `json:"system,omitempty"`
	Messages []Message `json:"messages"`
}

// ConversationBuilder helps build nucleus conversations
type ConversationBuilder struct {
	conversation *Conversation
}

// NewConversationBuilder creates a new conversation builder
func NewConversationBuilder() *ConversationBuilder {
	return &ConversationBuilder{
		conversation: &Conversation{
			Messages: []Message{},
		},
	}
}

// WithSystem sets the system identity line
func (cb *ConversationBuilder) WithSystem(system string) *ConversationBuilder {
	cb.conversation.System = system
	return cb
}

// AddMessage adds a message to the conversation
func (cb *ConversationBuilder) AddMessage(role Role, content string) *ConversationBuilder {
	cb.conversation.Messages = append(cb.conversation.Messages, Message{
		Role:    role,
		Content: content,
	})
	return cb
}

// AddUserMessage adds a user message
func (cb *ConversationBuilder) AddUserMessage(content string) *ConversationBuilder {
	return cb.AddMessage(RoleUser, content)
}

// AddAssistantMessage adds an assistant message
func (cb *ConversationBuilder) AddAssistantMessage(content string) *ConversationBuilder {
	return cb.AddMessage(RoleAssistant, content)
}

// AddCommandMessage adds a shell command message
func (cb *ConversationBuilder) AddCommandMessage(content string) *ConversationBuilder {
	return cb.AddMessage(RoleCommand, content)
}

// Build returns the constructed conversation
func (cb *ConversationBuilder) Build() *Conversation {
	return cb.conversation
}
