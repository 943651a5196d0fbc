package entity

import "github.com/google/uuid"

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

type Message struct {
	Role             MessageRole
	Content          string
	ReasoningContent string
	ToolCalls        []ToolCall
	ToolCallID       string
	Name             string
}

type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Conversation is the ordered history of one Call or Stream invocation.
// It is never shared between invocations.
type Conversation struct {
	ID       string
	Messages []Message
}

func NewConversation(systemPrompt, userPrompt string) *Conversation {
	conv := &Conversation{ID: uuid.NewString()}
	if systemPrompt != "" {
		conv.Append(Message{Role: RoleSystem, Content: systemPrompt})
	}
	conv.Append(Message{Role: RoleUser, Content: userPrompt})
	return conv
}

func (c *Conversation) Append(msgs ...Message) {
	c.Messages = append(c.Messages, msgs...)
}

// Snapshot returns a copy of the history that later appends do not affect.
func (c *Conversation) Snapshot() []Message {
	out := make([]Message, len(c.Messages))
	copy(out, c.Messages)
	return out
}
