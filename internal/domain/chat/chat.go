package chat

import "strings"

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// DefaultModel is the completion model used when none is configured.
const DefaultModel = "gpt-4o-mini"

// SystemPrompt is prepended to every relayed conversation. Callers cannot override it.
const SystemPrompt = "I am an assistant for Headstarter, a company dedicated to helping users create projects and practice coding interviews. My goal is to provide clear, concise, and accurate assistance to users looking for project ideas, coding interview tips, and technical guidance. I will be friendly, supportive, and encouraging, ensuring users feel confident and well-prepared for their coding challenges."

// Greeting opens every fresh conversation.
const Greeting = "Hi, I'm the support agent, how can I assist you?"

// Apology replaces a failed assistant reply.
const Apology = "I'm sorry, but I encountered an error. Please try again later."

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Turn is one message of a conversation.
type Turn struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// SystemTurn returns the fixed system instruction as a turn.
func SystemTurn() Turn {
	return Turn{Role: RoleSystem, Content: SystemPrompt}
}

// Conversation is an ordered sequence of turns; the index is the chronological position.
type Conversation []Turn

// NewConversation returns a conversation holding only the greeting.
func NewConversation() Conversation {
	return Conversation{{Role: RoleAssistant, Content: Greeting}}
}

// Append adds turns at the end and returns the extended conversation.
func (c Conversation) Append(turns ...Turn) Conversation {
	return append(c, turns...)
}

// AppendToLast concatenates text onto the content of the last turn.
// It is a no-op on an empty conversation.
func (c Conversation) AppendToLast(text string) Conversation {
	if len(c) == 0 || text == "" {
		return c
	}
	c[len(c)-1].Content += text
	return c
}

// Last returns the final turn and whether one exists.
func (c Conversation) Last() (Turn, bool) {
	if len(c) == 0 {
		return Turn{}, false
	}
	return c[len(c)-1], true
}

// Clone returns a copy that shares no backing array with c.
func (c Conversation) Clone() Conversation {
	if c == nil {
		return nil
	}
	out := make(Conversation, len(c))
	copy(out, c)
	return out
}

// Equal reports whether both conversations hold the same turns in the same order.
func (c Conversation) Equal(other Conversation) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// IsBlank reports whether input carries no visible text.
func IsBlank(input string) bool {
	return strings.TrimSpace(input) == ""
}

// Document is the persisted form of a conversation, one per identity.
type Document struct {
	Messages Conversation `json:"messages" yaml:"messages"`
}
