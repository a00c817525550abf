// Package types provides core types shared across scripturerag packages.
// This package has ZERO dependencies on other internal packages to avoid circular imports.
package types

// Role represents the role of a conversation participant.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one message of a caller-owned chat history.
type ConversationTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Label returns the speaker label used when a turn is rendered into a prompt.
// Anything that is not a user turn is rendered as the assistant.
func (t ConversationTurn) Label() string {
	if t.Role == RoleUser {
		return "User"
	}
	return "Assistant"
}
