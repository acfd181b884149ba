package conversation

import "errors"

// Role values for messages. The transcript only ever contains these two.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Sentinel errors, part of the Store's public API; check with errors.Is.
var (
	// ErrConversationNotFound indicates the conversation id is unknown.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrInvalidRole indicates a role outside user/assistant.
	ErrInvalidRole = errors.New("invalid message role")
)
