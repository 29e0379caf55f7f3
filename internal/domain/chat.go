package domain

import "errors"

// Chat roles understood by every completion backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is the provider-agnostic chat message shape sent to completion
// backends.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ErrMalformedResponse marks completion responses that could not be turned
// into reply text.
var ErrMalformedResponse = errors.New("malformed completion response")
