// Package answer talks to the language model that writes replies.
package answer

import "context"

// Role tags a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Answerer produces a reply to history under a system prompt.
type Answerer interface {
	Respond(ctx context.Context, system string, history []Turn) (string, error)
	Stream(ctx context.Context, system string, history []Turn) (Stream, error)
}

// Stream yields reply increments until Next returns false. It cannot be
// restarted; cancelling the context passed to Answerer.Stream ends it.
type Stream interface {
	Next() bool
	Delta() string
	Err() error
	Close() error
}
