// Package llm provides chat-completion clients and the middleware that wraps
// them with retries, per-call timeouts, and logging.
package llm

import (
	"context"
	"strings"
)

// Role is the author of a chat message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Message is one chat message sent to the model.
type Message struct {
	Role    Role
	Content string
}

// User returns a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// ChatClient sends a conversation and returns the text of the first choice.
type ChatClient interface {
	Name() string
	Chat(ctx context.Context, messages []Message) (string, error)
}

// Middleware decorates a ChatClient with a cross-cutting concern.
type Middleware func(ChatClient) ChatClient

// Wrap applies middlewares in left-to-right order.
// Wrap(inner, A, B) => A(B(inner)).
func Wrap(inner ChatClient, mws ...Middleware) ChatClient {
	out := inner
	for i := len(mws) - 1; i >= 0; i-- {
		out = mws[i](out)
	}
	return out
}

func messageBytes(messages []Message) int {
	n := 0
	for _, m := range messages {
		n += len(m.Content)
	}
	return n
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max]
}
