// Package llm holds the chat-completion collaborators used by the enrichment
// pipeline: provider clients, the JSON-array helper and the retry policy.
package llm

import "context"

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a provider-neutral chat completion request.
type Request struct {
	Model       string
	Messages    []Message
	Temperature *float64
}

// UserRequest is a shorthand for a single user message request.
func UserRequest(model, prompt string, temperature *float64) Request {
	return Request{
		Model:       model,
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Temperature: temperature,
	}
}

// Chatter returns the assistant text for a chat request.
type Chatter interface {
	Chat(ctx context.Context, req Request) (string, error)
}

// ChatterFunc adapts a function to Chatter.
type ChatterFunc func(ctx context.Context, req Request) (string, error)

func (f ChatterFunc) Chat(ctx context.Context, req Request) (string, error) { return f(ctx, req) }
