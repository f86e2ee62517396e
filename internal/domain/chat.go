package domain

import (
	"context"
	"encoding/json"
)

// Chat message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatMessage is a single role-tagged message.
type ChatMessage struct {
	Role    string
	Content string
}

// ResponseSchema constrains a completion to JSON matching Schema.
type ResponseSchema struct {
	Name   string
	Schema json.RawMessage
	Strict bool
}

// ChatRequest is the input to a chat completion.
type ChatRequest struct {
	Model     string // empty uses the completer's default model
	Messages  []ChatMessage
	MaxTokens int
	Schema    *ResponseSchema
}

// ChatResult carries the generated text and token usage.
type ChatResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// ChatCompleter is the chat-completion collaborator contract.
type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResult, error)
}
