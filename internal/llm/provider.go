// Package llm is the provider-neutral completion layer used by the tutor.
// Each vendor SDK is wrapped behind Provider; decorators add retry and
// request recording.
package llm

import (
	"context"
	"encoding/json"
)

// Provider sends one completion request to a model.
type Provider interface {
	// Generate returns the model's reply. With req.Schema set the reply is
	// JSON validated against it; otherwise Content holds plain text.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the LLM.
type Request struct {
	// System is the system prompt.
	System string

	// Messages is the conversation so far, oldest first. The last entry is
	// normally the learner's newest message.
	Messages []Message

	// Schema requests structured output when non-nil.
	Schema *Schema

	MaxTokens int

	// Temperature in [0, 1]. Zero leaves the provider default.
	Temperature float64
}

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a role providers accept in Messages.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Schema defines the JSON structure expected from the LLM.
type Schema struct {
	// Name identifies the schema to providers and keys the compile cache.
	Name string

	Description string

	// Definition is a JSON Schema document.
	Definition map[string]any
}

// Response holds the LLM's output.
type Response struct {
	// Content is validated JSON when a schema was requested, raw text otherwise.
	Content json.RawMessage

	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Text returns Content as a string.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Content)
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
