// Package llm defines the Provider interface for text generation backends.
//
// A provider wraps a remote or local model API (e.g., OpenAI, Anthropic, or
// a local Ollama instance) and exposes a uniform completion call so the
// announcer does not couple to any specific SDK.
//
// Implementors must be safe for concurrent use.
package llm

import "context"

// Message is one turn of a conversation.
type Message struct {
	// Role is "user" or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// CompletionRequest carries everything the model needs to produce a
// response. Messages must be non-empty.
type CompletionRequest struct {
	// SystemPrompt is an optional high-priority instruction injected before
	// the conversation. Providers without a dedicated system slot prepend it
	// as a "system"-role message.
	SystemPrompt string

	// Messages is the ordered conversation history. The last message drives
	// the response.
	Messages []Message

	// Temperature controls output randomness in [0.0, 2.0]. Zero uses the
	// provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero uses the provider default.
	MaxTokens int
}

// Usage holds token accounting returned by the backend. Counts are in the
// model's native token unit and differ between providers for the same text.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionResponse is the model's full reply.
type CompletionResponse struct {
	// Content is the text of the assistant's reply.
	Content string

	// Usage is the token accounting, zero when the backend omits it.
	Usage Usage
}

// Provider is a text generation backend.
type Provider interface {
	// Name identifies the backend for logging ("openai", "anthropic", ...).
	Name() string

	// Complete performs a blocking completion.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
