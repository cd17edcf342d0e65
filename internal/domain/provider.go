package domain

import "context"

// LLMProvider is the interface for any LLM backend.
type LLMProvider interface {
	// Chat sends a request and returns a complete response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	// Name returns the provider's identifier (e.g., "ollama").
	Name() string
}

// Dispatcher invokes a remote agent on behalf of a user and returns its
// final textual answer. Implementations block until the remote side
// responds or the call times out.
type Dispatcher interface {
	Dispatch(ctx context.Context, user, prompt string) (string, error)
}
