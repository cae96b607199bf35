package llm

import (
	"context"
)

// Client defines the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

// Request is a single completion request.
type Request struct {
	System string
	Prompt string
	// JSON asks the provider for a JSON object response when it supports that mode.
	JSON bool
}

// Completion contains the provider's response and token usage.
type Completion struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
}
