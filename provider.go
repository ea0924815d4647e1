package oracle

import "context"

// Provider abstracts the LLM backend used to elaborate readings.
type Provider interface {
	// Chat sends a request and returns a complete response.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// Name returns the provider name (e.g. "openai", "deepseek").
	Name() string
}
