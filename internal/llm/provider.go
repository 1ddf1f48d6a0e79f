package llm

import "context"

// Provider is the external text generation service.
type Provider interface {
	// Complete returns the full generated text for req.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}
