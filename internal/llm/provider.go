package llm

import "context"

// Provider defines the interface for completion providers. Implementations
// return failures classified with the provider package so callers can
// decide whether to retry.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}

const defaultMaxTokens = 1024
