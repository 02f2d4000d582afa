// File: internal/services/ai/interface.go
package ai

import "context"

// Turn is one message of a conversation sent to a provider.
type Turn struct {
	Role      string // "user", "assistant" or "system"
	Content   string
	ImageURLs []string
}

// CompletionRequest is a provider-neutral chat completion call.
type CompletionRequest struct {
	Model       string
	Turns       []Turn
	Temperature float32
	MaxTokens   int
}

// CompletionProvider wraps a single LLM SDK.
type CompletionProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Name() string
}

// Gateway is the generation surface used by chat services. Errors are
// *AIError; IsRateLimited distinguishes quota failures from the rest.
type Gateway interface {
	GenerateReply(ctx context.Context, turns []Turn) (string, error)
	GenerateTitle(ctx context.Context, seed string) (string, error)
}
