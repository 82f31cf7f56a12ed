package domain

import "context"

// Oracle is the shared judgment contract between layers: prompt in, text out.
// Implementations may fail, time out or return text that does not parse.
type Oracle interface {
	Complete(ctx context.Context, p Prompt) (Completion, error)
}

// HealthChecker verifies oracle provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Prompt is a single chat-style request to the oracle.
type Prompt struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
	// Fingerprint identifies the logical request for memoization.
	// Empty means the completion must not be cached.
	Fingerprint string
}

// Completion carries the oracle reply and token usage through the decorator chain.
type Completion struct {
	Text         string
	PromptTokens int
	TotalTokens  int
	// Cached is set by the memoization layer on a hit.
	Cached bool
}
