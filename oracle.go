package incidex

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/incidex/internal/domain"
)

// Oracle answers scoring and explanation prompts.
// Implementations may fail or return text that does not parse; the engine falls back in both cases.
type Oracle interface {
	Complete(ctx context.Context, p Prompt) (Completion, error)
}

// Prompt is a single chat-style request.
type Prompt struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
	// Fingerprint identifies the logical request for caching. Empty means uncacheable.
	Fingerprint string
}

// Completion carries the reply and token counts.
type Completion struct {
	Text         string
	PromptTokens int
	TotalTokens  int
}

// oracleAdapter wraps public Oracle to satisfy internal domain.Oracle.
type oracleAdapter struct {
	inner Oracle
}

func (a *oracleAdapter) Complete(ctx context.Context, p domain.Prompt) (domain.Completion, error) {
	c, err := a.inner.Complete(ctx, Prompt{
		System:      p.System,
		User:        p.User,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
		Fingerprint: p.Fingerprint,
	})
	if err != nil {
		return domain.Completion{}, fmt.Errorf("complete: %w", err)
	}
	return domain.Completion{
		Text:         c.Text,
		PromptTokens: c.PromptTokens,
		TotalTokens:  c.TotalTokens,
	}, nil
}

// noopOracle fails every call, so scoring yields fallbacks and ranking still works.
type noopOracle struct{}

func (noopOracle) Complete(context.Context, domain.Prompt) (domain.Completion, error) {
	return domain.Completion{}, fmt.Errorf("%w: oracle not configured (use WithOracle or WithOpenAI)",
		domain.ErrOracleUnavailable)
}
