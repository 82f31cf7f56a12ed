// Package oracle wraps the scoring oracle with budget enforcement and usage accounting.
package oracle

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/incidex/internal/domain"
	"github.com/kailas-cloud/incidex/internal/metrics"
)

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(c domain.Completion)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedOracle wraps an Oracle with budget enforcement and logging.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
// It sits outside the completion cache so cache hits are counted too.
type InstrumentedOracle struct {
	inner    domain.Oracle
	provider string
	model    string
	budget   BudgetChecker
	logger   *zap.Logger
}

// NewInstrumentedOracle wraps an oracle. budget can be nil.
func NewInstrumentedOracle(
	inner domain.Oracle, provider, model string,
	budget BudgetChecker, logger *zap.Logger,
) *InstrumentedOracle {
	return &InstrumentedOracle{
		inner:    inner,
		provider: provider,
		model:    model,
		budget:   budget,
		logger:   logger,
	}
}

// Complete checks the budget, delegates to the inner oracle and records usage.
func (o *InstrumentedOracle) Complete(ctx context.Context, p domain.Prompt) (domain.Completion, error) {
	if o.budget != nil {
		if err := o.budget.Check(ctx); err != nil {
			o.logger.Error("Oracle budget exceeded",
				zap.String("provider", o.provider),
				zap.String("model", o.model),
				zap.Error(err),
			)
			return domain.Completion{}, fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()
	c, err := o.inner.Complete(ctx, p)
	duration := time.Since(start)

	if err != nil {
		o.logger.Warn("Oracle request failed",
			zap.String("provider", o.provider),
			zap.String("model", o.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.Completion{}, fmt.Errorf("complete: %w", err)
	}

	domain.UsageFromContext(ctx).AddTokens(c.TotalTokens)

	if o.budget != nil {
		o.budget.Record(c)
		if !c.Cached {
			remaining := metrics.OracleBudgetTokensRemaining
			remaining.WithLabelValues(o.provider, "daily").Set(float64(o.budget.RemainingDaily()))
			remaining.WithLabelValues(o.provider, "monthly").Set(float64(o.budget.RemainingMonthly()))
		}
	}

	o.logger.Debug("Oracle request completed",
		zap.String("provider", o.provider),
		zap.String("model", o.model),
		zap.Duration("duration", duration),
		zap.Bool("cached", c.Cached),
		zap.Int("prompt_tokens", c.PromptTokens),
		zap.Int("total_tokens", c.TotalTokens),
	)
	return c, nil
}

// HealthCheck delegates to the inner oracle when it supports health checks.
func (o *InstrumentedOracle) HealthCheck(ctx context.Context) error {
	if hc, ok := o.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
