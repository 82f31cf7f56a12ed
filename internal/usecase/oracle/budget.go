package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/incidex/internal/domain"
	domusage "github.com/kailas-cloud/incidex/internal/domain/usage"
)

// BudgetAction defines behavior when the token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetStore is the persistence interface for budget counters.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// counter kinds persisted per window
const (
	kindTokens    = ""
	kindRequests  = ":requests"
	kindCacheHits = ":cache_hits"
)

type window struct {
	tokens, requests, cacheHits int64
}

func (w *window) add(c domain.Completion) {
	if c.Cached {
		w.cacheHits++
		return
	}
	w.requests++
	w.tokens += int64(c.TotalTokens)
}

// BudgetTracker keeps daily and monthly oracle usage in memory, with optional
// write-behind persistence. Check never leaves the process.
type BudgetTracker struct {
	mu             sync.Mutex
	daily          window
	monthly        window
	dailyLimit     int64
	monthlyLimit   int64
	action         BudgetAction
	provider       string
	lastDayReset   time.Time
	lastMonthReset time.Time
	now            func() time.Time
	store          BudgetStore
	logger         *zap.Logger
}

// NewBudgetTracker creates a budget tracker. A zero limit means unlimited.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	b := &BudgetTracker{
		dailyLimit:   dailyLimit,
		monthlyLimit: monthlyLimit,
		action:       action,
		provider:     provider,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
	now := b.now()
	b.lastDayReset = truncateToDay(now)
	b.lastMonthReset = truncateToMonth(now)
	return b
}

// WithStore attaches a persistence store and loads current counters.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.store = store
	b.loadFromStore(ctx)
	return b
}

func (b *BudgetTracker) loadFromStore(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	load := func(key string, dst *int64) {
		val, err := b.store.Get(ctx, key)
		if err != nil {
			b.logger.Warn("Failed to load budget counter from store", zap.String("key", key), zap.Error(err))
			return
		}
		*dst = val
	}
	load(b.dailyKey(now)+kindTokens, &b.daily.tokens)
	load(b.dailyKey(now)+kindRequests, &b.daily.requests)
	load(b.dailyKey(now)+kindCacheHits, &b.daily.cacheHits)
	load(b.monthlyKey(now)+kindTokens, &b.monthly.tokens)
	load(b.monthlyKey(now)+kindRequests, &b.monthly.requests)
	load(b.monthlyKey(now)+kindCacheHits, &b.monthly.cacheHits)

	b.logger.Info("Budget loaded from store",
		zap.String("provider", b.provider),
		zap.Int64("daily_tokens", b.daily.tokens),
		zap.Int64("monthly_tokens", b.monthly.tokens),
	)
}

func (b *BudgetTracker) dailyKey(t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:daily:%s", domain.KeyPrefix, b.provider, t.Format("2006-01-02"))
}

func (b *BudgetTracker) monthlyKey(t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:monthly:%s", domain.KeyPrefix, b.provider, t.Format("2006-01"))
}

// Check verifies the budget allows a new request.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetIfNeeded()

	dailyExceeded := b.dailyLimit > 0 && b.daily.tokens >= b.dailyLimit
	monthlyExceeded := b.monthlyLimit > 0 && b.monthly.tokens >= b.monthlyLimit
	if !dailyExceeded && !monthlyExceeded {
		return nil
	}

	if b.action == BudgetActionReject {
		return domain.ErrOracleQuotaExceeded
	}

	b.logger.Warn("Oracle token budget exceeded",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.daily.tokens),
		zap.Int64("daily_limit", b.dailyLimit),
		zap.Int64("monthly_used", b.monthly.tokens),
		zap.Int64("monthly_limit", b.monthlyLimit),
	)
	return nil
}

// Record registers one completion. Cache hits count as hits and cost no tokens.
func (b *BudgetTracker) Record(c domain.Completion) {
	b.mu.Lock()
	b.resetIfNeeded()
	b.daily.add(c)
	b.monthly.add(c)
	store := b.store
	now := b.now()
	dailyKey, monthlyKey := b.dailyKey(now), b.monthlyKey(now)
	b.mu.Unlock()

	if store == nil {
		return
	}

	// Write-behind with its own deadline so a slow store never blocks the caller's budget.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	incr := func(key string, val int64) {
		if val == 0 {
			return
		}
		if err := store.IncrBy(ctx, key, val); err != nil {
			b.logger.Warn("Failed to persist budget counter", zap.String("key", key), zap.Error(err))
		}
	}
	if c.Cached {
		incr(dailyKey+kindCacheHits, 1)
		incr(monthlyKey+kindCacheHits, 1)
		return
	}
	incr(dailyKey+kindRequests, 1)
	incr(monthlyKey+kindRequests, 1)
	incr(dailyKey+kindTokens, int64(c.TotalTokens))
	incr(monthlyKey+kindTokens, int64(c.TotalTokens))
}

// RemainingDaily returns tokens left today (-1 if unlimited).
func (b *BudgetTracker) RemainingDaily() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNeeded()
	return remaining(b.dailyLimit, b.daily.tokens)
}

// RemainingMonthly returns tokens left this month (-1 if unlimited).
func (b *BudgetTracker) RemainingMonthly() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNeeded()
	return remaining(b.monthlyLimit, b.monthly.tokens)
}

// Daily returns today's counters.
func (b *BudgetTracker) Daily() domusage.Counters {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNeeded()
	return counters(b.dailyLimit, b.daily)
}

// Monthly returns this month's counters.
func (b *BudgetTracker) Monthly() domusage.Counters {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNeeded()
	return counters(b.monthlyLimit, b.monthly)
}

func counters(limit int64, w window) domusage.Counters {
	return domusage.Counters{Limit: limit, Tokens: w.tokens, Requests: w.requests, CacheHits: w.cacheHits}
}

func remaining(limit, used int64) int64 {
	if limit == 0 {
		return -1
	}
	return max(limit-used, 0)
}

// resetIfNeeded zeroes counters when the day or month rolls over.
func (b *BudgetTracker) resetIfNeeded() {
	now := b.now()
	today := truncateToDay(now)
	thisMonth := truncateToMonth(now)

	if today.After(b.lastDayReset) {
		b.daily = window{}
		b.lastDayReset = today
	}
	if thisMonth.After(b.lastMonthReset) {
		b.monthly = window{}
		b.lastMonthReset = thisMonth
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
