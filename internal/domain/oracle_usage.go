package domain

import (
	"context"
	"sync"
)

type oracleUsageKey struct{}

// OracleUsage collects token usage for a single HTTP request.
// The handler puts a pointer into the context before calling the service;
// the oracle decorator writes after each call; the handler reads it for response headers.
// Bulk scoring writes from several goroutines, hence the mutex.
type OracleUsage struct {
	mu          sync.Mutex
	totalTokens int
	calls       int
}

// NewContextWithUsage returns a context with an oracle usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *OracleUsage) {
	u := &OracleUsage{}
	return context.WithValue(ctx, oracleUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *OracleUsage {
	u, _ := ctx.Value(oracleUsageKey{}).(*OracleUsage)
	return u
}

// AddTokens records one oracle call and the tokens it consumed.
func (u *OracleUsage) AddTokens(n int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.totalTokens += n
	u.calls++
	u.mu.Unlock()
}

// TotalTokens returns the tokens consumed so far.
func (u *OracleUsage) TotalTokens() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.totalTokens
}

// Used reports whether the oracle was called, even on a cache hit with 0 tokens.
func (u *OracleUsage) Used() bool {
	if u == nil {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls > 0
}
