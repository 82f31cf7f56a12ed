package oraclecache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/incidex/internal/db"
	"github.com/kailas-cloud/incidex/internal/domain"
)

type mockOracle struct {
	result domain.Completion
	err    error
	calls  int
}

func (m *mockOracle) Complete(_ context.Context, _ domain.Prompt) (domain.Completion, error) {
	m.calls++
	return m.result, m.err
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestCachedOracle(t *testing.T, inner *mockOracle) (*CachedOracle, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	co := New(inner, ms, "gpt-4o-mini", time.Hour, nil, zap.NewNop())
	return co, ms
}
