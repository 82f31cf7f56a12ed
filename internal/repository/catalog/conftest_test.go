package catalog

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/incidex/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	jsonGetFn      func(ctx context.Context, key string, paths ...string) ([]byte, error)
	jsonMGetFn     func(ctx context.Context, keys []string, path string) ([][]byte, error)
	jsonSetMultiFn func(ctx context.Context, items []db.JSONSetItem) error
	scanPageFn     func(ctx context.Context, pattern string, cursor uint64, count int64) ([]string, uint64, error)
}

func (m *mockStore) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	if m.jsonGetFn != nil {
		return m.jsonGetFn(ctx, key, paths...)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) JSONMGet(ctx context.Context, keys []string, path string) ([][]byte, error) {
	if m.jsonMGetFn != nil {
		return m.jsonMGetFn(ctx, keys, path)
	}
	return make([][]byte, len(keys)), nil
}

func (m *mockStore) JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error {
	if m.jsonSetMultiFn != nil {
		return m.jsonSetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) ScanPage(
	ctx context.Context, pattern string, cursor uint64, count int64,
) ([]string, uint64, error) {
	if m.scanPageFn != nil {
		return m.scanPageFn(ctx, pattern, cursor, count)
	}
	return nil, 0, nil
}

func newTestRepo(t *testing.T, pageSize int) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, pageSize, zap.NewNop()), ms
}
