// Package oraclecache memoizes oracle completions in a key-value store.
package oraclecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/incidex/internal/db"
	"github.com/kailas-cloud/incidex/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "oracle_cache:"

// store is the consumer interface for the completion cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type entry struct {
	Text string `json:"text"`
}

// CachedOracle caches completions keyed by prompt fingerprint.
type CachedOracle struct {
	inner      domain.Oracle
	store      store
	namespace  string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// namespace separates entries produced by different models.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner domain.Oracle,
	s store,
	namespace string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedOracle {
	return &CachedOracle{
		inner:      inner,
		store:      s,
		namespace:  namespace,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Complete returns a cached completion or calls the inner oracle.
// Prompts without a fingerprint bypass the cache.
// Cache hit: TotalTokens = 0 and Cached = true.
func (c *CachedOracle) Complete(ctx context.Context, p domain.Prompt) (domain.Completion, error) {
	if p.Fingerprint == "" {
		res, err := c.inner.Complete(ctx, p)
		if err != nil {
			return domain.Completion{}, fmt.Errorf("complete: %w", err)
		}
		return res, nil
	}

	key := c.cacheKey(p.Fingerprint)

	if text, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		return domain.Completion{Text: text, Cached: true}, nil
	}

	c.incCache("miss")

	res, err := c.inner.Complete(ctx, p)
	if err != nil {
		return domain.Completion{}, fmt.Errorf("complete: %w", err)
	}

	if res.Text != "" {
		c.putToCache(ctx, key, res.Text)
	}
	return res, nil
}

func (c *CachedOracle) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedOracle) cacheKey(fingerprint string) string {
	h := sha256.Sum256([]byte(c.namespace + "\x00" + fingerprint))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedOracle) getFromCache(ctx context.Context, key string) (string, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached completion", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	if len(data) == 0 {
		return "", false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Text == "" {
		c.logger.Warn("Failed to parse cached completion", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return e.Text, true
}

func (c *CachedOracle) putToCache(ctx context.Context, key, text string) {
	data, err := json.Marshal(entry{Text: text})
	if err != nil {
		c.logger.Warn("Failed to encode completion", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache completion", zap.String("key", key), zap.Error(err))
	}
}

// HealthCheck delegates to the inner oracle when it supports health checks.
func (c *CachedOracle) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
