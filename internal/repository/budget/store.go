// Package budget persists oracle usage counters in Redis/Valkey.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/incidex/internal/db"
)

// DefaultGrace keeps a counter readable for this long after its window closes,
// so late reports for yesterday or last month still resolve.
const DefaultGrace = 24 * time.Hour

// fallbackTTL applies to keys whose window cannot be parsed.
const fallbackTTL = 62 * 24 * time.Hour

// store is the consumer interface for budget counters (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store implements the oracle BudgetStore. Counter keys name their window,
// e.g. incidex:budget:openai:daily:2026-10-16:requests; each key expires
// grace after the end of that window.
type Store struct {
	store store
	grace time.Duration
	now   func() time.Time
}

// New creates a budget store. grace <= 0 uses DefaultGrace.
func New(s store, grace time.Duration) *Store {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Store{
		store: s,
		grace: grace,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// IncrBy adds val to a counter. The expiry is set once, on first write.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if err := s.store.IncrBy(ctx, key, val); err != nil {
		return fmt.Errorf("incr budget counter %s: %w", key, err)
	}
	if err := s.store.Expire(ctx, key, s.ttl(key), true); err != nil {
		return fmt.Errorf("expire budget counter %s: %w", key, err)
	}
	return nil
}

// Get reads a counter. A missing key reads as zero.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	raw, err := s.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("get budget counter %s: %w", key, err)
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget counter %s holds %q: %w", key, raw, err)
	}
	return n, nil
}

// ttl returns the time left until the key's window closes, plus grace.
func (s *Store) ttl(key string) time.Duration {
	end, ok := windowEnd(key)
	if !ok {
		return fallbackTTL
	}
	ttl := end.Add(s.grace).Sub(s.now())
	if ttl < s.grace {
		ttl = s.grace
	}
	return ttl
}

// windowEnd parses the ":daily:<date>" or ":monthly:<month>" segment of a key.
func windowEnd(key string) (time.Time, bool) {
	parts := strings.Split(key, ":")
	for i := 0; i+1 < len(parts); i++ {
		switch parts[i] {
		case "daily":
			day, err := time.Parse("2006-01-02", parts[i+1])
			if err != nil {
				return time.Time{}, false
			}
			return day.AddDate(0, 0, 1), true
		case "monthly":
			month, err := time.Parse("2006-01", parts[i+1])
			if err != nil {
				return time.Time{}, false
			}
			return month.AddDate(0, 1, 0), true
		}
	}
	return time.Time{}, false
}
