// Package cache memoizes recommendation results in Redis. Keys embed the
// snapshot key, so entries computed against an old model are never served
// after a rebuild; they simply expire.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/title-recommender/internal/recommender/query"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "rec:"

// ErrMiss is returned by a Backend when the key does not exist.
var ErrMiss = errors.New("cache miss")

// Backend is the key-value store behind the cache.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

// Entry is a cached recommendation answer.
type Entry struct {
	Found   bool                   `json:"found"`
	Results []query.Recommendation `json:"results"`
}

type redisBackend struct {
	client *pkgredis.Client
}

// NewRedisBackend adapts a Redis client to Backend.
func NewRedisBackend(client *pkgredis.Client) Backend {
	return redisBackend{client: client}
}

func (r redisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key)
	if pkgredis.IsNilError(err) {
		return nil, ErrMiss
	}
	return data, err
}

func (r redisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl)
}

func (r redisBackend) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	return r.client.DeleteByPrefix(ctx, prefix)
}

// ResultCache caches Entries by (snapshot, title, k). Backend calls go
// through a circuit breaker; while it is open every lookup is a miss and
// results are computed directly.
type ResultCache struct {
	backend Backend
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a ResultCache. breaker and m may be nil.
func New(backend Backend, ttl time.Duration, breaker *resilience.CircuitBreaker, m *metrics.Metrics) *ResultCache {
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("result-cache", resilience.CircuitBreakerConfig{})
	}
	return &ResultCache{
		backend: backend,
		ttl:     ttl,
		breaker: breaker,
		metrics: m,
		logger:  slog.Default().With("component", "result-cache"),
	}
}

// Get returns the cached entry for the key triple.
func (c *ResultCache) Get(ctx context.Context, snapshotKey, title string, k int) (*Entry, bool) {
	key := buildKey(snapshotKey, title, k)
	var data []byte
	err := c.breaker.ExecuteIgnoring(func() error {
		var err error
		data, err = c.backend.Get(ctx, key)
		return err
	}, isMiss)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn("cache get failed", "key", key, "error", err)
		}
		c.recordMiss()
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.recordMiss()
		return nil, false
	}
	c.recordHit()
	return &entry, true
}

// Set stores entry; failures are logged and otherwise ignored.
func (c *ResultCache) Set(ctx context.Context, snapshotKey, title string, k int, entry *Entry) {
	key := buildKey(snapshotKey, title, k)
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.backend.Set(ctx, key, data, c.ttl)
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached entry or computes, stores and returns it.
// Concurrent misses for the same key share one computation. The bool
// reports a cache hit.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	snapshotKey, title string,
	k int,
	computeFn func() (*Entry, error),
) (*Entry, bool, error) {
	if entry, ok := c.Get(ctx, snapshotKey, title, k); ok {
		return entry, true, nil
	}
	val, err, _ := c.group.Do(buildKey(snapshotKey, title, k), func() (any, error) {
		entry, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, snapshotKey, title, k, entry)
		return entry, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Entry), false, nil
}

// Invalidate deletes every cached result.
func (c *ResultCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.DeleteByPrefix(ctx, keyPrefix)
	if err != nil {
		return deleted, fmt.Errorf("invalidating result cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

// Stats returns hit and miss counts since start.
func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ResultCache) recordHit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *ResultCache) recordMiss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func isMiss(err error) bool {
	return errors.Is(err, ErrMiss)
}

func buildKey(snapshotKey, title string, k int) string {
	raw := fmt.Sprintf("%s\x00%s\x00k=%d", snapshotKey, title, k)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
