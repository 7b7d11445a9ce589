// Package cache keeps serialized clause listings in Redis so repeated reads
// of a processed document skip the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/clausecop/internal/document"
	"github.com/Adithya-Monish-Kumar-K/clausecop/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/clausecop/pkg/redis"
)

const keyPrefix = "clauses:"

// Backend is the subset of the Redis client the cache uses.
type Backend interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type ClauseCache struct {
	backend Backend
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(backend Backend, ttl time.Duration, m *metrics.Metrics) *ClauseCache {
	return &ClauseCache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "clause-cache"),
	}
}

func (c *ClauseCache) get(ctx context.Context, documentID int64) ([]document.Clause, bool) {
	key := cacheKey(documentID)
	data, err := c.backend.GetBytes(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.metrics.CacheMiss()
		return nil, false
	}
	var clauses []document.Clause
	if err := json.Unmarshal(data, &clauses); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.metrics.CacheMiss()
		return nil, false
	}
	c.metrics.CacheHit()
	return clauses, true
}

func (c *ClauseCache) set(ctx context.Context, documentID int64, clauses []document.Clause) {
	key := cacheKey(documentID)
	data, err := json.Marshal(clauses)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrLoad returns the cached clause listing for the document, calling load
// on a miss. Concurrent misses for the same document share one load.
func (c *ClauseCache) GetOrLoad(
	ctx context.Context,
	documentID int64,
	load func(ctx context.Context) ([]document.Clause, error),
) ([]document.Clause, error) {
	if clauses, ok := c.get(ctx, documentID); ok {
		return clauses, nil
	}
	val, err, _ := c.group.Do(cacheKey(documentID), func() (any, error) {
		clauses, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.set(ctx, documentID, clauses)
		return clauses, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]document.Clause), nil
}

// Invalidate drops the cached listing for the document.
func (c *ClauseCache) Invalidate(ctx context.Context, documentID int64) error {
	if err := c.backend.Del(ctx, cacheKey(documentID)); err != nil {
		return fmt.Errorf("invalidating clauses for document %d: %w", documentID, err)
	}
	return nil
}

func cacheKey(documentID int64) string {
	return keyPrefix + strconv.FormatInt(documentID, 10)
}
