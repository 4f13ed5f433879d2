// Package cache provides a redis-backed, TTL-bounded memoization of
// assembled business contexts. It is a pure optimization: every failure
// degrades to a cache miss and the caller assembles directly. Staleness is
// bounded by the configured TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/opsledger/bizcontext/internal/models"
	"go.uber.org/zap"
)

const keyPrefix = "bizcontext:context:"

// ContextCache memoizes BusinessContext snapshots per business ID
type ContextCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a context cache from a redis URL
func New(redisURL string, ttl time.Duration, logger *zap.Logger) (*ContextCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return NewWithClient(redis.NewClient(opts), ttl, logger), nil
}

// NewWithClient creates a context cache around an existing redis client
func NewWithClient(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *ContextCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &ContextCache{rdb: rdb, ttl: ttl, logger: logger}
}

// Get returns a cached context for the business, if present and fresh
func (c *ContextCache) Get(ctx context.Context, businessID string) (*models.BusinessContext, bool) {
	payload, err := c.rdb.Get(ctx, keyPrefix+businessID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("context_cache_get_failed",
				zap.String("business_id", businessID),
				zap.Error(err),
			)
		}
		return nil, false
	}

	var bctx models.BusinessContext
	if err := json.Unmarshal(payload, &bctx); err != nil {
		c.logger.Warn("context_cache_decode_failed",
			zap.String("business_id", businessID),
			zap.Error(err),
		)
		return nil, false
	}
	return &bctx, true
}

// Set stores a context for the business with the configured TTL. Best-effort.
func (c *ContextCache) Set(ctx context.Context, businessID string, bctx *models.BusinessContext) {
	payload, err := json.Marshal(bctx)
	if err != nil {
		c.logger.Warn("context_cache_encode_failed",
			zap.String("business_id", businessID),
			zap.Error(err),
		)
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+businessID, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("context_cache_set_failed",
			zap.String("business_id", businessID),
			zap.Error(err),
		)
	}
}

// Close releases the underlying redis connection
func (c *ContextCache) Close() error {
	return c.rdb.Close()
}

// Ping verifies redis connectivity
func (c *ContextCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
