/*
Package cache provides loan.Cache implementations for schedule projections.

PURPOSE:
  Amortization schedules are pure functions of immutable loan terms, which
  makes them ideal cache material: the only invalidation trigger is a loan
  write. Redis backs the production cache; Noop disables caching without
  branching at call sites.

FAILURE POLICY:
  The cache is an optimization, never a dependency. Every Redis error is
  treated as a miss and the caller regenerates the schedule.
*/
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lending:schedule:"

// =============================================================================
// REDIS CACHE
// =============================================================================

// RedisCache stores schedule payloads in Redis with a TTL.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisCache connects to the given address. The connection is verified
// lazily on first use; a down Redis degrades to cache misses.
func NewRedisCache(addr string, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		logger: logger,
	}
}

func (c *RedisCache) GetSchedule(ctx context.Context, loanID uuid.UUID) ([]byte, bool) {
	payload, err := c.client.Get(ctx, keyPrefix+loanID.String()).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("schedule cache read failed", "loan", loanID, "error", err)
		}
		return nil, false
	}
	return payload, true
}

func (c *RedisCache) SetSchedule(ctx context.Context, loanID uuid.UUID, payload []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, keyPrefix+loanID.String(), payload, ttl).Err(); err != nil {
		c.logger.Warn("schedule cache write failed", "loan", loanID, "error", err)
	}
}

func (c *RedisCache) InvalidateSchedule(ctx context.Context, loanID uuid.UUID) {
	if err := c.client.Del(ctx, keyPrefix+loanID.String()).Err(); err != nil {
		c.logger.Warn("schedule cache invalidate failed", "loan", loanID, "error", err)
	}
}

// Close releases the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// =============================================================================
// NOOP CACHE
// =============================================================================

// Noop satisfies loan.Cache without caching anything. Used when no Redis
// address is configured, and in tests.
type Noop struct{}

func (Noop) GetSchedule(context.Context, uuid.UUID) ([]byte, bool)         { return nil, false }
func (Noop) SetSchedule(context.Context, uuid.UUID, []byte, time.Duration) {}
func (Noop) InvalidateSchedule(context.Context, uuid.UUID)                 {}
