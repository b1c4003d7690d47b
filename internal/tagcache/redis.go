package tagcache

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "tagcache:"

// RedisCache is a Redis-backed Cache implementation for deployments that run
// more than one server instance. TTL expiry is enforced server-side by Redis,
// so no clock injection is needed; a failed round trip degrades to a miss.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache creates a Redis-backed tag cache
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached tags for the user; any Redis error is a miss
func (c *RedisCache) Get(ctx context.Context, userID string) ([]string, bool) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+userID).Result()
	if err != nil {
		if err != redis.Nil && c.logger != nil {
			c.logger.Warn("tag_cache_read_failed", zap.Error(err))
		}
		return nil, false
	}

	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		// Unreadable entry: drop it so the next write starts clean
		c.client.Del(ctx, redisKeyPrefix+userID)
		return nil, false
	}
	return tags, true
}

// Set stores the user's tags, sorted, with the configured TTL
func (c *RedisCache) Set(ctx context.Context, userID string, tags []string) {
	stored := make([]string, len(tags))
	copy(stored, tags)
	sort.Strings(stored)

	raw, err := json.Marshal(stored)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+userID, raw, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.Warn("tag_cache_write_failed", zap.Error(err))
	}
}

// Invalidate removes the user's entry. A stale entry must not survive a
// mutation, so a failed delete is re-attempted once before giving up; past
// that, the TTL bounds how long the stale list can live.
func (c *RedisCache) Invalidate(ctx context.Context, userID string) {
	key := redisKeyPrefix + userID
	if err := c.client.Del(ctx, key).Err(); err == nil {
		return
	}
	if err := c.client.Del(ctx, key).Err(); err != nil && c.logger != nil {
		c.logger.Error("tag_cache_invalidate_failed", zap.Error(err))
	}
}
