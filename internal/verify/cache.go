package verify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"landcert/internal/certificate/models"
)

// CacheTTL bounds retention of cached verification records. Short on
// purpose: revocations must become visible quickly.
const CacheTTL = 5 * time.Minute

const cacheKeyPrefix = "verify:certificate:"

// RedisCache is the read-through cache backing public verification. Cache
// failures are invisible to callers; a miss simply falls through to the
// registry.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisCache(client *redis.Client, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, number string) (models.Record, bool) {
	payload, err := c.client.Get(ctx, cacheKeyPrefix+number).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("verification cache read failed", zap.Error(err))
		}
		return models.Record{}, false
	}
	var record models.Record
	if err := json.Unmarshal(payload, &record); err != nil {
		c.logger.Warn("verification cache entry corrupt", zap.Error(err))
		return models.Record{}, false
	}
	return record, true
}

func (c *RedisCache) Set(ctx context.Context, number string, record models.Record) {
	payload, err := json.Marshal(record)
	if err != nil {
		c.logger.Warn("verification cache marshal failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+number, payload, CacheTTL).Err(); err != nil {
		c.logger.Warn("verification cache write failed", zap.Error(err))
	}
}

// Invalidate drops a cached record after a status change so revocations do
// not linger for the TTL.
func (c *RedisCache) Invalidate(ctx context.Context, number string) {
	if err := c.client.Del(ctx, cacheKeyPrefix+number).Err(); err != nil {
		c.logger.Warn("verification cache invalidate failed", zap.Error(err))
	}
}
