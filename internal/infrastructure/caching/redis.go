package caching

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tallmanjamie/civquest-go/internal/domain/visibility"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
	"github.com/tallmanjamie/civquest-go/pkg/config"
)

// RedisSharingCache shares the sharing cache across instances. Cache
// errors degrade to misses; the prober then just asks the portal.
type RedisSharingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.ChanneledLogger
}

// NewRedisSharingCache connects to redis and returns the cache, or an
// error when the server is unreachable.
func NewRedisSharingCache(addr, password string, db int, ttl time.Duration, logger *logging.ChanneledLogger) (*RedisSharingCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisSharingCache{client: client, ttl: ttl, logger: logger}, nil
}

func redisKey(tenantID, itemID string) string {
	return "civquest:sharing:" + tenantID + ":" + itemID
}

// Get returns the cached sharing result for an item, if present.
func (c *RedisSharingCache) Get(tenantID, itemID string) (visibility.SharingResult, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	raw, err := c.client.Get(ctx, redisKey(tenantID, itemID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Cache().Warn("Redis get failed", "tenantId", tenantID, "itemId", itemID, "error", err)
		}
		return visibility.SharingResult{}, false
	}

	var result visibility.SharingResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return visibility.SharingResult{}, false
	}
	return result, true
}

// Set stores a sharing result for an item with the configured TTL.
func (c *RedisSharingCache) Set(tenantID, itemID string, result visibility.SharingResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := c.client.Set(ctx, redisKey(tenantID, itemID), raw, c.ttl).Err(); err != nil {
		c.logger.Cache().Warn("Redis set failed", "tenantId", tenantID, "itemId", itemID, "error", err)
	}
}

// Close releases the redis connection.
func (c *RedisSharingCache) Close() error {
	return c.client.Close()
}

// NewSharingCacheFromEnv returns the redis-backed cache when REDIS_ADDR
// is configured and reachable, falling back to the in-process cache.
func NewSharingCacheFromEnv(logger *logging.ChanneledLogger) SharingCache {
	if config.RedisAddr != "" {
		cache, err := NewRedisSharingCache(config.RedisAddr, config.RedisPassword, config.RedisDB, config.SharingCacheTTL, logger)
		if err == nil {
			logger.Cache().Info("Using redis sharing cache", "addr", config.RedisAddr)
			return cache
		}
		logger.Cache().Warn("Redis unavailable, falling back to memory sharing cache",
			"addr", config.RedisAddr, "error", err)
	}
	return NewMemorySharingCache(config.SharingCacheTTL)
}
