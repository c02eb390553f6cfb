// Package cache provides a short-TTL feed snapshot cache backed by Redis.
// Feeds are recomputed per query; the cache only smooths bursts of identical
// reads, so a miss or a Redis outage degrades to a direct database read.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"wishing-well/internal/config"
)

// FeedCache caches JSON-encoded feed pages. A nil *FeedCache is valid and
// behaves as a cache that always misses.
type FeedCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a FeedCache from configuration. Returns nil when no Redis
// address is configured, which disables caching.
func New(ctx context.Context, cfg *config.RedisConfig) (*FeedCache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	ttl := cfg.FeedTTL
	if ttl <= 0 {
		ttl = 10 * time.Second
	}

	log.Info().Str("addr", cfg.Addr).Dur("feed_ttl", ttl).Msg("Feed cache enabled")

	return &FeedCache{client: client, ttl: ttl}, nil
}

// Key builds a cache key for one feed page.
func Key(tab string, limit, offset int) string {
	return fmt.Sprintf("feed:%s:%d:%d", tab, limit, offset)
}

// Get loads a cached page into dest. Returns false on a miss or any Redis
// error; errors are logged, not propagated, so reads fall through to the
// database.
func (c *FeedCache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("Feed cache read failed")
		}
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Feed cache entry corrupt")
		return false
	}
	return true
}

// Set stores a page with the configured TTL. Failures are logged and ignored.
func (c *FeedCache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Feed cache encode failed")
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Feed cache write failed")
	}
}

// Close releases the Redis connection.
func (c *FeedCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
