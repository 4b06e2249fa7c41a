package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/kimtaehoon222/crypto-stock-monitor/models"
	"github.com/redis/go-redis/v9"
)

// StatsCache caches computed asset stats in Redis with a short TTL so the
// read path does not recompute the rolling window on every request. A nil
// cache is valid and disables caching.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache connects to Redis and returns a cache. Returns an error
// when the server is unreachable; callers may proceed with a nil cache.
func NewStatsCache(addr string, ttl time.Duration) (*StatsCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &StatsCache{client: client, ttl: ttl}, nil
}

func statsKey(assetID uint) string {
	return fmt.Sprintf("stats:%d", assetID)
}

// Get returns cached stats for the asset, or nil on a miss
func (c *StatsCache) Get(ctx context.Context, assetID uint) *models.AssetStats {
	if c == nil {
		return nil
	}
	data, err := c.client.Get(ctx, statsKey(assetID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Stats cache read error: %v", err)
		}
		return nil
	}

	var stats models.AssetStats
	if err := json.Unmarshal(data, &stats); err != nil {
		log.Printf("Stats cache decode error: %v", err)
		return nil
	}
	return &stats
}

// Set stores stats for the asset with the configured TTL
func (c *StatsCache) Set(ctx context.Context, stats *models.AssetStats) {
	if c == nil {
		return
	}
	data, err := json.Marshal(stats)
	if err != nil {
		log.Printf("Stats cache encode error: %v", err)
		return
	}
	if err := c.client.Set(ctx, statsKey(stats.AssetID), data, c.ttl).Err(); err != nil {
		log.Printf("Stats cache write error: %v", err)
	}
}

// Invalidate drops cached stats for the asset
func (c *StatsCache) Invalidate(ctx context.Context, assetID uint) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, statsKey(assetID)).Err(); err != nil {
		log.Printf("Stats cache invalidate error: %v", err)
	}
}

// Close releases the Redis connection
func (c *StatsCache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
