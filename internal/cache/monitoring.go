package cache

import (
	"context"
)

// CacheStats represents probe cache statistics
type CacheStats struct {
	RedisConnected bool     `json:"redis_connected"`
	CacheKeys      []string `json:"cache_keys_sample"`
	KeyCount       int      `json:"total_keys"`
}

// Stats reports connectivity and how many probe entries are cached
func (c *ProbeCache) Stats(ctx context.Context) CacheStats {
	stats := CacheStats{RedisConnected: true}

	if _, err := c.redis.Ping(ctx).Result(); err != nil {
		stats.RedisConnected = false
		return stats
	}

	var cursor uint64
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, ProbeKeyPrefix+"*", 100).Result()
		if err != nil {
			break
		}
		stats.KeyCount += len(keys)
		for _, key := range keys {
			if len(stats.CacheKeys) < 10 {
				stats.CacheKeys = append(stats.CacheKeys, key)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	return stats
}
