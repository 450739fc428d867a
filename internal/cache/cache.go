package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ProbeCache keeps derived media metadata in Redis so re-selecting the same
// file skips decoding and ffprobe.
type ProbeCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewProbeCache creates a new probe cache
func NewProbeCache(redisClient *redis.Client, ttl time.Duration) *ProbeCache {
	if ttl <= 0 {
		ttl = ProbeCacheDuration
	}
	return &ProbeCache{
		redis: redisClient,
		ttl:   ttl,
	}
}

// Cache key patterns
const (
	ProbeKeyPrefix = "portfolio:probe:"
	ProbeKey       = ProbeKeyPrefix + "%s" // portfolio:probe:fingerprint
)

// ProbeCacheDuration is used when no TTL is configured
const ProbeCacheDuration = 24 * time.Hour

// Fingerprint identifies one version of a file on disk.
func Fingerprint(path string, size int64, modTime time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", path, size, modTime.UnixNano())))
	return hex.EncodeToString(sum[:])
}

// Get decodes the cached entry for fingerprint into dst. It reports false on a miss.
func (c *ProbeCache) Get(ctx context.Context, fingerprint string, dst interface{}) (bool, error) {
	key := fmt.Sprintf(ProbeKey, fingerprint)

	cached, err := c.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probe cache get: %w", err)
	}

	if err := json.Unmarshal([]byte(cached), dst); err != nil {
		// A corrupt entry is a miss; drop it so the next probe rewrites it.
		c.redis.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

// Set stores v for fingerprint
func (c *ProbeCache) Set(ctx context.Context, fingerprint string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("probe cache encode: %w", err)
	}
	key := fmt.Sprintf(ProbeKey, fingerprint)
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("probe cache set: %w", err)
	}
	return nil
}

// Invalidate drops the entry for fingerprint
func (c *ProbeCache) Invalidate(ctx context.Context, fingerprint string) error {
	return c.redis.Del(ctx, fmt.Sprintf(ProbeKey, fingerprint)).Err()
}
