// Package ratelimit throttles remote portfolio calls with a Redis token bucket.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// KeyFormat is portfolio:ratelimit:<user>:<action>
const KeyFormat = "portfolio:ratelimit:%s:%s"

// Limiter decides whether a user may perform an action now.
type Limiter interface {
	Allow(ctx context.Context, userID, action string) (bool, error)
}

// Bucket is a token bucket whose state lives in a Redis hash so several
// processes acting for the same user share one budget.
type Bucket struct {
	redis    *redis.Client
	capacity int64
	refill   int64
	window   time.Duration
	now      func() time.Time
}

// NewBucket creates a bucket holding capacity tokens that regains refill
// tokens every window. A zero window means one minute.
func NewBucket(redisClient *redis.Client, capacity, refill int64, window time.Duration) *Bucket {
	if window <= 0 {
		window = time.Minute
	}
	return &Bucket{
		redis:    redisClient,
		capacity: capacity,
		refill:   refill,
		window:   window,
		now:      time.Now,
	}
}

// consumeScript refills from elapsed time and takes one token if available.
var consumeScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local window = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local tokens_to_add = math.floor(((now - last_refill) / window) * refill_rate)
	if tokens_to_add > 0 then
		tokens = math.min(capacity, tokens + tokens_to_add)
		last_refill = now
	end

	local allowed = 0
	if tokens > 0 then
		tokens = tokens - 1
		allowed = 1
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_refill', last_refill)
	redis.call('EXPIRE', key, window * 2)
	return allowed
`)

// peekScript reports the refilled token count without consuming.
var peekScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local window = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local tokens_to_add = math.floor(((now - last_refill) / window) * refill_rate)
	if tokens_to_add > 0 then
		tokens = math.min(capacity, tokens + tokens_to_add)
	end

	return tokens
`)

func (b *Bucket) key(userID, action string) string {
	return fmt.Sprintf(KeyFormat, userID, action)
}

func (b *Bucket) args() []interface{} {
	return []interface{}{b.capacity, b.refill, int64(b.window.Seconds()), b.now().Unix()}
}

// Allow consumes one token for userID/action and reports whether one was left.
func (b *Bucket) Allow(ctx context.Context, userID, action string) (bool, error) {
	result, err := consumeScript.Run(ctx, b.redis, []string{b.key(userID, action)}, b.args()...).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}

	allowed, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected result type %T from rate limit script", result)
	}
	return allowed == 1, nil
}

// Remaining returns the tokens left for userID/action
func (b *Bucket) Remaining(ctx context.Context, userID, action string) (int64, error) {
	result, err := peekScript.Run(ctx, b.redis, []string{b.key(userID, action)}, b.args()...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get remaining tokens: %w", err)
	}

	remaining, ok := result.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected result type %T from remaining tokens script", result)
	}
	return remaining, nil
}

// Reset clears the bucket for userID/action
func (b *Bucket) Reset(ctx context.Context, userID, action string) error {
	return b.redis.Del(ctx, b.key(userID, action)).Err()
}
