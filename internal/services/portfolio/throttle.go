package portfolio

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-redis/redis/v8"

	"github.com/princekumarofficial/portfolio-studio/internal/files"
	"github.com/princekumarofficial/portfolio-studio/internal/ratelimit"
	"github.com/princekumarofficial/portfolio-studio/internal/storage"
	"github.com/princekumarofficial/portfolio-studio/internal/types/media"
)

var ErrRateLimited = errors.New("rate limit exceeded, try again shortly")

// Throttled puts a per-user token bucket in front of each remote operation.
type Throttled struct {
	next     storage.Portfolio
	userID   string
	limiters map[string]ratelimit.Limiter
	logger   *slog.Logger
}

var _ storage.Portfolio = (*Throttled)(nil)

// NewThrottled wraps next. Operations missing from limiters are not throttled.
// userID keys the create bucket, which carries no user of its own.
func NewThrottled(next storage.Portfolio, userID string, limiters map[string]ratelimit.Limiter, logger *slog.Logger) *Throttled {
	if logger == nil {
		logger = slog.Default()
	}
	return &Throttled{
		next:     next,
		userID:   userID,
		limiters: limiters,
		logger:   logger,
	}
}

// BucketLimiters gives every operation its own bucket with the same shape.
func BucketLimiters(redisClient *redis.Client, capacity, refillPerMinute int64) map[string]ratelimit.Limiter {
	limiters := make(map[string]ratelimit.Limiter)
	for _, op := range []string{OpCreate, OpSave, OpLoad, OpDelete} {
		limiters[op] = ratelimit.NewBucket(redisClient, capacity, refillPerMinute, 0)
	}
	return limiters
}

// allow fails open: a broken limiter must not block the user's work.
func (t *Throttled) allow(ctx context.Context, userID, op string) error {
	limiter, ok := t.limiters[op]
	if !ok || limiter == nil {
		return nil
	}

	allowed, err := limiter.Allow(ctx, userID, op)
	if err != nil {
		t.logger.Warn("rate limit check failed", "op", op, "user_id", userID, "error", err.Error())
		return nil
	}
	if !allowed {
		t.logger.Info("rate limited", "op", op, "user_id", userID)
		return &TransportError{Op: op, Err: ErrRateLimited}
	}
	return nil
}

func (t *Throttled) Create(ctx context.Context, f *files.File, req media.UploadRequest) (media.MediaItem, error) {
	if err := t.allow(ctx, t.userID, OpCreate); err != nil {
		return media.MediaItem{}, err
	}
	return t.next.Create(ctx, f, req)
}

func (t *Throttled) Save(ctx context.Context, userID string, items []media.MediaItem) error {
	if err := t.allow(ctx, userID, OpSave); err != nil {
		return err
	}
	return t.next.Save(ctx, userID, items)
}

func (t *Throttled) Load(ctx context.Context, userID string) ([]media.MediaItem, error) {
	if err := t.allow(ctx, userID, OpLoad); err != nil {
		return nil, err
	}
	return t.next.Load(ctx, userID)
}

func (t *Throttled) Delete(ctx context.Context, userID, itemID string) error {
	if err := t.allow(ctx, userID, OpDelete); err != nil {
		return err
	}
	return t.next.Delete(ctx, userID, itemID)
}
