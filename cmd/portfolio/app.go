package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/princekumarofficial/portfolio-studio/internal/cache"
	"github.com/princekumarofficial/portfolio-studio/internal/config"
	"github.com/princekumarofficial/portfolio-studio/internal/preview"
	"github.com/princekumarofficial/portfolio-studio/internal/probe"
	staging "github.com/princekumarofficial/portfolio-studio/internal/services/media"
	remote "github.com/princekumarofficial/portfolio-studio/internal/services/portfolio"
	"github.com/princekumarofficial/portfolio-studio/internal/storage"
	"github.com/princekumarofficial/portfolio-studio/internal/validation"
)

// app holds the collaborators shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	redis  *redis.Client
	cache  *cache.ProbeCache

	policy  validation.Policy
	prober  *probe.Prober
	remote  storage.Portfolio
	preview preview.Provider
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	opts.Level = slog.LevelDebug
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// connectRedis returns nil when Redis is not configured or unreachable.
func connectRedis(ctx context.Context, cfg config.Redis, logger *slog.Logger) *redis.Client {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, running without cache and rate limits",
			"addr", cfg.Addr,
			"error", err.Error())
		client.Close()
		return nil
	}

	logger.Info("Connected to Redis", "addr", cfg.Addr)
	return client
}

func newPreviewProvider(ctx context.Context, cfg *config.Config) (preview.Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Preview.Backend)) {
	case "minio":
		svc, err := staging.NewService(ctx, cfg.MinIO)
		if err != nil {
			return nil, fmt.Errorf("preview storage: %w", err)
		}
		return preview.NewMinIOProvider(svc, cfg.Preview.TTL), nil
	case "", "local":
		dir := cfg.Preview.Dir
		if dir == "" {
			dir = filepath.Join(os.TempDir(), "portfolio-previews")
		}
		local, err := preview.NewLocalProvider(dir, cfg.Preview.MaxWidth, cfg.Preview.MaxHeight)
		if err != nil {
			return nil, fmt.Errorf("preview dir: %w", err)
		}
		return local, nil
	default:
		return nil, fmt.Errorf("unknown preview backend %q", cfg.Preview.Backend)
	}
}

func policyFromConfig(cfg *config.Config) validation.Policy {
	return validation.NewPolicy(cfg.Intake.MaxFileSize, cfg.Intake.DeniedTypes)
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	a := &app{
		cfg:    cfg,
		logger: logger,
		policy: policyFromConfig(cfg),
	}

	a.redis = connectRedis(ctx, cfg.Redis, logger)

	proberOpts := []probe.Option{probe.WithLogger(logger)}
	if a.redis != nil {
		a.cache = cache.NewProbeCache(a.redis, cfg.Probe.CacheTTL)
		proberOpts = append(proberOpts, probe.WithCache(a.cache))
	}
	a.prober = probe.NewProber(cfg.Probe.FFProbeBinary, cfg.Probe.Timeout, proberOpts...)

	client := remote.NewClient(cfg.Remote.BaseURL, &http.Client{Timeout: cfg.Remote.Timeout}, logger)
	a.remote = client
	if a.redis != nil && cfg.RateLimit.Enabled {
		limiters := remote.BucketLimiters(a.redis, cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerMinute)
		a.remote = remote.NewThrottled(client, cfg.UserID, limiters, logger)
	}

	return a, nil
}

// withPreview builds the preview provider on demand; only the shell needs one.
func (a *app) withPreview(ctx context.Context) (preview.Provider, error) {
	if a.preview != nil {
		return a.preview, nil
	}
	p, err := newPreviewProvider(ctx, a.cfg)
	if err != nil {
		return nil, err
	}
	a.preview = p
	return p, nil
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
}

func (c *commandContext) withApp(ctx context.Context, fn func(*app) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
