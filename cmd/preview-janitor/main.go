package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/princekumarofficial/portfolio-studio/internal/config"
	"github.com/princekumarofficial/portfolio-studio/internal/preview"
	staging "github.com/princekumarofficial/portfolio-studio/internal/services/media"
)

type Janitor struct {
	sweeper  preview.Sweeper
	interval time.Duration
	ttl      time.Duration
	logger   *slog.Logger
}

func NewJanitor(sweeper preview.Sweeper, interval, ttl time.Duration, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		sweeper:  sweeper,
		interval: interval,
		ttl:      ttl,
		logger:   logger,
	}
}

func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("Preview janitor started",
		"interval", j.interval.String(),
		"ttl", j.ttl.String())

	// Run once immediately on startup
	j.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("Preview janitor shutting down")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) int {
	startTime := time.Now()

	count, err := j.sweeper.Sweep(ctx, j.ttl)
	if err != nil {
		j.logger.Error("Failed to sweep previews",
			"error", err.Error(),
			"removed", count,
			"duration_ms", time.Since(startTime).Milliseconds())
		return count
	}

	duration := time.Since(startTime)
	j.logger.Info("Completed preview sweep",
		"removed", count,
		"duration_ms", duration.Milliseconds())
	return count
}

func newSweeper(ctx context.Context, cfg *config.Config) (preview.Sweeper, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Preview.Backend)) {
	case "minio":
		svc, err := staging.NewService(ctx, cfg.MinIO)
		if err != nil {
			return nil, err
		}
		return preview.NewMinIOProvider(svc, cfg.Preview.TTL), nil
	case "", "local":
		dir := cfg.Preview.Dir
		if dir == "" {
			dir = filepath.Join(os.TempDir(), "portfolio-previews")
		}
		local, err := preview.NewLocalProvider(dir, cfg.Preview.MaxWidth, cfg.Preview.MaxHeight)
		if err != nil {
			return nil, err
		}
		return local, nil
	default:
		return nil, fmt.Errorf("unknown preview backend %q", cfg.Preview.Backend)
	}
}

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper, err := newSweeper(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize preview storage:", err)
	}

	janitor := NewJanitor(sweeper, cfg.Preview.SweepInterval, cfg.Preview.TTL, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		slog.Info("Received shutdown signal")
		cancel()
	}()

	janitor.Start(ctx)

	slog.Info("Preview janitor stopped")
}
