package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env       string    `yaml:"env" env:"PORTFOLIO_ENV" env-default:"production"`
	UserID    string    `yaml:"user_id" env:"PORTFOLIO_USER_ID" env-default:"test-user"`
	Remote    Remote    `yaml:"remote"`
	Intake    Intake    `yaml:"intake"`
	Preview   Preview   `yaml:"preview"`
	MinIO     MinIO     `yaml:"minio"`
	Redis     Redis     `yaml:"redis"`
	RateLimit RateLimit `yaml:"rate_limit"`
	Probe     Probe     `yaml:"probe"`
	Notify    Notify    `yaml:"notify"`
}

type Remote struct {
	BaseURL string        `yaml:"base_url" env:"PORTFOLIO_REMOTE_URL" env-default:"http://localhost:8000"`
	Timeout time.Duration `yaml:"timeout" env:"PORTFOLIO_REMOTE_TIMEOUT" env-default:"30s"`
}

type Intake struct {
	MaxFileSize int64    `yaml:"max_file_size" env:"PORTFOLIO_MAX_FILE_SIZE" env-default:"10485760"`
	DeniedTypes []string `yaml:"denied_types" env:"PORTFOLIO_DENIED_TYPES" env-default:"quicktime"`
}

type Preview struct {
	Backend       string        `yaml:"backend" env:"PORTFOLIO_PREVIEW_BACKEND" env-default:"local"`
	Dir           string        `yaml:"dir" env:"PORTFOLIO_PREVIEW_DIR"`
	MaxWidth      int           `yaml:"max_width" env-default:"640"`
	MaxHeight     int           `yaml:"max_height" env-default:"640"`
	TTL           time.Duration `yaml:"ttl" env:"PORTFOLIO_PREVIEW_TTL" env-default:"1h"`
	SweepInterval time.Duration `yaml:"sweep_interval" env-default:"5m"`
}

type MinIO struct {
	Endpoint        string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"MINIO_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"MINIO_SECRET_ACCESS_KEY"`
	UseSSL          bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
	BucketName      string `yaml:"bucket_name" env:"MINIO_BUCKET" env-default:"portfolio-previews"`
}

// Redis is optional; an empty Addr disables rate limiting and the probe cache.
type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type RateLimit struct {
	Enabled         bool  `yaml:"enabled" env:"PORTFOLIO_RATE_LIMIT" env-default:"true"`
	Capacity        int64 `yaml:"capacity" env-default:"30"`
	RefillPerMinute int64 `yaml:"refill_per_minute" env-default:"30"`
}

type Probe struct {
	FFProbeBinary string        `yaml:"ffprobe_binary" env:"FFPROBE_BINARY" env-default:"ffprobe"`
	Timeout       time.Duration `yaml:"timeout" env-default:"15s"`
	CacheTTL      time.Duration `yaml:"cache_ttl" env-default:"24h"`
}

// Notify exposes notifications to toast viewers over WebSocket when Addr is set.
type Notify struct {
	Addr string `yaml:"addr" env:"PORTFOLIO_NOTIFY_ADDR"`
}

// Load reads the YAML file at path with env overrides. An empty path reads
// the environment only.
func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("read config from env: %w", err)
		}
		return &cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist at path: %s", path)
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to config file")
		flag.Parse()
		configPath = *flags
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %s", err)
	}

	return cfg
}

// IsProduction reports whether logs should be emitted as JSON.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
