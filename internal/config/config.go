package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	PostgresDSN  string
	RedisAddr    string
	KafkaBrokers []string
	JWTSecret    string

	// GatewayMode selects "http" (real rail) or "simulator".
	GatewayMode    string
	GatewayBaseURL string
	GatewayTimeout time.Duration

	FeeRateBps    int64
	MaxRetries    int
	BackoffBase   time.Duration
	SweepInterval time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using default values", "error", err)
	}

	cfg := &Config{
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		KafkaBrokers:   []string{os.Getenv("KAFKA_BROKER")},
		JWTSecret:      os.Getenv("JWT_SECRET"),
		GatewayMode:    os.Getenv("GATEWAY_MODE"),
		GatewayBaseURL: os.Getenv("GATEWAY_BASE_URL"),
		GatewayTimeout: envDuration("GATEWAY_TIMEOUT_MS", 10*time.Second),
		FeeRateBps:     envInt64("FEE_BPS", 100),
		MaxRetries:     int(envInt64("MAX_RETRIES", 3)),
		BackoffBase:    envDuration("BACKOFF_BASE_MS", 200*time.Millisecond),
		SweepInterval:  envDuration("SWEEP_INTERVAL_MS", 5*time.Minute),
	}

	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = "host=localhost user=postgres password=postgres dbname=taptosell sslmode=disable"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if len(cfg.KafkaBrokers) == 1 && cfg.KafkaBrokers[0] == "" {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "supersecret"
	}
	if cfg.GatewayMode == "" {
		cfg.GatewayMode = "simulator"
	}

	slog.Info("config loaded",
		"postgres_dsn", cfg.PostgresDSN,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"gateway_mode", cfg.GatewayMode,
		"fee_bps", cfg.FeeRateBps,
		"max_retries", cfg.MaxRetries)
	return cfg
}

func envInt64(key string, def int64) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		slog.Warn("invalid integer env value, using default", "key", key, "value", raw)
		return def
	}
	return v
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		slog.Warn("invalid duration env value, using default", "key", key, "value", raw)
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
