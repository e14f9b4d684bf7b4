package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

type Config struct {
	Port         string
	Environment  string
	LogLevel     slog.Level
	SessionStore string        // "memory" or "redis"
	RedisURL     string        // host:port or redis:// URL
	SessionTTL   time.Duration // how long an idle session is kept
	DataDir      string        // holds worlds/*.json
}

func Load() (*Config, error) {
	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid SESSION_TTL: must be positive, got %s", ttl)
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		LogLevel:     parseLogLevel(getEnv("LOG_LEVEL", "info")),
		SessionStore: strings.ToLower(getEnv("SESSION_STORE", SessionStoreMemory)),
		RedisURL:     getEnv("REDIS_URL", "localhost:6379"),
		SessionTTL:   ttl,
		DataDir:      getEnv("DATA_DIR", "./data"),
	}

	switch cfg.SessionStore {
	case SessionStoreMemory, SessionStoreRedis:
	default:
		return nil, fmt.Errorf("invalid SESSION_STORE %q: supported values are %q and %q",
			cfg.SessionStore, SessionStoreMemory, SessionStoreRedis)
	}

	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
