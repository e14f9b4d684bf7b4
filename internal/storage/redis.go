package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/soma-recovery/pkg/engine"
)

// RedisStorage keeps sessions in Redis and reads worlds from the filesystem.
type RedisStorage struct {
	worldFiles
	client *redis.Client
	ttl    time.Duration
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a Redis-backed storage. redisURL may be a bare
// host:port or a redis:// URL.
func NewRedisStorage(redisURL string, dataDir string, ttl time.Duration, logger *slog.Logger) (*RedisStorage, error) {
	opts := &redis.Options{Addr: redisURL}
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		opts = parsed
	}
	if dataDir == "" {
		dataDir = "./data"
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &RedisStorage{
		worldFiles: worldFiles{dataDir: dataDir, logger: logger},
		client:     redis.NewClient(opts),
		ttl:        ttl,
	}, nil
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func sessionKey(id uuid.UUID) string {
	return "session:" + id.String()
}

// Session operations (Redis-backed)

func (r *RedisStorage) SaveSession(ctx context.Context, id uuid.UUID, s *engine.Session) error {
	if s == nil || s.State == nil {
		return errors.New("session cannot be nil")
	}
	s.State.UpdatedAt = time.Now()

	data, err := json.Marshal(s)
	if err != nil {
		r.sessionLog(id).Error("Failed to marshal session", "error", err)
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(id), data, r.ttl).Err(); err != nil {
		r.sessionLog(id).Error("Failed to save session", "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadSession(ctx context.Context, id uuid.UUID) (*engine.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.sessionLog(id).Debug("Session not found")
			return nil, nil
		}
		r.sessionLog(id).Error("Failed to load session", "error", err)
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var s engine.Session
	if err := json.Unmarshal(data, &s); err != nil {
		r.sessionLog(id).Error("Failed to unmarshal session", "error", err)
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if s.State == nil {
		return nil, fmt.Errorf("failed to load session: %s has no state", id)
	}
	s.SetLogger(r.sessionLog(id))
	return &s, nil
}

func (r *RedisStorage) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		r.sessionLog(id).Error("Failed to delete session", "error", err)
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
