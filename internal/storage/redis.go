package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/inbox-snapshot/internal/config"
	"github.com/redis/go-redis/v9"
)

// RedisCache wraps the Redis client
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis connection
func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.MaxConnections,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewRedisCacheFromClient wraps an existing client. Used by tests with miniredis.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Ping checks if Redis is reachable
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// SnapshotLock serializes snapshot creation per user. Two concurrent
// orchestrator runs for the same user would race the quota check-then-write,
// so the second run must wait or fail fast.
type SnapshotLock struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewSnapshotLock creates a snapshot lock manager
func NewSnapshotLock(redis *RedisCache, ttl time.Duration) *SnapshotLock {
	return &SnapshotLock{redis: redis, ttl: ttl}
}

func (l *SnapshotLock) key(userID string) string {
	return "snapshot:lock:" + userID
}

// Acquire attempts to take the per-user snapshot lock. Returns false if
// another snapshot run currently holds it. The TTL guards against a crashed
// holder leaking the lock forever.
func (l *SnapshotLock) Acquire(ctx context.Context, userID string) (bool, error) {
	ok, err := l.redis.client.SetNX(ctx, l.key(userID), time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire snapshot lock: %w", err)
	}
	return ok, nil
}

// Release releases the per-user snapshot lock
func (l *SnapshotLock) Release(ctx context.Context, userID string) error {
	if err := l.redis.client.Del(ctx, l.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to release snapshot lock: %w", err)
	}
	return nil
}
