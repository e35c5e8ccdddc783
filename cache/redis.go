package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis stores snapshots in Redis so several console processes share them.
// Redis errors are logged and treated as misses.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// RedisOption configures the Redis cache.
type RedisOption func(*Redis)

// WithPrefix namespaces every key.
func WithPrefix(p string) RedisOption { return func(r *Redis) { r.prefix = p } }

// WithDefaultTTL sets the TTL used when Set gets none.
func WithDefaultTTL(ttl time.Duration) RedisOption { return func(r *Redis) { r.ttl = ttl } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) RedisOption { return func(r *Redis) { r.logger = l } }

// NewRedis creates a Redis-backed cache on client.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		ttl:    5 * time.Minute,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the value stored under key.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.logger.Warn("cache: redis get failed", "key", key, "error", err)
		return nil, false
	}
	return raw, true
}

// Set stores value under key. A non-positive ttl uses the default.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = r.ttl
	}
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		r.logger.Warn("cache: redis set failed", "key", key, "error", err)
	}
}

// Delete removes the value stored under key.
func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		r.logger.Warn("cache: redis delete failed", "key", key, "error", err)
	}
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
