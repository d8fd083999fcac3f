package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using one JSON value per identity
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration // refreshed on every append
	limit  int
}

// NewRedisStore connects to redisURL and verifies the connection
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration, limit int) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl, limit), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration, limit int) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		limit:  limit,
	}
}

func (r *RedisStore) historyKey(identity string) string {
	return fmt.Sprintf("pcagent:history:%s", identity)
}

// Load loads identity's history from Redis
func (r *RedisStore) Load(ctx context.Context, identity string) (*History, error) {
	data, err := r.client.Get(ctx, r.historyKey(identity)).Result()
	if errors.Is(err, redis.Nil) {
		return newHistory(identity, time.Now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load history from Redis: %w", err)
	}

	var h History
	if err := json.Unmarshal([]byte(data), &h); err != nil {
		return nil, fmt.Errorf("failed to parse history data: %w", err)
	}
	return &h, nil
}

// Append adds messages, trims to the limit and refreshes the TTL
func (r *RedisStore) Append(ctx context.Context, identity string, msgs ...Message) error {
	h, err := r.Load(ctx, identity)
	if err != nil {
		return err
	}

	h.appendTrimmed(r.limit, time.Now(), msgs...)

	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := r.client.Set(ctx, r.historyKey(identity), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save history to Redis: %w", err)
	}
	return nil
}

// Clear removes identity's history from Redis
func (r *RedisStore) Clear(ctx context.Context, identity string) error {
	if err := r.client.Del(ctx, r.historyKey(identity)).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection is alive
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}
