package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache is a pure TTL key-value cache. A miss is indistinguishable from
// an expired entry; a cache fault is an error, never a miss.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// New creates a Redis-backed cache with the given default TTL in seconds
func New(addr, password string, db, ttlSeconds int, logger zerolog.Logger) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &Cache{
		client: client,
		ttl:    time.Duration(ttlSeconds) * time.Second,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

// NewWithClient wraps an existing Redis client. Used by tests.
func NewWithClient(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "cache").Logger(),
	}
}

// Ping checks if the connection to Redis is working
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.logger.Debug().Msg("Redis connection successful")
	return nil
}

// Get returns the stored payload for key. The second return value is
// false on a miss (never computed, expired or deleted).
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s failed: %w", key, err)
	}

	return data, true, nil
}

// Set stores the payload under key, resetting the TTL countdown.
// Last write wins.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s failed: %w", key, err)
	}

	c.logger.Debug().
		Str("key", key).
		Dur("ttl", c.ttl).
		Msg("Cache entry stored")

	return nil
}

// Del removes the entry early. A no-op when the key is absent.
func (c *Cache) Del(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache del %s failed: %w", key, err)
	}
	return nil
}

// Close releases the underlying Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}
