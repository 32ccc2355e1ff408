package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and verifies the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, lockName(lockKey), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.rdb.Del(ctx, lockName(lockKey)).Err()
}

// GetCartCount returns the cached line count for a user.
// ok is false on a cache miss.
func (c *Client) GetCartCount(ctx context.Context, clerkID string) (count int, ok bool, err error) {
	count, err = c.rdb.Get(ctx, cartCountKey(clerkID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

// SetCartCount caches the line count for a user
func (c *Client) SetCartCount(ctx context.Context, clerkID string, count int, ttl time.Duration) error {
	return c.rdb.Set(ctx, cartCountKey(clerkID), count, ttl).Err()
}

// InvalidateCartCount drops the cached line count after any cart mutation
func (c *Client) InvalidateCartCount(ctx context.Context, clerkID string) error {
	return c.rdb.Del(ctx, cartCountKey(clerkID)).Err()
}

func lockName(key string) string {
	return fmt.Sprintf("lock:%s", key)
}

func cartCountKey(clerkID string) string {
	return fmt.Sprintf("cart:count:%s", clerkID)
}
