package adapters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "checkout:session:"

// RedisOptions configures the reconciliation cache client
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisReconciliationCache maps checkout sessions to the orders they produced.
// It is a shortcut only; the transaction index stays authoritative.
type RedisReconciliationCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisReconciliationCache creates a new cache with the given entry lifetime
func NewRedisReconciliationCache(client redis.Cmdable, ttl time.Duration) *RedisReconciliationCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisReconciliationCache{client: client, ttl: ttl}
}

// Get returns the cached order ID for sessionID
func (c *RedisReconciliationCache) Get(ctx context.Context, sessionID string) (uuid.UUID, bool, error) {
	value, err := c.client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("read session cache: %w", err)
	}

	orderID, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("corrupt session cache entry %q: %w", value, err)
	}
	return orderID, true, nil
}

// Set records that sessionID produced orderID
func (c *RedisReconciliationCache) Set(ctx context.Context, sessionID string, orderID uuid.UUID) error {
	if err := c.client.Set(ctx, sessionKeyPrefix+sessionID, orderID.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("write session cache: %w", err)
	}
	return nil
}
