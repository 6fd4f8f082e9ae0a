package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/partscatalog/backend/internal/domain/projection"
	"github.com/redis/go-redis/v9"
)

// DefaultRebuildQueueKey is the redis list used when no key is configured
const DefaultRebuildQueueKey = "parts:projection:rebuild"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	// Addr is host:port
	Addr     string
	Password string
	DB       int
}

// RedisRebuildQueue implements projection.RebuildQueue on a redis list.
// Producers LPUSH, the worker BRPOPs, so gids are served oldest first.
type RedisRebuildQueue struct {
	client *redis.Client
	key    string
}

// NewRedisRebuildQueue connects to redis and verifies the connection
func NewRedisRebuildQueue(cfg RedisConfig, key string) (*RedisRebuildQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisRebuildQueueWithClient(client, key), nil
}

// NewRedisRebuildQueueWithClient creates a queue with an existing Redis client
func NewRedisRebuildQueueWithClient(client *redis.Client, key string) *RedisRebuildQueue {
	if key == "" {
		key = DefaultRebuildQueueKey
	}
	return &RedisRebuildQueue{client: client, key: key}
}

// Push enqueues a gid
func (q *RedisRebuildQueue) Push(ctx context.Context, productGID string) error {
	if err := q.client.LPush(ctx, q.key, productGID).Err(); err != nil {
		return fmt.Errorf("failed to enqueue rebuild: %w", err)
	}
	return nil
}

// Pop blocks up to timeout for the next gid
func (q *RedisRebuildQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	result, err := q.client.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to dequeue rebuild: %w", err)
	}
	// BRPOP answers [key, value]
	if len(result) != 2 {
		return "", fmt.Errorf("unexpected BRPOP reply of length %d", len(result))
	}
	return result[1], nil
}

// Len reports the queue length
func (q *RedisRebuildQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue length: %w", err)
	}
	return n, nil
}

// Ping checks the Redis server answers
func (q *RedisRebuildQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (q *RedisRebuildQueue) Close() error {
	return q.client.Close()
}

// Ensure RedisRebuildQueue implements RebuildQueue
var _ projection.RebuildQueue = (*RedisRebuildQueue)(nil)
