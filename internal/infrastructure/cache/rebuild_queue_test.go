package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRebuildQueue(t *testing.T) {
	ctx := context.Background()
	q := NewInMemoryRebuildQueue()

	t.Run("empty queue times out with no gid", func(t *testing.T) {
		gid, err := q.Pop(ctx, 10*time.Millisecond)
		require.NoError(t, err)
		assert.Empty(t, gid)
	})

	t.Run("fifo order", func(t *testing.T) {
		require.NoError(t, q.Push(ctx, "gid://shopify/Product/1"))
		require.NoError(t, q.Push(ctx, "gid://shopify/Product/2"))

		n, err := q.Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		first, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		second, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		assert.Equal(t, "gid://shopify/Product/1", first)
		assert.Equal(t, "gid://shopify/Product/2", second)
	})

	t.Run("pop wakes up on push", func(t *testing.T) {
		go func() {
			time.Sleep(20 * time.Millisecond)
			_ = q.Push(ctx, "gid://shopify/Product/3")
		}()
		gid, err := q.Pop(ctx, 2*time.Second)
		require.NoError(t, err)
		assert.Equal(t, "gid://shopify/Product/3", gid)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := q.Pop(cctx, time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// TestRedisRebuildQueue runs against a real redis when PARTS_TEST_REDIS_ADDR is set
func TestRedisRebuildQueue(t *testing.T) {
	addr := os.Getenv("PARTS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PARTS_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	key := "test:rebuild:" + uuid.NewString()
	t.Cleanup(func() {
		client.Del(ctx, key)
		_ = client.Close()
	})
	q := NewRedisRebuildQueueWithClient(client, key)
	require.NoError(t, q.Ping(ctx))

	require.NoError(t, q.Push(ctx, "gid://shopify/Product/1"))
	require.NoError(t, q.Push(ctx, "gid://shopify/Product/2"))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	gid, err := q.Pop(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/Product/1", gid)

	_, err = q.Pop(ctx, time.Second)
	require.NoError(t, err)

	gid, err = q.Pop(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, gid)
}
