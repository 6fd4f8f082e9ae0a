package cache

import (
	"context"
	"sync"
	"time"

	"github.com/partscatalog/backend/internal/domain/projection"
)

// InMemoryRebuildQueue implements projection.RebuildQueue with a slice and a
// signal channel. It is suitable for single-instance deployments and testing.
type InMemoryRebuildQueue struct {
	mu     sync.Mutex
	items  []string
	signal chan struct{}
}

// NewInMemoryRebuildQueue creates an empty queue
func NewInMemoryRebuildQueue() *InMemoryRebuildQueue {
	return &InMemoryRebuildQueue{signal: make(chan struct{}, 1)}
}

// Push enqueues a gid
func (q *InMemoryRebuildQueue) Push(_ context.Context, productGID string) error {
	q.mu.Lock()
	q.items = append(q.items, productGID)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// Pop waits up to timeout for the next gid
func (q *InMemoryRebuildQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if gid, ok := q.take(); ok {
			return gid, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
			return "", nil
		case <-q.signal:
		}
	}
}

func (q *InMemoryRebuildQueue) take() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false
	}
	gid := q.items[0]
	q.items = q.items[1:]
	if len(q.items) > 0 {
		select {
		case q.signal <- struct{}{}:
		default:
		}
	}
	return gid, true
}

// Len reports the queue length
func (q *InMemoryRebuildQueue) Len(_ context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}

var _ projection.RebuildQueue = (*InMemoryRebuildQueue)(nil)
