package projection

import (
	"context"

	"github.com/partscatalog/backend/internal/domain/linkage"
	"github.com/partscatalog/backend/internal/domain/projection"
	"github.com/partscatalog/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// WriteThroughTrigger rebuilds synchronously inside the mutation
type WriteThroughTrigger struct {
	rebuilder Rebuilder
}

// NewWriteThroughTrigger creates a new WriteThroughTrigger
func NewWriteThroughTrigger(rebuilder Rebuilder) *WriteThroughTrigger {
	return &WriteThroughTrigger{rebuilder: rebuilder}
}

// Trigger rebuilds now and reports the push outcome
func (t *WriteThroughTrigger) Trigger(ctx context.Context, productGID string) linkage.SyncStatus {
	if _, err := t.rebuilder.Rebuild(ctx, productGID); err != nil {
		return linkage.SyncStatus{OK: false, Error: err.Error()}
	}
	return linkage.SyncStatus{OK: true}
}

// QueuedTrigger enqueues the gid for the QueueWorker and returns immediately
type QueuedTrigger struct {
	queue projection.RebuildQueue
}

// NewQueuedTrigger creates a new QueuedTrigger
func NewQueuedTrigger(queue projection.RebuildQueue) *QueuedTrigger {
	return &QueuedTrigger{queue: queue}
}

// Trigger enqueues a rebuild. OK means the gid is queued, not yet pushed.
func (t *QueuedTrigger) Trigger(ctx context.Context, productGID string) linkage.SyncStatus {
	if err := t.queue.Push(ctx, productGID); err != nil {
		logger.L(ctx).Error("Failed to enqueue projection rebuild",
			zap.String("product_gid", productGID), zap.Error(err))
		return linkage.SyncStatus{OK: false, Error: err.Error()}
	}
	return linkage.SyncStatus{OK: true, Queued: true}
}

var (
	_ linkage.RebuildTrigger = (*WriteThroughTrigger)(nil)
	_ linkage.RebuildTrigger = (*QueuedTrigger)(nil)
)
