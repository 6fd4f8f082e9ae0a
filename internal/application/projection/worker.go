package projection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/partscatalog/backend/internal/domain/projection"
	"go.uber.org/zap"
)

// QueueWorkerConfig holds configuration for the queue worker
type QueueWorkerConfig struct {
	// PopTimeout bounds each blocking pop so shutdown is noticed
	PopTimeout time.Duration
	// BatchDelay is the pause between two pushes
	BatchDelay time.Duration
	// ErrorBackoff is the pause after the queue itself fails
	ErrorBackoff time.Duration
}

// DefaultQueueWorkerConfig returns default configuration
func DefaultQueueWorkerConfig() QueueWorkerConfig {
	return QueueWorkerConfig{
		PopTimeout:   2 * time.Second,
		BatchDelay:   500 * time.Millisecond,
		ErrorBackoff: 5 * time.Second,
	}
}

// QueueWorker drains the rebuild queue one product at a time
type QueueWorker struct {
	queue     projection.RebuildQueue
	rebuilder Rebuilder
	config    QueueWorkerConfig
	logger    *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewQueueWorker creates a new queue worker
func NewQueueWorker(
	queue projection.RebuildQueue,
	rebuilder Rebuilder,
	config QueueWorkerConfig,
	logger *zap.Logger,
) *QueueWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.PopTimeout <= 0 {
		config.PopTimeout = DefaultQueueWorkerConfig().PopTimeout
	}
	if config.ErrorBackoff <= 0 {
		config.ErrorBackoff = DefaultQueueWorkerConfig().ErrorBackoff
	}
	return &QueueWorker{
		queue:     queue,
		rebuilder: rebuilder,
		config:    config,
		logger:    logger.Named("rebuild_worker"),
	}
}

// Start starts the background loop
func (w *QueueWorker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.processLoop(ctx)

	w.logger.Info("rebuild worker started",
		zap.Duration("batch_delay", w.config.BatchDelay),
		zap.Duration("pop_timeout", w.config.PopTimeout),
	)
	return nil
}

// Stop cancels the loop and waits for the in-flight rebuild
func (w *QueueWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("rebuild worker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *QueueWorker) processLoop(ctx context.Context) {
	defer w.wg.Done()
	pacer := newPacer(w.config.BatchDelay)

	for {
		if ctx.Err() != nil {
			return
		}
		gid, err := w.queue.Pop(ctx, w.config.PopTimeout)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			w.logger.Error("failed to pop rebuild queue", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.config.ErrorBackoff):
			}
			continue
		}
		if gid == "" {
			continue
		}
		if err := pacer.Wait(ctx); err != nil {
			// Cancelled between pop and push; put the gid back for the next run.
			w.requeue(gid)
			return
		}
		w.rebuild(ctx, gid)
	}
}

func (w *QueueWorker) rebuild(ctx context.Context, gid string) {
	if _, err := w.rebuilder.Rebuild(ctx, gid); err != nil {
		w.logger.Warn("queued rebuild failed", zap.String("product_gid", gid), zap.Error(err))
	}
}

func (w *QueueWorker) requeue(gid string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.queue.Push(ctx, gid); err != nil {
		w.logger.Error("failed to requeue product", zap.String("product_gid", gid), zap.Error(err))
	}
}

// Drain rebuilds every queued product until the queue is empty or ctx is
// cancelled, and reports the outcome like a backfill.
func (w *QueueWorker) Drain(ctx context.Context) (BackfillReport, error) {
	report := BackfillReport{Failed: []BackfillFailure{}}
	pacer := newPacer(w.config.BatchDelay)

	for {
		if err := pacer.Wait(ctx); err != nil {
			report.Cancelled = true
			return report, nil
		}
		gid, err := w.queue.Pop(ctx, w.config.PopTimeout)
		if err != nil {
			return report, err
		}
		if gid == "" {
			return report, nil
		}
		report.Total++
		if _, err := w.rebuilder.Rebuild(ctx, gid); err != nil {
			report.Failed = append(report.Failed, BackfillFailure{ProductGID: gid, Error: err.Error()})
			continue
		}
		report.Succeeded++
	}
}
