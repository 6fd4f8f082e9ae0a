package projection

import (
	"context"
	"time"
)

// RebuildQueue holds product gids waiting for a projection rebuild.
// The same gid may be queued more than once; rebuilds are full overwrites.
type RebuildQueue interface {
	// Push enqueues a gid
	Push(ctx context.Context, productGID string) error

	// Pop waits up to timeout for the next gid. It returns "" and a nil
	// error when nothing arrived in time.
	Pop(ctx context.Context, timeout time.Duration) (string, error)

	// Len reports the number of queued gids
	Len(ctx context.Context) (int64, error)
}
