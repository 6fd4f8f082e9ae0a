package linkage

import "context"

// RebuildTrigger starts a projection rebuild for a product whose links were
// just committed. Push failures are reported in the status, never returned
// as errors, so the committed mutation still succeeds.
type RebuildTrigger interface {
	Trigger(ctx context.Context, productGID string) SyncStatus
}
