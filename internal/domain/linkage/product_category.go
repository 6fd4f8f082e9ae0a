package linkage

import (
	"time"

	"github.com/google/uuid"
)

// ProductCategory links an external product to a category
type ProductCategory struct {
	ProductGID string    `gorm:"column:product_gid;type:varchar(255);primaryKey"`
	CategoryID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ProductCategory) TableName() string {
	return "product_categories"
}

// SyncStatus reports how the projection rebuild after a mutation went.
// A failed push never fails the mutation itself.
type SyncStatus struct {
	OK     bool   `json:"ok"`
	Queued bool   `json:"queued,omitempty"`
	Error  string `json:"error,omitempty"`
}

// MutationResult is returned by every linkage mutation
type MutationResult struct {
	ProductGID string     `json:"product_gid"`
	Added      int        `json:"added"`
	Removed    int        `json:"removed"`
	Sync       SyncStatus `json:"sync"`
}

// DedupeIDs drops repeated ids, keeping first occurrence order
func DedupeIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
