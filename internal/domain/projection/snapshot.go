package projection

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// SnapshotStatus is the outcome of the last push attempt
type SnapshotStatus string

const (
	SnapshotSuccess SnapshotStatus = "SUCCESS"
	SnapshotFailed  SnapshotStatus = "FAILED"
)

// Snapshot records the last projection pushed (or attempted) for a product.
// It is bookkeeping for operators, never read back as a source of truth.
type Snapshot struct {
	ProductGID    string         `gorm:"column:product_gid;type:varchar(255);primaryKey"`
	CategorySlugs datatypes.JSON `gorm:"type:jsonb"`
	YMM           datatypes.JSON `gorm:"column:ymm;type:jsonb"`
	Status        SnapshotStatus `gorm:"type:varchar(20);not null;index"`
	LastError     string         `gorm:"type:text"`
	Attempts      int            `gorm:"not null;default:0"`
	PushedAt      time.Time      `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Snapshot) TableName() string {
	return "projection_snapshots"
}

// NewSnapshot captures a push attempt. pushErr nil marks success.
func NewSnapshot(p Projection, pushErr error) (*Snapshot, error) {
	slugs, err := json.Marshal(p.CategorySlugs)
	if err != nil {
		return nil, err
	}
	ymm, err := json.Marshal(p.YMM)
	if err != nil {
		return nil, err
	}
	s := &Snapshot{
		ProductGID:    p.ProductGID,
		CategorySlugs: datatypes.JSON(slugs),
		YMM:           datatypes.JSON(ymm),
		Status:        SnapshotSuccess,
		Attempts:      1,
		PushedAt:      time.Now(),
	}
	if pushErr != nil {
		s.Status = SnapshotFailed
		s.LastError = pushErr.Error()
	}
	return s, nil
}

// SnapshotRepository defines the interface for snapshot persistence
type SnapshotRepository interface {
	// Record upserts the snapshot, counting attempts while the status stays FAILED
	Record(ctx context.Context, s *Snapshot) error

	FindByProduct(ctx context.Context, productGID string) (*Snapshot, error)

	// FindFailed lists failed products, oldest push first
	FindFailed(ctx context.Context, limit int) ([]Snapshot, error)
}
