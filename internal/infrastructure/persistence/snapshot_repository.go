package persistence

import (
	"context"
	"errors"

	"github.com/partscatalog/backend/internal/domain/projection"
	"github.com/partscatalog/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSnapshotRepository implements projection.SnapshotRepository using GORM
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a new GormSnapshotRepository
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

// Record upserts the snapshot. Consecutive failures accumulate attempts;
// a success resets the counter.
func (r *GormSnapshotRepository) Record(ctx context.Context, s *projection.Snapshot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var previous projection.Snapshot
		err := tx.Where("product_gid = ?", s.ProductGID).First(&previous).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return err
		case previous.Status == projection.SnapshotFailed && s.Status == projection.SnapshotFailed:
			s.Attempts = previous.Attempts + 1
		}
		if s.Attempts < 1 {
			s.Attempts = 1
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_gid"}},
			UpdateAll: true,
		}).Create(s).Error
	})
}

// FindByProduct returns the snapshot of a product
func (r *GormSnapshotRepository) FindByProduct(ctx context.Context, productGID string) (*projection.Snapshot, error) {
	var s projection.Snapshot
	if err := r.db.WithContext(ctx).Where("product_gid = ?", productGID).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// FindFailed lists failed snapshots, oldest attempt first
func (r *GormSnapshotRepository) FindFailed(ctx context.Context, limit int) ([]projection.Snapshot, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", projection.SnapshotFailed).
		Order("pushed_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var snapshots []projection.Snapshot
	if err := query.Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

var _ projection.SnapshotRepository = (*GormSnapshotRepository)(nil)
