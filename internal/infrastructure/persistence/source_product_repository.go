package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/fitment"
	"github.com/partscatalog/backend/internal/domain/linkage"
	"github.com/partscatalog/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSourceProductRepository implements SourceProductRepository using GORM
type GormSourceProductRepository struct {
	db *gorm.DB
}

// NewGormSourceProductRepository creates a new GormSourceProductRepository
func NewGormSourceProductRepository(db *gorm.DB) *GormSourceProductRepository {
	return &GormSourceProductRepository{db: db}
}

// FindBySKU finds an ingested record by sku
func (r *GormSourceProductRepository) FindBySKU(ctx context.Context, sku string) (*linkage.SourceProduct, error) {
	var p linkage.SourceProduct
	if err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Upsert inserts the record or updates the row with the same sku. The stored
// id and creation time are kept and copied back into p.
func (r *GormSourceProductRepository) Upsert(ctx context.Context, p *linkage.SourceProduct) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertSource(tx, p)
	})
}

// UpsertLinked upserts p and adds the optional category link and fitment row
// for its gid in one transaction. Links and rows that already exist are kept.
func (r *GormSourceProductRepository) UpsertLinked(ctx context.Context, p *linkage.SourceProduct, categoryID *uuid.UUID, f *fitment.ProductFitment) error {
	if (categoryID != nil || f != nil) && p.ProductGID == nil {
		return shared.NewDomainError(shared.CodeInvalidProductGID, "Cannot link a record without a product gid")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertSource(tx, p); err != nil {
			return err
		}
		if categoryID != nil {
			links := newLinks(*p.ProductGID, []uuid.UUID{*categoryID}, nil)
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
				return err
			}
		}
		if f == nil {
			return nil
		}
		var existing int64
		if err := whereKey(tx.Model(&fitment.ProductFitment{}), f.Key()).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}
		return tx.Create(f).Error
	})
}

func upsertSource(tx *gorm.DB, p *linkage.SourceProduct) error {
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "sku"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"product_gid", "title", "description", "price", "image_url", "category_path", "updated_at",
		}),
	}).Create(p).Error; err != nil {
		return err
	}
	var stored linkage.SourceProduct
	if err := tx.Where("sku = ?", p.SKU).First(&stored).Error; err != nil {
		return err
	}
	p.ID = stored.ID
	p.CreatedAt = stored.CreatedAt
	return nil
}

var _ linkage.SourceProductRepository = (*GormSourceProductRepository)(nil)
