package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/shared"
	"github.com/partscatalog/backend/internal/domain/taxonomy"
	"gorm.io/gorm"
)

// GormFitTermRepository implements FitTermRepository using GORM
type GormFitTermRepository struct {
	db *gorm.DB
}

// NewGormFitTermRepository creates a new GormFitTermRepository
func NewGormFitTermRepository(db *gorm.DB) *GormFitTermRepository {
	return &GormFitTermRepository{db: db}
}

// FindByID finds a fit term by its ID
func (r *GormFitTermRepository) FindByID(ctx context.Context, id uuid.UUID) (*taxonomy.FitTerm, error) {
	var term taxonomy.FitTerm
	if err := r.db.WithContext(ctx).First(&term, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &term, nil
}

// FindAll loads every term, or only the terms of one type
func (r *GormFitTermRepository) FindAll(ctx context.Context, termType *taxonomy.FitTermType) ([]taxonomy.FitTerm, error) {
	query := r.db.WithContext(ctx)
	if termType != nil {
		query = query.Where("type = ?", *termType)
	}
	var terms []taxonomy.FitTerm
	if err := query.Order("name ASC").Find(&terms).Error; err != nil {
		return nil, err
	}
	return terms, nil
}

// FindByKey looks up the unique (type, name, parent) triple
func (r *GormFitTermRepository) FindByKey(ctx context.Context, termType taxonomy.FitTermType, name string, parentID *uuid.UUID) (*taxonomy.FitTerm, error) {
	query := r.db.WithContext(ctx).Where("type = ? AND name = ?", termType, name)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	var term taxonomy.FitTerm
	if err := query.First(&term).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &term, nil
}

// Save creates or updates a fit term
func (r *GormFitTermRepository) Save(ctx context.Context, term *taxonomy.FitTerm) error {
	return r.db.WithContext(ctx).Save(term).Error
}

// Delete deletes a fit term
func (r *GormFitTermRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&taxonomy.FitTerm{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountChildren counts direct children of a term
func (r *GormFitTermRepository) CountChildren(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&taxonomy.FitTerm{}).
		Where("parent_id = ?", id).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

var _ taxonomy.FitTermRepository = (*GormFitTermRepository)(nil)
