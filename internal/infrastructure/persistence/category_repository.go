package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/linkage"
	"github.com/partscatalog/backend/internal/domain/shared"
	"github.com/partscatalog/backend/internal/domain/taxonomy"
	"gorm.io/gorm"
)

// GormCategoryRepository implements CategoryRepository using GORM
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewGormCategoryRepository creates a new GormCategoryRepository
func NewGormCategoryRepository(db *gorm.DB) *GormCategoryRepository {
	return &GormCategoryRepository{db: db}
}

// FindByID finds a category by its ID
func (r *GormCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*taxonomy.Category, error) {
	var category taxonomy.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

// FindBySlug finds a category by its slug
func (r *GormCategoryRepository) FindBySlug(ctx context.Context, slug string) (*taxonomy.Category, error) {
	var category taxonomy.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

// FindBySlugs returns the categories matching any of the slugs
func (r *GormCategoryRepository) FindBySlugs(ctx context.Context, slugs []string) ([]taxonomy.Category, error) {
	if len(slugs) == 0 {
		return []taxonomy.Category{}, nil
	}
	var categories []taxonomy.Category
	if err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// FindByIDs returns the categories with the given ids
func (r *GormCategoryRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]taxonomy.Category, error) {
	if len(ids) == 0 {
		return []taxonomy.Category{}, nil
	}
	var categories []taxonomy.Category
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// FindAll loads every category
func (r *GormCategoryRepository) FindAll(ctx context.Context) ([]taxonomy.Category, error) {
	var categories []taxonomy.Category
	if err := r.db.WithContext(ctx).Order("title ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// FindChildren finds the direct children of a category, or the roots when parentID is nil
func (r *GormCategoryRepository) FindChildren(ctx context.Context, parentID *uuid.UUID) ([]taxonomy.Category, error) {
	query := r.db.WithContext(ctx)
	if parentID == nil {
		query = query.Where("parent_id IS NULL")
	} else {
		query = query.Where("parent_id = ?", *parentID)
	}
	var categories []taxonomy.Category
	if err := query.Order("title ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// Save creates or updates a category
func (r *GormCategoryRepository) Save(ctx context.Context, category *taxonomy.Category) error {
	return r.db.WithContext(ctx).Save(category).Error
}

// Delete removes a childless category and its product links in one
// transaction and returns the gids that lost the link, ordered. A category
// that gained a child since the caller checked yields ErrHasChildren and
// nothing is removed.
func (r *GormCategoryRepository) Delete(ctx context.Context, id uuid.UUID) ([]string, error) {
	var gids []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var children int64
		if err := tx.Model(&taxonomy.Category{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
			return err
		}
		if children > 0 {
			return shared.ErrHasChildren
		}
		if err := tx.Model(&linkage.ProductCategory{}).
			Where("category_id = ?", id).
			Order("product_gid ASC").
			Pluck("product_gid", &gids).Error; err != nil {
			return err
		}
		if err := tx.Where("category_id = ?", id).Delete(&linkage.ProductCategory{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&taxonomy.Category{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return gids, nil
}

// CountChildren counts direct children of a category
func (r *GormCategoryRepository) CountChildren(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&taxonomy.Category{}).
		Where("parent_id = ?", id).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsBySlug checks if a slug is taken, optionally ignoring one category
func (r *GormCategoryRepository) ExistsBySlug(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&taxonomy.Category{}).Where("slug = ?", slug)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Ensure GormCategoryRepository implements CategoryRepository
var _ taxonomy.CategoryRepository = (*GormCategoryRepository)(nil)
