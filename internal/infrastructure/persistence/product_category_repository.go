package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/fitment"
	"github.com/partscatalog/backend/internal/domain/linkage"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductCategoryRepository implements ProductCategoryRepository using GORM
type GormProductCategoryRepository struct {
	db *gorm.DB
}

// NewGormProductCategoryRepository creates a new GormProductCategoryRepository
func NewGormProductCategoryRepository(db *gorm.DB) *GormProductCategoryRepository {
	return &GormProductCategoryRepository{db: db}
}

// CategoryIDs lists the categories linked to a product in link order
func (r *GormProductCategoryRepository) CategoryIDs(ctx context.Context, productGID string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&linkage.ProductCategory{}).
		Where("product_gid = ?", productGID).
		Order("created_at ASC, category_id ASC").
		Pluck("category_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Replace makes ids the exact link set of the product. Links already present
// keep their creation time, so a repeated replace with the same set adds and
// removes nothing.
func (r *GormProductCategoryRepository) Replace(ctx context.Context, productGID string, ids []uuid.UUID) (added, removed int, err error) {
	ids = linkage.DedupeIDs(ids)
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []uuid.UUID
		if err := tx.Model(&linkage.ProductCategory{}).
			Where("product_gid = ?", productGID).
			Pluck("category_id", &existing).Error; err != nil {
			return err
		}

		wanted := make(map[uuid.UUID]struct{}, len(ids))
		for _, id := range ids {
			wanted[id] = struct{}{}
		}
		var stale []uuid.UUID
		current := make(map[uuid.UUID]struct{}, len(existing))
		for _, id := range existing {
			current[id] = struct{}{}
			if _, keep := wanted[id]; !keep {
				stale = append(stale, id)
			}
		}

		if len(stale) > 0 {
			result := tx.Where("product_gid = ? AND category_id IN ?", productGID, stale).
				Delete(&linkage.ProductCategory{})
			if result.Error != nil {
				return result.Error
			}
			removed = int(result.RowsAffected)
		}

		links := newLinks(productGID, ids, current)
		if len(links) == 0 {
			return nil
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links)
		if result.Error != nil {
			return result.Error
		}
		added = int(result.RowsAffected)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return added, removed, nil
}

// Append links the ids not yet linked
func (r *GormProductCategoryRepository) Append(ctx context.Context, productGID string, ids []uuid.UUID) (int, error) {
	links := newLinks(productGID, linkage.DedupeIDs(ids), nil)
	if len(links) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&links)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

// newLinks builds rows for ids not in skip. Creation times are spaced by a
// microsecond so the input order survives as link order.
func newLinks(productGID string, ids []uuid.UUID, skip map[uuid.UUID]struct{}) []linkage.ProductCategory {
	now := time.Now()
	links := make([]linkage.ProductCategory, 0, len(ids))
	for _, id := range ids {
		if _, ok := skip[id]; ok {
			continue
		}
		links = append(links, linkage.ProductCategory{
			ProductGID: productGID,
			CategoryID: id,
			CreatedAt:  now.Add(time.Duration(len(links)) * time.Microsecond),
		})
	}
	return links
}

// DeleteAll removes every link of the product
func (r *GormProductCategoryRepository) DeleteAll(ctx context.Context, productGID string) (int, error) {
	result := r.db.WithContext(ctx).Where("product_gid = ?", productGID).Delete(&linkage.ProductCategory{})
	return int(result.RowsAffected), result.Error
}

// DeleteCategories removes the listed links of the product
func (r *GormProductCategoryRepository) DeleteCategories(ctx context.Context, productGID string, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("product_gid = ? AND category_id IN ?", productGID, ids).
		Delete(&linkage.ProductCategory{})
	return int(result.RowsAffected), result.Error
}

// ProductGIDsByCategory lists gids linked to a category, oldest link first.
// A limit of zero or less returns everything.
func (r *GormProductCategoryRepository) ProductGIDsByCategory(ctx context.Context, categoryID uuid.UUID, limit int) ([]string, error) {
	query := r.db.WithContext(ctx).
		Model(&linkage.ProductCategory{}).
		Where("category_id = ?", categoryID).
		Order("created_at ASC, product_gid ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var gids []string
	if err := query.Pluck("product_gid", &gids).Error; err != nil {
		return nil, err
	}
	return gids, nil
}

// ProductGIDsByCategories lists distinct gids linked to any of the categories
func (r *GormProductCategoryRepository) ProductGIDsByCategories(ctx context.Context, ids []uuid.UUID) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	var gids []string
	if err := r.db.WithContext(ctx).
		Model(&linkage.ProductCategory{}).
		Where("category_id IN ?", ids).
		Distinct("product_gid").
		Order("product_gid ASC").
		Pluck("product_gid", &gids).Error; err != nil {
		return nil, err
	}
	return gids, nil
}

type categoryCount struct {
	CategoryID uuid.UUID
	Total      int
}

// CountDistinctProducts counts distinct gids per category. A non-empty query
// joins product_fitments so only products with a matching row are counted.
func (r *GormProductCategoryRepository) CountDistinctProducts(ctx context.Context, ids []uuid.UUID, q fitment.Query) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	query := r.db.WithContext(ctx).
		Table("product_categories AS pc").
		Select("pc.category_id AS category_id, COUNT(DISTINCT pc.product_gid) AS total").
		Where("pc.category_id IN ?", ids)
	if !q.IsEmpty() {
		query = applyFitmentQuery(query.Joins("JOIN product_fitments AS pf ON pf.product_gid = pc.product_gid"), "pf.", q)
	}

	var rows []categoryCount
	if err := query.Group("pc.category_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.CategoryID] = row.Total
	}
	return counts, nil
}

// DistinctProductGIDs lists every product with at least one link
func (r *GormProductCategoryRepository) DistinctProductGIDs(ctx context.Context) ([]string, error) {
	var gids []string
	if err := r.db.WithContext(ctx).
		Model(&linkage.ProductCategory{}).
		Distinct("product_gid").
		Order("product_gid ASC").
		Pluck("product_gid", &gids).Error; err != nil {
		return nil, err
	}
	return gids, nil
}

var _ linkage.ProductCategoryRepository = (*GormProductCategoryRepository)(nil)
