package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/fitment"
	"github.com/partscatalog/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormFitmentRepository implements fitment.Repository using GORM
type GormFitmentRepository struct {
	db *gorm.DB
}

// NewGormFitmentRepository creates a new GormFitmentRepository
func NewGormFitmentRepository(db *gorm.DB) *GormFitmentRepository {
	return &GormFitmentRepository{db: db}
}

var fitmentColumns = map[fitment.Dimension]string{
	fitment.DimensionMake:    "make",
	fitment.DimensionModel:   "model",
	fitment.DimensionTrim:    "trim",
	fitment.DimensionChassis: "chassis",
}

// whereKey matches the full unique tuple; nil parts match NULL columns
func whereKey(db *gorm.DB, key fitment.Key) *gorm.DB {
	db = db.Where("product_gid = ? AND make = ? AND model = ?", key.ProductGID, key.Make, key.Model)
	db = whereNullable(db, "year_from", key.YearFrom)
	db = whereNullable(db, "year_to", key.YearTo)
	db = whereNullable(db, "trim", key.Trim)
	return whereNullable(db, "chassis", key.Chassis)
}

func whereNullable[T any](db *gorm.DB, column string, v *T) *gorm.DB {
	if v == nil {
		return db.Where(column + " IS NULL")
	}
	return db.Where(column+" = ?", *v)
}

// applyFitmentQuery adds the matcher's predicate as SQL: case-insensitive
// names and an open year interval. prefix qualifies the columns in joins.
func applyFitmentQuery(db *gorm.DB, prefix string, q fitment.Query) *gorm.DB {
	for _, c := range []struct {
		column string
		value  string
	}{
		{"make", q.Make},
		{"model", q.Model},
		{"trim", q.Trim},
		{"chassis", q.Chassis},
	} {
		if v := strings.TrimSpace(c.value); v != "" {
			db = db.Where(fmt.Sprintf("LOWER(%s%s) = ?", prefix, c.column), strings.ToLower(v))
		}
	}
	if q.Year != nil {
		db = db.Where(fmt.Sprintf("(%[1]syear_from IS NULL OR %[1]syear_from <= ?) AND (%[1]syear_to IS NULL OR %[1]syear_to >= ?)", prefix),
			*q.Year, *q.Year)
	}
	return db
}

// FindByKey returns the row with the exact tuple
func (r *GormFitmentRepository) FindByKey(ctx context.Context, key fitment.Key) (*fitment.ProductFitment, error) {
	var row fitment.ProductFitment
	if err := whereKey(r.db.WithContext(ctx), key).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// FindByID finds a fitment row by its ID
func (r *GormFitmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*fitment.ProductFitment, error) {
	var row fitment.ProductFitment
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// FindByProduct lists a product's rows in projection order
func (r *GormFitmentRepository) FindByProduct(ctx context.Context, productGID string) ([]fitment.ProductFitment, error) {
	var rows []fitment.ProductFitment
	if err := r.db.WithContext(ctx).
		Where("product_gid = ?", productGID).
		Order("make ASC, model ASC, year_from ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByProducts lists the rows of several products
func (r *GormFitmentRepository) FindByProducts(ctx context.Context, productGIDs []string) ([]fitment.ProductFitment, error) {
	if len(productGIDs) == 0 {
		return []fitment.ProductFitment{}, nil
	}
	var rows []fitment.ProductFitment
	if err := r.db.WithContext(ctx).
		Where("product_gid IN ?", productGIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Create inserts a new row. A duplicate tuple surfaces as ErrAlreadyExists.
func (r *GormFitmentRepository) Create(ctx context.Context, f *fitment.ProductFitment) error {
	if err := r.db.WithContext(ctx).Create(f).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Delete removes a row by id
func (r *GormFitmentRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&fitment.ProductFitment{}, "id = ?", id)
	return result.RowsAffected, result.Error
}

// DeleteByKey removes the row with the exact tuple
func (r *GormFitmentRepository) DeleteByKey(ctx context.Context, key fitment.Key) (int64, error) {
	result := whereKey(r.db.WithContext(ctx), key).Delete(&fitment.ProductFitment{})
	return result.RowsAffected, result.Error
}

// CountByName counts rows whose dimension column equals name, ignoring case.
// within narrows the count the way a search query would.
func (r *GormFitmentRepository) CountByName(ctx context.Context, dim fitment.Dimension, name string, within fitment.Query) (int64, error) {
	column, ok := fitmentColumns[dim]
	if !ok {
		return 0, shared.NewDomainErrorf(shared.CodeInvalidInput, "Unknown fitment dimension %q", dim)
	}
	var count int64
	if err := applyFitmentQuery(r.db.WithContext(ctx).Model(&fitment.ProductFitment{}), "", within).
		Where(fmt.Sprintf("LOWER(%s) = ?", column), strings.ToLower(strings.TrimSpace(name))).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// DistinctProductGIDs lists every product with fitment rows
func (r *GormFitmentRepository) DistinctProductGIDs(ctx context.Context) ([]string, error) {
	var gids []string
	if err := r.db.WithContext(ctx).
		Model(&fitment.ProductFitment{}).
		Distinct("product_gid").
		Order("product_gid ASC").
		Pluck("product_gid", &gids).Error; err != nil {
		return nil, err
	}
	return gids, nil
}

var _ fitment.Repository = (*GormFitmentRepository)(nil)
