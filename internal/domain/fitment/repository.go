package fitment

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for fitment persistence
type Repository interface {
	// FindByKey returns the row with the exact unique tuple, or shared.ErrNotFound
	FindByKey(ctx context.Context, key Key) (*ProductFitment, error)

	FindByID(ctx context.Context, id uuid.UUID) (*ProductFitment, error)

	// FindByProduct lists a product's rows ordered by make, model, yearFrom
	FindByProduct(ctx context.Context, productGID string) ([]ProductFitment, error)

	// FindByProducts lists the rows of several products
	FindByProducts(ctx context.Context, productGIDs []string) ([]ProductFitment, error)

	Create(ctx context.Context, f *ProductFitment) error

	// Delete removes a row by id and reports the rows affected
	Delete(ctx context.Context, id uuid.UUID) (int64, error)

	// DeleteByKey removes the row with the unique tuple and reports the rows affected
	DeleteByKey(ctx context.Context, key Key) (int64, error)

	// CountByName counts rows whose dimension column equals name
	// (case-insensitive) and that also match within
	CountByName(ctx context.Context, dim Dimension, name string, within Query) (int64, error)

	// DistinctProductGIDs lists every product with at least one row
	DistinctProductGIDs(ctx context.Context) ([]string, error)
}
