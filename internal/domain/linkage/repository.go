package linkage

import (
	"context"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/fitment"
)

// ProductCategoryRepository defines the interface for link persistence
type ProductCategoryRepository interface {
	// CategoryIDs lists the categories linked to a product
	CategoryIDs(ctx context.Context, productGID string) ([]uuid.UUID, error)

	// Replace deletes every link of the product and inserts ids, in one transaction
	Replace(ctx context.Context, productGID string, ids []uuid.UUID) (added, removed int, err error)

	// Append inserts the ids not yet linked
	Append(ctx context.Context, productGID string, ids []uuid.UUID) (added int, err error)

	// DeleteAll removes every link of the product
	DeleteAll(ctx context.Context, productGID string) (int, error)

	// DeleteCategories removes the listed links of the product
	DeleteCategories(ctx context.Context, productGID string, ids []uuid.UUID) (int, error)

	// ProductGIDsByCategory lists gids linked to a category in link creation order
	ProductGIDsByCategory(ctx context.Context, categoryID uuid.UUID, limit int) ([]string, error)

	// ProductGIDsByCategories lists distinct gids linked to any of the categories
	ProductGIDsByCategories(ctx context.Context, ids []uuid.UUID) ([]string, error)

	// CountDistinctProducts counts distinct gids per category, joined against
	// fitments when the query is not empty
	CountDistinctProducts(ctx context.Context, ids []uuid.UUID, q fitment.Query) (map[uuid.UUID]int, error)

	// DistinctProductGIDs lists every product with at least one link
	DistinctProductGIDs(ctx context.Context) ([]string, error)
}

// SourceProductRepository defines the interface for ingested product records
type SourceProductRepository interface {
	FindBySKU(ctx context.Context, sku string) (*SourceProduct, error)

	// Upsert inserts or updates by sku
	Upsert(ctx context.Context, p *SourceProduct) error

	// UpsertLinked upserts p and, in the same transaction, links its gid to
	// categoryID and stores f when they are not nil
	UpsertLinked(ctx context.Context, p *SourceProduct, categoryID *uuid.UUID, f *fitment.ProductFitment) error
}
