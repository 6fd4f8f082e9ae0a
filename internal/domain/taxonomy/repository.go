package taxonomy

import (
	"context"

	"github.com/google/uuid"
)

// CategoryRepository defines the interface for category persistence
type CategoryRepository interface {
	// FindByID finds a category by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Category, error)

	// FindBySlug finds a category by its unique slug
	FindBySlug(ctx context.Context, slug string) (*Category, error)

	// FindBySlugs returns the categories whose slug is in the list; missing slugs are skipped
	FindBySlugs(ctx context.Context, slugs []string) ([]Category, error)

	// FindByIDs returns the categories with the given ids; missing ids are skipped
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Category, error)

	// FindAll loads every category row
	FindAll(ctx context.Context) ([]Category, error)

	// FindChildren finds the direct children of a category (nil for roots)
	FindChildren(ctx context.Context, parentID *uuid.UUID) ([]Category, error)

	// Save creates or updates a category
	Save(ctx context.Context, category *Category) error

	// Delete atomically removes a childless category with its product links
	// and returns the gids that were linked. A category with children yields
	// shared.ErrHasChildren and is left untouched.
	Delete(ctx context.Context, id uuid.UUID) (unlinked []string, err error)

	// CountChildren counts direct children
	CountChildren(ctx context.Context, id uuid.UUID) (int64, error)

	// ExistsBySlug checks for a slug, ignoring excludeID when not nil
	ExistsBySlug(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error)
}

// FitTermRepository defines the interface for fit-term persistence
type FitTermRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*FitTerm, error)

	// FindAll loads every term, optionally restricted to one type
	FindAll(ctx context.Context, termType *FitTermType) ([]FitTerm, error)

	// FindByKey looks up the unique (type, name, parent) triple; name comparison is exact
	FindByKey(ctx context.Context, termType FitTermType, name string, parentID *uuid.UUID) (*FitTerm, error)

	Save(ctx context.Context, term *FitTerm) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountChildren(ctx context.Context, id uuid.UUID) (int64, error)
}
