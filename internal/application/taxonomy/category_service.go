// Package taxonomy holds the admin use cases for the category tree and the
// fit-term hierarchy.
package taxonomy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/linkage"
	"github.com/partscatalog/backend/internal/domain/shared"
	"github.com/partscatalog/backend/internal/domain/taxonomy"
	"go.uber.org/zap"
)

// CategoryService handles category operations
type CategoryService struct {
	categoryRepo taxonomy.CategoryRepository
	linkRepo     linkage.ProductCategoryRepository
	trigger      linkage.RebuildTrigger
	logger       *zap.Logger
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(
	categoryRepo taxonomy.CategoryRepository,
	linkRepo linkage.ProductCategoryRepository,
	trigger linkage.RebuildTrigger,
	logger *zap.Logger,
) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{
		categoryRepo: categoryRepo,
		linkRepo:     linkRepo,
		trigger:      trigger,
		logger:       logger,
	}
}

// Create creates a new category
func (s *CategoryService) Create(ctx context.Context, req CreateCategoryRequest) (*CategoryResponse, error) {
	if req.ParentID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *req.ParentID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError(shared.CodeInvalidParent, "Parent category not found")
			}
			return nil, err
		}
	}

	category, err := taxonomy.NewCategory(req.Title, req.Slug, req.ParentID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSlugFree(ctx, category.Slug, nil); err != nil {
		return nil, err
	}
	if req.Image != "" || req.Description != "" {
		if err := category.Update(category.Title, req.Image, req.Description); err != nil {
			return nil, err
		}
	}

	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}
	resp := ToCategoryResponse(category)
	return &resp, nil
}

// Get retrieves a category by id
func (s *CategoryService) Get(ctx context.Context, id uuid.UUID) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToCategoryResponse(category)
	return &resp, nil
}

// GetBySlug retrieves a category by slug
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	resp := ToCategoryResponse(category)
	return &resp, nil
}

// Tree returns the whole category forest, siblings ordered by title
func (s *CategoryService) Tree(ctx context.Context) ([]CategoryTreeNode, error) {
	rows, err := s.categoryRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return ToCategoryTree(taxonomy.BuildForest(rows)), nil
}

// AncestorSlugs returns the slug closure of a category (its own slug plus every ancestor)
func (s *CategoryService) AncestorSlugs(ctx context.Context, id uuid.UUID) ([]string, error) {
	index, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := index.Get(id); !ok {
		return nil, shared.ErrNotFound
	}
	return index.AncestorSlugs(id)
}

// Update changes the descriptive fields and optionally the slug. A slug
// change rebuilds every product linked at or below the category.
func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, req UpdateCategoryRequest) (*CategoryMutationResponse, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	title, image, description := category.Title, category.Image, category.Description
	if req.Title != nil {
		title = *req.Title
	}
	if req.Image != nil {
		image = *req.Image
	}
	if req.Description != nil {
		description = *req.Description
	}
	if err := category.Update(title, image, description); err != nil {
		return nil, err
	}

	slugChanged := req.Slug != nil && *req.Slug != category.Slug
	if slugChanged {
		if err := category.ChangeSlug(*req.Slug); err != nil {
			return nil, err
		}
		if err := s.ensureSlugFree(ctx, category.Slug, &category.ID); err != nil {
			return nil, err
		}
	}

	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}

	resp := &CategoryMutationResponse{Category: ptr(ToCategoryResponse(category))}
	if slugChanged {
		sync, err := s.resyncSubtree(ctx, category.ID)
		if err != nil {
			return nil, err
		}
		resp.Sync = sync
	}
	return resp, nil
}

// Move reparents a category after checking the move keeps the tree acyclic.
// Every product linked at or below the category is rebuilt.
func (s *CategoryService) Move(ctx context.Context, id uuid.UUID, req MoveCategoryRequest) (*CategoryMutationResponse, error) {
	index, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	current, ok := index.Get(id)
	if !ok {
		return nil, shared.ErrNotFound
	}
	if err := index.CanReparent(id, req.ParentID); err != nil {
		return nil, err
	}

	if sameParent(current.ParentID, req.ParentID) {
		return &CategoryMutationResponse{Category: ptr(ToCategoryResponse(&current))}, nil
	}
	if err := current.SetParent(req.ParentID); err != nil {
		return nil, err
	}
	if err := s.categoryRepo.Save(ctx, &current); err != nil {
		return nil, err
	}

	sync, err := s.resync(ctx, index, id)
	if err != nil {
		return nil, err
	}
	return &CategoryMutationResponse{Category: ptr(ToCategoryResponse(&current)), Sync: sync}, nil
}

// Delete removes a childless category together with its product links and
// rebuilds the products that lost it. The child check, the link removal and
// the delete commit together; on any failure nothing changes and nothing is
// rebuilt.
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) (*CategoryMutationResponse, error) {
	if _, err := s.categoryRepo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	gids, err := s.categoryRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrHasChildren) {
			return nil, shared.NewDomainError(shared.CodeHasChildren, "Cannot delete category with children")
		}
		return nil, err
	}

	return &CategoryMutationResponse{Sync: triggerAll(ctx, s.trigger, gids, s.logger)}, nil
}

func (s *CategoryService) index(ctx context.Context) (*taxonomy.CategoryIndex, error) {
	rows, err := s.categoryRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return taxonomy.NewCategoryIndex(rows), nil
}

func (s *CategoryService) ensureSlugFree(ctx context.Context, slug string, exclude *uuid.UUID) error {
	exists, err := s.categoryRepo.ExistsBySlug(ctx, slug, exclude)
	if err != nil {
		return err
	}
	if exists {
		return shared.NewDomainErrorf(shared.CodeAlreadyExists, "Category with slug %q already exists", slug)
	}
	return nil
}

func (s *CategoryService) resyncSubtree(ctx context.Context, id uuid.UUID) (ResyncSummary, error) {
	index, err := s.index(ctx)
	if err != nil {
		return ResyncSummary{}, err
	}
	return s.resync(ctx, index, id)
}

// resync rebuilds every product linked to id or one of its descendants
func (s *CategoryService) resync(ctx context.Context, index *taxonomy.CategoryIndex, id uuid.UUID) (ResyncSummary, error) {
	ids := append([]uuid.UUID{id}, index.Descendants(id)...)
	gids, err := s.linkRepo.ProductGIDsByCategories(ctx, ids)
	if err != nil {
		return ResyncSummary{}, fmt.Errorf("list affected products: %w", err)
	}
	return triggerAll(ctx, s.trigger, gids, s.logger), nil
}

// triggerAll fires one rebuild per product; failures are collected, never returned
func triggerAll(ctx context.Context, trigger linkage.RebuildTrigger, gids []string, logger *zap.Logger) ResyncSummary {
	summary := ResyncSummary{Products: len(gids)}
	for _, gid := range gids {
		status := trigger.Trigger(ctx, gid)
		if status.Queued {
			summary.Queued = true
		}
		if !status.OK {
			summary.Failed = append(summary.Failed, ResyncFailure{ProductGID: gid, Error: status.Error})
		}
	}
	if len(summary.Failed) > 0 {
		logger.Warn("Some projection rebuilds failed after a taxonomy change",
			zap.Int("products", summary.Products),
			zap.Int("failed", len(summary.Failed)),
		)
	}
	return summary
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func ptr[T any](v T) *T { return &v }
