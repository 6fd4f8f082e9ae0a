// Package linkage holds the product link use cases: category links,
// fitment rows and normalized record ingestion.
package linkage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/fitment"
	"github.com/partscatalog/backend/internal/domain/linkage"
	"github.com/partscatalog/backend/internal/domain/shared"
	"github.com/partscatalog/backend/internal/domain/taxonomy"
	"github.com/partscatalog/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Service owns link and unlink mutations. Every successful mutation commits
// locally first and then asks the trigger to rebuild the product projection.
type Service struct {
	categoryRepo taxonomy.CategoryRepository
	linkRepo     linkage.ProductCategoryRepository
	fitmentRepo  fitment.Repository
	trigger      linkage.RebuildTrigger
	gidPrefix    string
	logger       *zap.Logger
}

// NewService creates a new linkage Service
func NewService(
	categoryRepo taxonomy.CategoryRepository,
	linkRepo linkage.ProductCategoryRepository,
	fitmentRepo fitment.Repository,
	trigger linkage.RebuildTrigger,
	gidPrefix string,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gidPrefix == "" {
		gidPrefix = linkage.DefaultProductGIDPrefix
	}
	return &Service{
		categoryRepo: categoryRepo,
		linkRepo:     linkRepo,
		fitmentRepo:  fitmentRepo,
		trigger:      trigger,
		gidPrefix:    gidPrefix,
		logger:       logger,
	}
}

// NormalizeGID applies the configured gid prefix to bare numeric ids
func (s *Service) NormalizeGID(raw string) (string, error) {
	return linkage.NormalizeProductGIDWithPrefix(raw, s.gidPrefix)
}

// Link links categories to a product. With replace the given set becomes
// the exact link set; otherwise only missing links are added. Every
// reference must name an existing category.
func (s *Service) Link(ctx context.Context, rawGID string, req LinkCategoriesRequest) (*linkage.MutationResult, error) {
	gid, err := s.NormalizeGID(rawGID)
	if err != nil {
		return nil, err
	}
	ids, err := s.resolveStrict(ctx, req.Categories)
	if err != nil {
		return nil, err
	}

	result := &linkage.MutationResult{ProductGID: gid}
	if req.Replace {
		result.Added, result.Removed, err = s.linkRepo.Replace(ctx, gid, ids)
	} else {
		result.Added, err = s.linkRepo.Append(ctx, gid, ids)
	}
	if err != nil {
		return nil, fmt.Errorf("link categories: %w", err)
	}

	result.Sync = s.afterCommit(ctx, gid)
	return result, nil
}

// Unlink removes category links. Absent links and unknown slugs are not
// errors; Removed counts only deleted rows.
func (s *Service) Unlink(ctx context.Context, rawGID string, req linkage.UnlinkRequest) (*linkage.MutationResult, error) {
	gid, err := s.NormalizeGID(rawGID)
	if err != nil {
		return nil, err
	}

	result := &linkage.MutationResult{ProductGID: gid}
	switch r := req.(type) {
	case linkage.UnlinkAll:
		result.Removed, err = s.linkRepo.DeleteAll(ctx, gid)
	case linkage.UnlinkMany:
		var ids []uuid.UUID
		if ids, err = s.resolveLenient(ctx, r.Refs); err == nil {
			result.Removed, err = s.linkRepo.DeleteCategories(ctx, gid, ids)
		}
	case linkage.UnlinkOne:
		var ids []uuid.UUID
		if ids, err = s.resolveLenient(ctx, []linkage.CategoryRef{r.Ref}); err == nil {
			result.Removed, err = s.linkRepo.DeleteCategories(ctx, gid, ids)
		}
	default:
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unsupported unlink request")
	}
	if err != nil {
		return nil, fmt.Errorf("unlink categories: %w", err)
	}

	result.Sync = s.afterCommit(ctx, gid)
	return result, nil
}

// ListCategories lists the categories linked to a product in link order
func (s *Service) ListCategories(ctx context.Context, rawGID string) ([]LinkedCategory, error) {
	gid, err := s.NormalizeGID(rawGID)
	if err != nil {
		return nil, err
	}
	ids, err := s.linkRepo.CategoryIDs(ctx, gid)
	if err != nil {
		return nil, err
	}
	rows, err := s.categoryRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]taxonomy.Category, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}
	out := make([]LinkedCategory, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, LinkedCategory{ID: c.ID, Title: c.Title, Slug: c.Slug})
		}
	}
	return out, nil
}

// UpsertFitment creates the fitment row unless the exact tuple already
// exists, in which case the existing row is returned unchanged.
func (s *Service) UpsertFitment(ctx context.Context, rawGID string, req FitmentRequest) (*FitmentMutationResponse, error) {
	gid, err := s.NormalizeGID(rawGID)
	if err != nil {
		return nil, err
	}
	row, created, err := upsertFitment(ctx, s.fitmentRepo, req.Key(gid))
	if err != nil {
		return nil, err
	}
	return &FitmentMutationResponse{
		Fitment: row,
		Created: created,
		Sync:    s.afterCommit(ctx, gid),
	}, nil
}

// DeleteFitment removes a fitment row of the product by id. A row that is
// absent or belongs to another product counts as zero removed.
func (s *Service) DeleteFitment(ctx context.Context, rawGID string, id uuid.UUID) (*linkage.MutationResult, error) {
	gid, err := s.NormalizeGID(rawGID)
	if err != nil {
		return nil, err
	}
	result := &linkage.MutationResult{ProductGID: gid}

	row, err := s.fitmentRepo.FindByID(ctx, id)
	switch {
	case errors.Is(err, shared.ErrNotFound):
	case err != nil:
		return nil, err
	case row.ProductGID == gid:
		removed, err := s.fitmentRepo.Delete(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("delete fitment: %w", err)
		}
		result.Removed = int(removed)
	}

	result.Sync = s.afterCommit(ctx, gid)
	return result, nil
}

// DeleteFitmentByKey removes the fitment row with the given tuple
func (s *Service) DeleteFitmentByKey(ctx context.Context, rawGID string, req FitmentRequest) (*linkage.MutationResult, error) {
	gid, err := s.NormalizeGID(rawGID)
	if err != nil {
		return nil, err
	}
	removed, err := s.fitmentRepo.DeleteByKey(ctx, req.Key(gid).Normalized())
	if err != nil {
		return nil, fmt.Errorf("delete fitment: %w", err)
	}
	return &linkage.MutationResult{
		ProductGID: gid,
		Removed:    int(removed),
		Sync:       s.afterCommit(ctx, gid),
	}, nil
}

// ListFitments lists a product's fitment rows
func (s *Service) ListFitments(ctx context.Context, rawGID string) ([]fitment.ProductFitment, error) {
	gid, err := s.NormalizeGID(rawGID)
	if err != nil {
		return nil, err
	}
	return s.fitmentRepo.FindByProduct(ctx, gid)
}

// Resync triggers a rebuild without changing any link
func (s *Service) Resync(ctx context.Context, rawGID string) (*linkage.MutationResult, error) {
	gid, err := s.NormalizeGID(rawGID)
	if err != nil {
		return nil, err
	}
	return &linkage.MutationResult{ProductGID: gid, Sync: s.afterCommit(ctx, gid)}, nil
}

func (s *Service) afterCommit(ctx context.Context, gid string) linkage.SyncStatus {
	status := s.trigger.Trigger(ctx, gid)
	if !status.OK {
		logger.L(ctx).Warn("Mutation committed but projection sync failed",
			zap.String("product_gid", gid), zap.String("error", status.Error))
	}
	return status
}

// resolveStrict turns refs into ids and fails on the first unknown one
func (s *Service) resolveStrict(ctx context.Context, raw []string) ([]uuid.UUID, error) {
	refs := make([]linkage.CategoryRef, 0, len(raw))
	for _, r := range raw {
		ref, err := linkage.ParseCategoryRef(r)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	ids, missing, err := s.resolve(ctx, refs)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, shared.NewDomainErrorf(shared.CodeInvalidInput, "Unknown categories: %v", missing)
	}
	return ids, nil
}

// resolveLenient drops refs that name no category
func (s *Service) resolveLenient(ctx context.Context, refs []linkage.CategoryRef) ([]uuid.UUID, error) {
	ids, _, err := s.resolve(ctx, refs)
	return ids, err
}

// resolve maps refs to existing category ids in input order and lists the refs that matched nothing
func (s *Service) resolve(ctx context.Context, refs []linkage.CategoryRef) ([]uuid.UUID, []string, error) {
	var byID []uuid.UUID
	var bySlug []string
	for _, ref := range refs {
		if ref.ID != nil {
			byID = append(byID, *ref.ID)
		} else {
			bySlug = append(bySlug, ref.Slug)
		}
	}

	known := make(map[uuid.UUID]struct{})
	slugs := make(map[string]uuid.UUID)
	if len(byID) > 0 {
		rows, err := s.categoryRepo.FindByIDs(ctx, byID)
		if err != nil {
			return nil, nil, err
		}
		for _, c := range rows {
			known[c.ID] = struct{}{}
		}
	}
	if len(bySlug) > 0 {
		rows, err := s.categoryRepo.FindBySlugs(ctx, bySlug)
		if err != nil {
			return nil, nil, err
		}
		for _, c := range rows {
			slugs[c.Slug] = c.ID
		}
	}

	ids := make([]uuid.UUID, 0, len(refs))
	var missing []string
	for _, ref := range refs {
		if ref.ID != nil {
			if _, ok := known[*ref.ID]; ok {
				ids = append(ids, *ref.ID)
				continue
			}
		} else if id, ok := slugs[ref.Slug]; ok {
			ids = append(ids, id)
			continue
		}
		missing = append(missing, ref.String())
	}
	return linkage.DedupeIDs(ids), missing, nil
}

// upsertFitment returns the row with key, creating it when absent
func upsertFitment(ctx context.Context, repo fitment.Repository, key fitment.Key) (*fitment.ProductFitment, bool, error) {
	row, err := fitment.NewProductFitment(key)
	if err != nil {
		return nil, false, err
	}
	existing, err := repo.FindByKey(ctx, row.Key())
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, false, err
	}
	if err := repo.Create(ctx, row); err != nil {
		// Lost a race against an identical insert
		if errors.Is(err, shared.ErrAlreadyExists) {
			existing, findErr := repo.FindByKey(ctx, row.Key())
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("create fitment: %w", err)
	}
	return row, true, nil
}
