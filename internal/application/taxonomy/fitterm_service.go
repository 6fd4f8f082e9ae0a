package taxonomy

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/fitment"
	"github.com/partscatalog/backend/internal/domain/shared"
	"github.com/partscatalog/backend/internal/domain/taxonomy"
	"go.uber.org/zap"
)

// fitTermDimension maps a term type to the fitment column holding its name
var fitTermDimension = map[taxonomy.FitTermType]fitment.Dimension{
	taxonomy.FitTermMake:    fitment.DimensionMake,
	taxonomy.FitTermModel:   fitment.DimensionModel,
	taxonomy.FitTermTrim:    fitment.DimensionTrim,
	taxonomy.FitTermChassis: fitment.DimensionChassis,
}

// FitTermService handles fit-term operations
type FitTermService struct {
	termRepo    taxonomy.FitTermRepository
	fitmentRepo fitment.Repository
	logger      *zap.Logger
}

// NewFitTermService creates a new FitTermService
func NewFitTermService(termRepo taxonomy.FitTermRepository, fitmentRepo fitment.Repository, logger *zap.Logger) *FitTermService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FitTermService{
		termRepo:    termRepo,
		fitmentRepo: fitmentRepo,
		logger:      logger,
	}
}

// Create validates the parent-type rule and creates the term. Nothing is
// written when validation fails.
func (s *FitTermService) Create(ctx context.Context, req CreateFitTermRequest) (*FitTermResponse, error) {
	termType, err := taxonomy.ParseFitTermType(req.Type)
	if err != nil {
		return nil, err
	}

	var parent *taxonomy.FitTerm
	if req.ParentID != nil {
		parent, err = s.termRepo.FindByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError(shared.CodeInvalidParent, "Parent fit-term not found")
			}
			return nil, err
		}
	}

	term, err := taxonomy.NewFitTerm(termType, req.Name, parent)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, term.Type, term.Name, term.ParentID, nil); err != nil {
		return nil, err
	}
	if err := s.termRepo.Save(ctx, term); err != nil {
		return nil, err
	}

	resp := ToFitTermResponse(term)
	return &resp, nil
}

// Get retrieves a term by id
func (s *FitTermService) Get(ctx context.Context, id uuid.UUID) (*FitTermResponse, error) {
	term, err := s.termRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToFitTermResponse(term)
	return &resp, nil
}

// Delete removes a childless term
func (s *FitTermService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.termRepo.FindByID(ctx, id); err != nil {
		return err
	}
	children, err := s.termRepo.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return shared.NewDomainError(shared.CodeHasChildren, "Cannot delete fit-term with children")
	}
	return s.termRepo.Delete(ctx, id)
}

// Rename changes the display name of a term. Fitment rows keep the old
// string; the response reports how many still reference it under the same
// ancestors, so renaming Honda's Civic does not count Civic rows of another make.
func (s *FitTermService) Rename(ctx context.Context, id uuid.UUID, req RenameFitTermRequest) (*RenameFitTermResponse, error) {
	term, err := s.termRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := term.Name
	if err := term.Rename(req.Name); err != nil {
		return nil, err
	}
	if term.Name == previous {
		return &RenameFitTermResponse{Term: ToFitTermResponse(term), PreviousName: previous}, nil
	}
	if err := s.ensureUnique(ctx, term.Type, term.Name, term.ParentID, &term.ID); err != nil {
		return nil, err
	}
	if err := s.termRepo.Save(ctx, term); err != nil {
		return nil, err
	}

	scope, err := s.ancestorScope(ctx, term)
	if err != nil {
		return nil, err
	}
	orphaned, err := s.fitmentRepo.CountByName(ctx, fitTermDimension[term.Type], previous, scope)
	if err != nil {
		return nil, err
	}
	if orphaned > 0 {
		s.logger.Warn("Fit-term renamed while fitment rows still use the old name",
			zap.String("term_id", term.ID.String()),
			zap.String("previous_name", previous),
			zap.String("name", term.Name),
			zap.Int64("fitment_rows", orphaned),
		)
	}
	return &RenameFitTermResponse{
		Term:            ToFitTermResponse(term),
		PreviousName:    previous,
		OrphanedFitment: orphaned,
	}, nil
}

// ancestorScope collects the names of the term's ancestors as a query
func (s *FitTermService) ancestorScope(ctx context.Context, term *taxonomy.FitTerm) (fitment.Query, error) {
	var q fitment.Query
	for parentID := term.ParentID; parentID != nil; {
		parent, err := s.termRepo.FindByID(ctx, *parentID)
		if err != nil {
			return fitment.Query{}, err
		}
		switch parent.Type {
		case taxonomy.FitTermMake:
			q.Make = parent.Name
		case taxonomy.FitTermModel:
			q.Model = parent.Name
		case taxonomy.FitTermTrim:
			q.Trim = parent.Name
		case taxonomy.FitTermChassis:
			q.Chassis = parent.Name
		}
		parentID = parent.ParentID
	}
	return q, nil
}

// Tree returns the fit-term forest, optionally restricted to roots of one type
func (s *FitTermService) Tree(ctx context.Context, termType *taxonomy.FitTermType) ([]FitTermTreeNode, error) {
	index, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	return ToFitTermTree(index.Tree(termType)), nil
}

// IsDescendantOf reports whether nodeID sits anywhere beneath ancestorID
func (s *FitTermService) IsDescendantOf(ctx context.Context, nodeID, ancestorID uuid.UUID) (bool, error) {
	index, err := s.index(ctx)
	if err != nil {
		return false, err
	}
	if _, ok := index.Get(nodeID); !ok {
		return false, shared.ErrNotFound
	}
	return index.IsDescendantOf(nodeID, ancestorID)
}

// ResetSelection switches a selector to a new make, clearing picks not beneath it
func (s *FitTermService) ResetSelection(ctx context.Context, req ResetSelectionRequest) (*taxonomy.Selection, error) {
	index, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	sel, err := index.ResetSelection(req.Selection, req.MakeID)
	if err != nil {
		return nil, err
	}
	return &sel, nil
}

func (s *FitTermService) index(ctx context.Context) (*taxonomy.FitTermIndex, error) {
	rows, err := s.termRepo.FindAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	return taxonomy.NewFitTermIndex(rows), nil
}

func (s *FitTermService) ensureUnique(ctx context.Context, termType taxonomy.FitTermType, name string, parentID, exclude *uuid.UUID) error {
	existing, err := s.termRepo.FindByKey(ctx, termType, name, parentID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if exclude != nil && existing.ID == *exclude {
		return nil
	}
	return shared.NewDomainErrorf(shared.CodeAlreadyExists, "%s %q already exists under this parent", termType, name)
}
