package linkage

import (
	"strings"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/shared"
)

// CategoryRef names a category either by id or by slug
type CategoryRef struct {
	ID   *uuid.UUID
	Slug string
}

// ParseCategoryRef treats a parseable uuid as an id and anything else as a slug
func ParseCategoryRef(raw string) (CategoryRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CategoryRef{}, shared.NewDomainError(shared.CodeInvalidInput, "Category reference cannot be empty")
	}
	if id, err := uuid.Parse(raw); err == nil {
		return CategoryRef{ID: &id}, nil
	}
	return CategoryRef{Slug: raw}, nil
}

// String returns the id or the slug
func (r CategoryRef) String() string {
	if r.ID != nil {
		return r.ID.String()
	}
	return r.Slug
}

// UnlinkRequest is one of UnlinkAll, UnlinkMany or UnlinkOne
type UnlinkRequest interface {
	unlinkRequest()
}

// UnlinkAll removes every category link of the product
type UnlinkAll struct{}

// UnlinkMany removes exactly the listed categories
type UnlinkMany struct {
	Refs []CategoryRef
}

// UnlinkOne removes a single category
type UnlinkOne struct {
	Ref CategoryRef
}

func (UnlinkAll) unlinkRequest()  {}
func (UnlinkMany) unlinkRequest() {}
func (UnlinkOne) unlinkRequest()  {}

// RawUnlink is the loosely shaped body accepted at the HTTP boundary
type RawUnlink struct {
	All        bool     `json:"all"`
	Categories []string `json:"categories"`
	Category   string   `json:"category"`
}

// Resolve picks a variant. When several fields are set, all wins over the
// list and the list wins over the single reference.
func (r RawUnlink) Resolve() (UnlinkRequest, error) {
	if r.All {
		return UnlinkAll{}, nil
	}
	if len(r.Categories) > 0 {
		refs := make([]CategoryRef, 0, len(r.Categories))
		for _, raw := range r.Categories {
			ref, err := ParseCategoryRef(raw)
			if err != nil {
				return nil, err
			}
			refs = append(refs, ref)
		}
		return UnlinkMany{Refs: refs}, nil
	}
	if strings.TrimSpace(r.Category) != "" {
		ref, err := ParseCategoryRef(r.Category)
		if err != nil {
			return nil, err
		}
		return UnlinkOne{Ref: ref}, nil
	}
	return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unlink requires all, categories or category")
}
