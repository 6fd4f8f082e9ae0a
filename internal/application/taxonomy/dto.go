package taxonomy

import (
	"time"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/taxonomy"
)

// CreateCategoryRequest represents a request to create a category
type CreateCategoryRequest struct {
	Title       string     `json:"title" binding:"required,min=1,max=200"`
	Slug        string     `json:"slug" binding:"max=200"`
	ParentID    *uuid.UUID `json:"parent_id"`
	Image       string     `json:"image" binding:"max=500"`
	Description string     `json:"description" binding:"max=5000"`
}

// UpdateCategoryRequest represents a partial update; nil fields are left unchanged
type UpdateCategoryRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=200"`
	Slug        *string `json:"slug" binding:"omitempty,min=1,max=200"`
	Image       *string `json:"image" binding:"omitempty,max=500"`
	Description *string `json:"description" binding:"omitempty,max=5000"`
}

// MoveCategoryRequest reparents a category; a nil parent moves it to the root
type MoveCategoryRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	ParentID    *uuid.UUID `json:"parent_id"`
	Image       string     `json:"image,omitempty"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CategoryTreeNode is a category with nested children
type CategoryTreeNode struct {
	CategoryResponse
	Children []CategoryTreeNode `json:"children"`
}

// ResyncFailure is one product whose projection could not be refreshed
type ResyncFailure struct {
	ProductGID string `json:"product_gid"`
	Error      string `json:"error"`
}

// ResyncSummary reports the rebuilds triggered by a taxonomy change
type ResyncSummary struct {
	Products int             `json:"products"`
	Queued   bool            `json:"queued,omitempty"`
	Failed   []ResyncFailure `json:"failed,omitempty"`
}

// CategoryMutationResponse is returned by mutations that can change projections
type CategoryMutationResponse struct {
	Category *CategoryResponse `json:"category,omitempty"`
	Sync     ResyncSummary     `json:"sync"`
}

// CreateFitTermRequest represents a request to create a fit-term
type CreateFitTermRequest struct {
	Type     string     `json:"type" binding:"required,oneof=MAKE MODEL TRIM CHASSIS"`
	Name     string     `json:"name" binding:"required,min=1,max=100"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// RenameFitTermRequest represents a request to rename a fit-term
type RenameFitTermRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// ResetSelectionRequest asks which picks survive a change of make
type ResetSelectionRequest struct {
	Selection taxonomy.Selection `json:"selection"`
	MakeID    uuid.UUID          `json:"make_id" binding:"required"`
}

// FitTermResponse represents a fit-term in API responses
type FitTermResponse struct {
	ID       uuid.UUID  `json:"id"`
	Type     string     `json:"type"`
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parent_id"`
}

// FitTermTreeNode is a fit-term with nested children
type FitTermTreeNode struct {
	FitTermResponse
	Children []FitTermTreeNode `json:"children"`
}

// RenameFitTermResponse reports how many fitment rows still carry the old name.
// Fitment rows store names, so a rename never rewrites them.
type RenameFitTermResponse struct {
	Term            FitTermResponse `json:"term"`
	PreviousName    string          `json:"previous_name"`
	OrphanedFitment int64           `json:"orphaned_fitment_rows"`
}

// ToCategoryResponse converts a domain Category to a response
func ToCategoryResponse(c *taxonomy.Category) CategoryResponse {
	return CategoryResponse{
		ID:          c.ID,
		Title:       c.Title,
		Slug:        c.Slug,
		ParentID:    c.ParentID,
		Image:       c.Image,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// ToCategoryTree converts a forest to nested responses
func ToCategoryTree(nodes []taxonomy.CategoryNode) []CategoryTreeNode {
	out := make([]CategoryTreeNode, len(nodes))
	for i := range nodes {
		out[i] = CategoryTreeNode{
			CategoryResponse: ToCategoryResponse(&nodes[i].Category),
			Children:         ToCategoryTree(nodes[i].Children),
		}
	}
	return out
}

// ToFitTermResponse converts a domain FitTerm to a response
func ToFitTermResponse(t *taxonomy.FitTerm) FitTermResponse {
	return FitTermResponse{
		ID:       t.ID,
		Type:     t.Type.String(),
		Name:     t.Name,
		ParentID: t.ParentID,
	}
}

// ToFitTermTree converts a forest to nested responses
func ToFitTermTree(nodes []taxonomy.FitTermNode) []FitTermTreeNode {
	out := make([]FitTermTreeNode, len(nodes))
	for i := range nodes {
		out[i] = FitTermTreeNode{
			FitTermResponse: ToFitTermResponse(&nodes[i].Term),
			Children:        ToFitTermTree(nodes[i].Children),
		}
	}
	return out
}
