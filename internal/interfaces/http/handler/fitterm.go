package handler

import (
	"github.com/gin-gonic/gin"
	taxonomyapp "github.com/partscatalog/backend/internal/application/taxonomy"
	"github.com/partscatalog/backend/internal/domain/taxonomy"
)

// FitTermHandler handles the make/model/trim/chassis hierarchy
type FitTermHandler struct {
	BaseHandler
	fitTermService *taxonomyapp.FitTermService
}

// NewFitTermHandler creates a new FitTermHandler
func NewFitTermHandler(fitTermService *taxonomyapp.FitTermService) *FitTermHandler {
	return &FitTermHandler{fitTermService: fitTermService}
}

// Tree returns the fit-term forest. ?type=MAKE restricts the roots.
// GET /taxonomy/fit-terms
func (h *FitTermHandler) Tree(c *gin.Context) {
	var termType *taxonomy.FitTermType
	if raw := c.Query("type"); raw != "" {
		t, err := taxonomy.ParseFitTermType(raw)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		termType = &t
	}
	tree, err := h.fitTermService.Tree(c.Request.Context(), termType)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tree)
}

// Create creates a fit-term under a parent of an allowed type
// POST /taxonomy/fit-terms
func (h *FitTermHandler) Create(c *gin.Context) {
	var req taxonomyapp.CreateFitTermRequest
	if !h.BindJSON(c, &req) {
		return
	}
	term, err := h.fitTermService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, term)
}

// GetByID returns one fit-term
// GET /taxonomy/fit-terms/:id
func (h *FitTermHandler) GetByID(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	term, err := h.fitTermService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, term)
}

// Rename renames a fit-term and reports fitment rows still on the old name
// PATCH /taxonomy/fit-terms/:id
func (h *FitTermHandler) Rename(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req taxonomyapp.RenameFitTermRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.fitTermService.Rename(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete removes a childless fit-term
// DELETE /taxonomy/fit-terms/:id
func (h *FitTermHandler) Delete(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	if err := h.fitTermService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// IsDescendantOf answers whether :id sits beneath :ancestorId
// GET /taxonomy/fit-terms/:id/descendant-of/:ancestorId
func (h *FitTermHandler) IsDescendantOf(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	ancestorID, ok := h.ParamUUID(c, "ancestorId")
	if !ok {
		return
	}
	result, err := h.fitTermService.IsDescendantOf(c.Request.Context(), id, ancestorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"descendant": result})
}

// ResetSelection recomputes a selector after the make changes
// POST /taxonomy/fit-terms/reset-selection
func (h *FitTermHandler) ResetSelection(c *gin.Context) {
	var req taxonomyapp.ResetSelectionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	sel, err := h.fitTermService.ResetSelection(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sel)
}
