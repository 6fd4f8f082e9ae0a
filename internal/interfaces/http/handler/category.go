package handler

import (
	"github.com/gin-gonic/gin"
	taxonomyapp "github.com/partscatalog/backend/internal/application/taxonomy"
)

// CategoryHandler handles category tree endpoints
type CategoryHandler struct {
	BaseHandler
	categoryService *taxonomyapp.CategoryService
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService *taxonomyapp.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// Tree returns the whole category forest
// GET /taxonomy/categories
func (h *CategoryHandler) Tree(c *gin.Context) {
	tree, err := h.categoryService.Tree(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tree)
}

// Create creates a category
// POST /taxonomy/categories
func (h *CategoryHandler) Create(c *gin.Context) {
	var req taxonomyapp.CreateCategoryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	category, err := h.categoryService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, category)
}

// GetByID returns one category
// GET /taxonomy/categories/:id
func (h *CategoryHandler) GetByID(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	category, err := h.categoryService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// GetBySlug returns one category by slug
// GET /taxonomy/categories/slug/:slug
func (h *CategoryHandler) GetBySlug(c *gin.Context) {
	category, err := h.categoryService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, category)
}

// AncestorSlugs returns the slug of the category and of every ancestor
// GET /taxonomy/categories/:id/ancestor-slugs
func (h *CategoryHandler) AncestorSlugs(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	slugs, err := h.categoryService.AncestorSlugs(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, slugs, len(slugs), 0)
}

// Update changes descriptive fields or the slug
// PATCH /taxonomy/categories/:id
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req taxonomyapp.UpdateCategoryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.categoryService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Move reparents a category
// POST /taxonomy/categories/:id/move
func (h *CategoryHandler) Move(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	var req taxonomyapp.MoveCategoryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.categoryService.Move(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete removes a childless category
// DELETE /taxonomy/categories/:id
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.categoryService.Delete(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
