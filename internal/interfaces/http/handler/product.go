package handler

import (
	"github.com/gin-gonic/gin"
	linkageapp "github.com/partscatalog/backend/internal/application/linkage"
	projectionapp "github.com/partscatalog/backend/internal/application/projection"
	"github.com/partscatalog/backend/internal/domain/linkage"
)

// ProductHandler handles category links, fitment rows and projection
// previews of one product. The :gid param is either a full product gid
// (URL-escaped) or a bare numeric id.
type ProductHandler struct {
	BaseHandler
	linkService  *linkageapp.Service
	synchronizer *projectionapp.Synchronizer
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(linkService *linkageapp.Service, synchronizer *projectionapp.Synchronizer) *ProductHandler {
	return &ProductHandler{
		linkService:  linkService,
		synchronizer: synchronizer,
	}
}

// ListCategories lists the categories linked to a product
// GET /products/:gid/categories
func (h *ProductHandler) ListCategories(c *gin.Context) {
	categories, err := h.linkService.ListCategories(c.Request.Context(), c.Param("gid"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, categories, len(categories), 0)
}

// Link links categories to a product
// POST /products/:gid/categories
func (h *ProductHandler) Link(c *gin.Context) {
	var req linkageapp.LinkCategoriesRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.linkService.Link(c.Request.Context(), c.Param("gid"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Unlink removes all, several or one category link
// DELETE /products/:gid/categories
func (h *ProductHandler) Unlink(c *gin.Context) {
	var raw linkage.RawUnlink
	if !h.BindJSON(c, &raw) {
		return
	}
	req, err := raw.Resolve()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	result, err := h.linkService.Unlink(c.Request.Context(), c.Param("gid"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListFitments lists a product's fitment rows
// GET /products/:gid/fitments
func (h *ProductHandler) ListFitments(c *gin.Context) {
	rows, err := h.linkService.ListFitments(c.Request.Context(), c.Param("gid"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, rows, len(rows), 0)
}

// UpsertFitment creates a fitment row unless the tuple already exists
// POST /products/:gid/fitments
func (h *ProductHandler) UpsertFitment(c *gin.Context) {
	var req linkageapp.FitmentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.linkService.UpsertFitment(c.Request.Context(), c.Param("gid"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if resp.Created {
		h.Created(c, resp)
		return
	}
	h.Success(c, resp)
}

// DeleteFitment removes a fitment row by id
// DELETE /products/:gid/fitments/:id
func (h *ProductHandler) DeleteFitment(c *gin.Context) {
	id, ok := h.ParamUUID(c, "id")
	if !ok {
		return
	}
	result, err := h.linkService.DeleteFitment(c.Request.Context(), c.Param("gid"), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// DeleteFitmentByKey removes the fitment row matching the body tuple
// DELETE /products/:gid/fitments
func (h *ProductHandler) DeleteFitmentByKey(c *gin.Context) {
	var req linkageapp.FitmentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.linkService.DeleteFitmentByKey(c.Request.Context(), c.Param("gid"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Preview computes the projection from local state without pushing it
// GET /products/:gid/projection
func (h *ProductHandler) Preview(c *gin.Context) {
	gid, err := h.linkService.NormalizeGID(c.Param("gid"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	p, err := h.synchronizer.Compute(c.Request.Context(), gid)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Resync rebuilds and pushes the projection without changing any link
// POST /products/:gid/projection/sync
func (h *ProductHandler) Resync(c *gin.Context) {
	result, err := h.linkService.Resync(c.Request.Context(), c.Param("gid"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
