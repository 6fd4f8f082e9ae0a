package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	projectionapp "github.com/partscatalog/backend/internal/application/projection"
	"github.com/partscatalog/backend/internal/interfaces/http/dto"
)

const defaultRetryLimit = 100

// BackfillRequest selects the products to rebuild. All wins over the list.
type BackfillRequest struct {
	ProductGIDs []string `json:"product_gids" binding:"max=10000"`
	All         bool     `json:"all"`
}

// ProjectionHandler runs admin rebuilds of the published projection
type ProjectionHandler struct {
	BaseHandler
	synchronizer *projectionapp.Synchronizer
	worker       *projectionapp.QueueWorker
}

// NewProjectionHandler creates a new ProjectionHandler. worker is nil when
// rebuilds run write-through.
func NewProjectionHandler(synchronizer *projectionapp.Synchronizer, worker *projectionapp.QueueWorker) *ProjectionHandler {
	return &ProjectionHandler{
		synchronizer: synchronizer,
		worker:       worker,
	}
}

// Backfill rebuilds the listed products, or every known product with all
// POST /projection/backfill
func (h *ProjectionHandler) Backfill(c *gin.Context) {
	var req BackfillRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	if req.All {
		report, err := h.synchronizer.BackfillAll(ctx)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, report)
		return
	}
	if len(req.ProductGIDs) == 0 {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "Either product_gids or all is required")
		return
	}
	h.Success(c, h.synchronizer.Backfill(ctx, req.ProductGIDs))
}

// RetryFailed rebuilds products whose last push failed
// POST /projection/retry-failed?limit=100
func (h *ProjectionHandler) RetryFailed(c *gin.Context) {
	limit := defaultRetryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}
	report, err := h.synchronizer.RetryFailed(c.Request.Context(), limit)
	if errors.Is(err, projectionapp.ErrSnapshotsDisabled) {
		h.Error(c, http.StatusConflict, dto.ErrCodeNotConfigured, "Snapshot tracking is disabled")
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// Drain rebuilds everything currently waiting in the rebuild queue
// POST /projection/drain
func (h *ProjectionHandler) Drain(c *gin.Context) {
	if h.worker == nil {
		h.Error(c, http.StatusConflict, dto.ErrCodeNotConfigured, "Rebuilds run write-through; there is no queue to drain")
		return
	}
	report, err := h.worker.Drain(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}
