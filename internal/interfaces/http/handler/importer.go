package handler

import (
	"github.com/gin-gonic/gin"
	linkageapp "github.com/partscatalog/backend/internal/application/linkage"
)

// ImportRequest carries a batch of normalized distributor records
type ImportRequest struct {
	Records []linkageapp.ImportRecord `json:"records" binding:"required,min=1,max=5000"`
}

// ImportHandler ingests distributor records
type ImportHandler struct {
	BaseHandler
	importer *linkageapp.Importer
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(importer *linkageapp.Importer) *ImportHandler {
	return &ImportHandler{importer: importer}
}

// Import upserts the records and links them. Per-record failures are part
// of the report; the request itself only fails on a malformed body.
// POST /import/records
func (h *ImportHandler) Import(c *gin.Context) {
	var req ImportRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.Success(c, h.importer.Import(c.Request.Context(), req.Records))
}
