package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/partscatalog/backend/internal/application/query"
	"github.com/partscatalog/backend/internal/domain/fitment"
)

// ProductsQuery is the query string of a category listing:
// ?year=2018&make=honda&model=civic&limit=24&hydrate=true
type ProductsQuery struct {
	fitment.Query
	Limit   int  `form:"limit" binding:"omitempty,min=1"`
	Hydrate bool `form:"hydrate"`
}

// QueryHandler serves storefront reads
type QueryHandler struct {
	BaseHandler
	engine *query.Engine
}

// NewQueryHandler creates a new QueryHandler
func NewQueryHandler(engine *query.Engine) *QueryHandler {
	return &QueryHandler{engine: engine}
}

// ProductsInCategory lists products linked to a category that fit the vehicle
// GET /query/categories/:slug/products
func (h *QueryHandler) ProductsInCategory(c *gin.Context) {
	var q ProductsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	ctx := c.Request.Context()
	limit := h.engine.EffectiveLimit(q.Limit)

	if q.Hydrate {
		products, err := h.engine.Search(ctx, c.Param("slug"), q.Query, limit)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.SuccessList(c, products, len(products), limit)
		return
	}

	gids, err := h.engine.ProductsInCategory(ctx, c.Param("slug"), q.Query, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessList(c, gids, len(gids), limit)
}

// Counts returns the number of fitting products per category
// GET /query/counts?slugs=exhaust,brakes&make=honda
func (h *QueryHandler) Counts(c *gin.Context) {
	var filter fitment.Query
	if !h.BindQuery(c, &filter) {
		return
	}
	slugs := splitList(c.QueryArray("slugs"))
	if len(slugs) == 0 {
		h.BadRequest(c, "slugs is required")
		return
	}
	counts, err := h.engine.CountsPerCategory(c.Request.Context(), slugs, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, counts)
}

// splitList accepts both repeated and comma separated values
func splitList(values []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}
