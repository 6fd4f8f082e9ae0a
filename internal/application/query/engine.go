// Package query answers storefront read requests: products in a category
// narrowed by a vehicle, and per-category product counts.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/fitment"
	"github.com/partscatalog/backend/internal/domain/linkage"
	"github.com/partscatalog/backend/internal/domain/projection"
	"github.com/partscatalog/backend/internal/domain/shared"
	"github.com/partscatalog/backend/internal/domain/taxonomy"
	"github.com/partscatalog/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Config bounds result sizes
type Config struct {
	// OverFetchMultiplier scales the candidate window so filtering still
	// leaves enough results to fill a page
	OverFetchMultiplier int
	DefaultLimit        int
	MaxLimit            int
}

// DefaultConfig returns the default query configuration
func DefaultConfig() Config {
	return Config{
		OverFetchMultiplier: 3,
		DefaultLimit:        24,
		MaxLimit:            250,
	}
}

// Engine is stateless; every call reads the store
type Engine struct {
	categories taxonomy.CategoryRepository
	links      linkage.ProductCategoryRepository
	fitments   fitment.Repository
	reader     projection.CatalogReader
	config     Config
	logger     *zap.Logger
}

// NewEngine creates a new Engine. Zero config values fall back to defaults.
func NewEngine(
	categories taxonomy.CategoryRepository,
	links linkage.ProductCategoryRepository,
	fitments fitment.Repository,
	reader projection.CatalogReader,
	config Config,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if config.OverFetchMultiplier <= 0 {
		config.OverFetchMultiplier = defaults.OverFetchMultiplier
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = defaults.DefaultLimit
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = defaults.MaxLimit
	}
	return &Engine{
		categories: categories,
		links:      links,
		fitments:   fitments,
		reader:     reader,
		config:     config,
		logger:     logger.Named("query"),
	}
}

// EffectiveLimit returns the page size a request for limit results gets
func (e *Engine) EffectiveLimit(limit int) int {
	return e.clampLimit(limit)
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		return e.config.DefaultLimit
	}
	if limit > e.config.MaxLimit {
		return e.config.MaxLimit
	}
	return limit
}

// ProductsInCategory lists up to limit product gids linked directly to the
// category, oldest link first. With a non-empty filter only products with
// at least one matching fitment row are kept. An unknown slug yields an
// empty list.
func (e *Engine) ProductsInCategory(ctx context.Context, slug string, filter fitment.Query, limit int) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "query.ProductsInCategory",
		telemetry.AttrCategorySlug.String(slug))
	defer span.End()

	limit = e.clampLimit(limit)
	category, err := e.categories.FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return []string{}, nil
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	window := limit
	if !filter.IsEmpty() {
		window = limit * e.config.OverFetchMultiplier
	}
	gids, err := e.links.ProductGIDsByCategory(ctx, category.ID, window)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("list linked products: %w", err)
	}

	if !filter.IsEmpty() && len(gids) > 0 {
		rows, err := e.fitments.FindByProducts(ctx, gids)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("load fitments: %w", err)
		}
		gids = fitment.FilterProducts(gids, rows, filter)
	}

	if len(gids) > limit {
		gids = gids[:limit]
	}
	span.SetAttributes(attribute.Int("query.results", len(gids)))
	return gids, nil
}

// CountsPerCategory counts distinct products linked to each slug, narrowed
// by the filter when it constrains anything. Unknown slugs map to 0.
func (e *Engine) CountsPerCategory(ctx context.Context, slugs []string, filter fitment.Query) (map[string]int, error) {
	ctx, span := telemetry.StartSpan(ctx, "query.CountsPerCategory",
		attribute.Int("category.count", len(slugs)))
	defer span.End()

	counts := make(map[string]int, len(slugs))
	for _, slug := range slugs {
		counts[slug] = 0
	}
	if len(slugs) == 0 {
		return counts, nil
	}

	rows, err := e.categories.FindBySlugs(ctx, slugs)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(rows) == 0 {
		return counts, nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, c := range rows {
		ids = append(ids, c.ID)
	}

	byID, err := e.links.CountDistinctProducts(ctx, ids, filter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("count products: %w", err)
	}
	for _, c := range rows {
		counts[c.Slug] = byID[c.ID]
	}
	return counts, nil
}

// HydrateProducts reads the catalog summary of each gid in order. Products
// that cannot be read are logged and left out.
func (e *Engine) HydrateProducts(ctx context.Context, gids []string) []projection.ProductSummary {
	out := make([]projection.ProductSummary, 0, len(gids))
	if e.reader == nil {
		for _, gid := range gids {
			out = append(out, projection.ProductSummary{GID: gid})
		}
		return out
	}
	for _, gid := range gids {
		if ctx.Err() != nil {
			break
		}
		p, err := e.reader.ReadProduct(ctx, gid)
		if err != nil {
			e.logger.Warn("Skipping product that could not be read from the catalog",
				zap.String("product_gid", gid), zap.Error(err))
			continue
		}
		out = append(out, *p)
	}
	return out
}

// Search lists products in a category and hydrates them from the catalog
func (e *Engine) Search(ctx context.Context, slug string, filter fitment.Query, limit int) ([]projection.ProductSummary, error) {
	gids, err := e.ProductsInCategory(ctx, slug, filter, limit)
	if err != nil {
		return nil, err
	}
	return e.HydrateProducts(ctx, gids), nil
}
