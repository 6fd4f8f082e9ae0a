// Package projection recomputes per-product projections from the local
// store and pushes them to the external catalog.
package projection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/fitment"
	"github.com/partscatalog/backend/internal/domain/linkage"
	"github.com/partscatalog/backend/internal/domain/projection"
	"github.com/partscatalog/backend/internal/domain/taxonomy"
	"github.com/partscatalog/backend/internal/infrastructure/logger"
	"github.com/partscatalog/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrSnapshotsDisabled is returned by RetryFailed when no snapshot store is configured
var ErrSnapshotsDisabled = errors.New("projection: snapshot store not configured")

// SyncConfig holds the pacing and normalization settings of the synchronizer
type SyncConfig struct {
	// BatchDelay is the pause between two pushes in a backfill
	BatchDelay time.Duration
	// ProductGIDPrefix is prepended to bare numeric ids
	ProductGIDPrefix string
}

// Rebuilder recomputes and pushes one product's projection
type Rebuilder interface {
	Rebuild(ctx context.Context, productGID string) (projection.Projection, error)
}

// Synchronizer implements Rebuilder and the batch operations on top of it
type Synchronizer struct {
	categories taxonomy.CategoryRepository
	links      linkage.ProductCategoryRepository
	fitments   fitment.Repository
	writer     projection.CatalogWriter
	snapshots  projection.SnapshotRepository
	metrics    *telemetry.ProjectionMetrics
	config     SyncConfig
	logger     *zap.Logger
}

// SynchronizerOption configures optional collaborators
type SynchronizerOption func(*Synchronizer)

// WithSnapshots records every push attempt in store
func WithSnapshots(store projection.SnapshotRepository) SynchronizerOption {
	return func(s *Synchronizer) { s.snapshots = store }
}

// WithMetrics counts and times pushes
func WithMetrics(m *telemetry.ProjectionMetrics) SynchronizerOption {
	return func(s *Synchronizer) { s.metrics = m }
}

// NewSynchronizer creates a new Synchronizer
func NewSynchronizer(
	categories taxonomy.CategoryRepository,
	links linkage.ProductCategoryRepository,
	fitments fitment.Repository,
	writer projection.CatalogWriter,
	config SyncConfig,
	log *zap.Logger,
	opts ...SynchronizerOption,
) *Synchronizer {
	if log == nil {
		log = zap.NewNop()
	}
	if config.ProductGIDPrefix == "" {
		config.ProductGIDPrefix = linkage.DefaultProductGIDPrefix
	}
	s := &Synchronizer{
		categories: categories,
		links:      links,
		fitments:   fitments,
		writer:     writer,
		config:     config,
		logger:     log.Named("projection"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compute reads the local store and builds the projection of a product without pushing it
func (s *Synchronizer) Compute(ctx context.Context, productGID string) (projection.Projection, error) {
	ids, err := s.links.CategoryIDs(ctx, productGID)
	if err != nil {
		return projection.Projection{}, fmt.Errorf("load category links: %w", err)
	}
	slugs, err := s.closureSlugs(ctx, ids)
	if err != nil {
		return projection.Projection{}, err
	}
	rows, err := s.fitments.FindByProduct(ctx, productGID)
	if err != nil {
		return projection.Projection{}, fmt.Errorf("load fitments: %w", err)
	}
	return projection.Build(productGID, slugs, rows), nil
}

// closureSlugs loads the linked categories and their ancestors level by
// level, then collects every slug on the way to the roots.
func (s *Synchronizer) closureSlugs(ctx context.Context, linked []uuid.UUID) ([]string, error) {
	if len(linked) == 0 {
		return []string{}, nil
	}
	loaded := make(map[uuid.UUID]taxonomy.Category, len(linked))
	pending := linked
	for depth := 0; len(pending) > 0 && depth <= taxonomy.MaxHierarchyDepth; depth++ {
		rows, err := s.categories.FindByIDs(ctx, pending)
		if err != nil {
			return nil, fmt.Errorf("load categories: %w", err)
		}
		var next []uuid.UUID
		for _, c := range rows {
			loaded[c.ID] = c
		}
		for _, c := range rows {
			if c.ParentID == nil {
				continue
			}
			if _, ok := loaded[*c.ParentID]; !ok {
				next = append(next, *c.ParentID)
			}
		}
		pending = next
	}

	rows := make([]taxonomy.Category, 0, len(loaded))
	for _, c := range loaded {
		rows = append(rows, c)
	}
	index := taxonomy.NewCategoryIndex(rows)

	present := make([]uuid.UUID, 0, len(linked))
	for _, id := range linked {
		if _, ok := index.Get(id); !ok {
			s.logger.Warn("Linked category no longer exists", zap.String("category_id", id.String()))
			continue
		}
		present = append(present, id)
	}
	return index.ClosureSlugs(present)
}

// Rebuild recomputes the projection and pushes it as one full overwrite.
// A push failure is returned as *projection.ExternalWriteError together with
// the projection that was attempted; the local store is left untouched.
func (s *Synchronizer) Rebuild(ctx context.Context, productGID string) (projection.Projection, error) {
	ctx, span := telemetry.StartSpan(ctx, "projection.Rebuild", telemetry.AttrProductGID.String(productGID))
	defer span.End()
	log := logger.L(ctx).With(zap.String("product_gid", productGID))

	p, err := s.Compute(ctx, productGID)
	if err != nil {
		telemetry.RecordError(span, err)
		return projection.Projection{}, fmt.Errorf("compute projection for %s: %w", productGID, err)
	}
	fields, err := p.Metafields()
	if err != nil {
		telemetry.RecordError(span, err)
		return p, fmt.Errorf("encode projection for %s: %w", productGID, err)
	}

	start := time.Now()
	pushErr := s.writer.WriteMetafields(ctx, productGID, fields)
	s.metrics.RecordPush(ctx, pushErr, time.Since(start))
	s.recordSnapshot(ctx, p, pushErr)

	if pushErr != nil {
		telemetry.RecordError(span, pushErr)
		log.Warn("Projection push failed", zap.Error(pushErr))
		return p, &projection.ExternalWriteError{ProductGID: productGID, Err: pushErr}
	}
	log.Debug("Projection pushed",
		zap.Int("category_slugs", len(p.CategorySlugs)),
		zap.Int("ymm_rows", len(p.YMM)),
	)
	return p, nil
}

func (s *Synchronizer) recordSnapshot(ctx context.Context, p projection.Projection, pushErr error) {
	if s.snapshots == nil {
		return
	}
	snap, err := projection.NewSnapshot(p, pushErr)
	if err == nil {
		err = s.snapshots.Record(ctx, snap)
	}
	if err != nil {
		s.logger.Error("Failed to record projection snapshot",
			zap.String("product_gid", p.ProductGID), zap.Error(err))
	}
}

// BackfillFailure is one product that could not be rebuilt
type BackfillFailure struct {
	ProductGID string `json:"product_gid"`
	Error      string `json:"error"`
}

// BackfillReport summarizes a batch run
type BackfillReport struct {
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    []BackfillFailure `json:"failed"`
	// Skipped counts products not attempted because the run was cancelled
	Skipped   int  `json:"skipped"`
	Cancelled bool `json:"cancelled"`
}

// Backfill rebuilds the products one at a time, waiting BatchDelay between
// pushes. A failed product is recorded and the batch moves on; cancelling
// ctx stops the loop and the report covers what ran.
func (s *Synchronizer) Backfill(ctx context.Context, productGIDs []string) BackfillReport {
	report := BackfillReport{Total: len(productGIDs), Failed: []BackfillFailure{}}
	limiter := newPacer(s.config.BatchDelay)

	for i, raw := range productGIDs {
		if err := limiter.Wait(ctx); err != nil {
			report.Cancelled = true
			report.Skipped = len(productGIDs) - i
			break
		}
		gid, err := linkage.NormalizeProductGIDWithPrefix(raw, s.config.ProductGIDPrefix)
		if err == nil {
			_, err = s.Rebuild(ctx, gid)
		} else {
			gid = raw
		}
		if err != nil {
			report.Failed = append(report.Failed, BackfillFailure{ProductGID: gid, Error: err.Error()})
			continue
		}
		report.Succeeded++
	}

	s.logger.Info("Backfill finished",
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", len(report.Failed)),
		zap.Bool("cancelled", report.Cancelled),
	)
	return report
}

// BackfillAll rebuilds every product that has a category link or a fitment row
func (s *Synchronizer) BackfillAll(ctx context.Context) (BackfillReport, error) {
	gids, err := s.KnownProducts(ctx)
	if err != nil {
		return BackfillReport{}, err
	}
	return s.Backfill(ctx, gids), nil
}

// KnownProducts lists every gid present in either link table, sorted
func (s *Synchronizer) KnownProducts(ctx context.Context) ([]string, error) {
	linked, err := s.links.DistinctProductGIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list linked products: %w", err)
	}
	fitted, err := s.fitments.DistinctProductGIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fitted products: %w", err)
	}
	set := make(map[string]struct{}, len(linked)+len(fitted))
	for _, g := range append(linked, fitted...) {
		set[g] = struct{}{}
	}
	gids := make([]string, 0, len(set))
	for g := range set {
		gids = append(gids, g)
	}
	sort.Strings(gids)
	return gids, nil
}

// RetryFailed backfills up to limit products whose last push failed
func (s *Synchronizer) RetryFailed(ctx context.Context, limit int) (BackfillReport, error) {
	if s.snapshots == nil {
		return BackfillReport{}, ErrSnapshotsDisabled
	}
	failed, err := s.snapshots.FindFailed(ctx, limit)
	if err != nil {
		return BackfillReport{}, fmt.Errorf("list failed snapshots: %w", err)
	}
	gids := make([]string, len(failed))
	for i, snap := range failed {
		gids[i] = snap.ProductGID
	}
	return s.Backfill(ctx, gids), nil
}

// newPacer allows one call immediately and then one per delay
func newPacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

var _ Rebuilder = (*Synchronizer)(nil)
