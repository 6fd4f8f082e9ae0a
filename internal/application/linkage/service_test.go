package linkage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/application/projection"
	"github.com/partscatalog/backend/internal/domain/linkage"
	"github.com/partscatalog/backend/internal/domain/shared"
	"github.com/partscatalog/backend/internal/domain/taxonomy"
	"github.com/partscatalog/backend/internal/infrastructure/persistence"
	"github.com/partscatalog/backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	gidP = "gid://shopify/Product/100"
	gidQ = "gid://shopify/Product/200"
)

func intPtr(v int) *int       { return &v }
func strPtr(s string) *string { return &s }

type env struct {
	service    *Service
	importer   *Importer
	categories *persistence.GormCategoryRepository
	links      *persistence.GormProductCategoryRepository
	sources    *persistence.GormSourceProductRepository
	catalog    *testutil.FakeCatalog
}

// newEnv wires the service against sqlite with a write-through synchronizer
// pushing into a fake catalog.
func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewTestDB(t)
	e := &env{
		categories: persistence.NewGormCategoryRepository(db),
		links:      persistence.NewGormProductCategoryRepository(db),
		sources:    persistence.NewGormSourceProductRepository(db),
		catalog:    testutil.NewFakeCatalog(),
	}
	fitments := persistence.NewGormFitmentRepository(db)
	sync := projection.NewSynchronizer(e.categories, e.links, fitments, e.catalog, projection.SyncConfig{}, nil)
	trigger := projection.NewWriteThroughTrigger(sync)
	e.service = NewService(e.categories, e.links, fitments, trigger, "", nil)
	e.importer = NewImporter(e.sources, e.categories, trigger, ImporterConfig{}, nil)
	return e
}

func (e *env) category(t *testing.T, title string, parentID *uuid.UUID) *taxonomy.Category {
	t.Helper()
	c, err := taxonomy.NewCategory(title, "", parentID)
	require.NoError(t, err)
	require.NoError(t, e.categories.Save(context.Background(), c))
	return c
}

func TestService_Link(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	exhaust := e.category(t, "Exhaust", nil)
	downpipes := e.category(t, "Downpipes", &exhaust.ID)
	intake := e.category(t, "Intake", nil)

	t.Run("replace twice is idempotent", func(t *testing.T) {
		req := LinkCategoriesRequest{Categories: []string{exhaust.ID.String(), "downpipes", "exhaust"}, Replace: true}
		first, err := e.service.Link(ctx, "100", req)
		require.NoError(t, err)
		assert.Equal(t, gidP, first.ProductGID)
		assert.Equal(t, 2, first.Added, "duplicates collapse")
		assert.True(t, first.Sync.OK)

		second, err := e.service.Link(ctx, gidP, req)
		require.NoError(t, err)
		assert.Equal(t, 0, second.Added)
		assert.Equal(t, 0, second.Removed)

		ids, err := e.links.CategoryIDs(ctx, gidP)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{exhaust.ID, downpipes.ID}, ids)
	})

	t.Run("append adds only missing", func(t *testing.T) {
		res, err := e.service.Link(ctx, gidP, LinkCategoriesRequest{Categories: []string{"intake", "exhaust"}})
		require.NoError(t, err)
		assert.Equal(t, 1, res.Added)
		assert.Equal(t, 0, res.Removed)
	})

	t.Run("replace reports removals", func(t *testing.T) {
		res, err := e.service.Link(ctx, gidP, LinkCategoriesRequest{Categories: []string{intake.ID.String()}, Replace: true})
		require.NoError(t, err)
		assert.Equal(t, 0, res.Added)
		assert.Equal(t, 2, res.Removed)
	})

	t.Run("unknown category is rejected before any write", func(t *testing.T) {
		_, err := e.service.Link(ctx, gidP, LinkCategoriesRequest{Categories: []string{"nope"}, Replace: true})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)

		ids, err := e.links.CategoryIDs(ctx, gidP)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{intake.ID}, ids)
	})

	t.Run("invalid gid", func(t *testing.T) {
		_, err := e.service.Link(ctx, "not-a-gid", LinkCategoriesRequest{})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.CodeInvalidProductGID, de.Code)
	})
}

func TestService_LinkPushesClosure(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	exhaust := e.category(t, "Exhaust", nil)
	downpipes := e.category(t, "Downpipes", &exhaust.ID)

	_, err := e.service.Link(ctx, gidP, LinkCategoriesRequest{Categories: []string{downpipes.ID.String()}})
	require.NoError(t, err)

	push, ok := e.catalog.LastPush(gidP)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"downpipes", "exhaust"}, push.CategorySlugs())
}

func TestService_PushFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	brakes := e.category(t, "Brakes", nil)
	e.catalog.FailWrites("*", errors.New("catalogapi: rate limited"))

	res, err := e.service.Link(ctx, gidP, LinkCategoriesRequest{Categories: []string{brakes.Slug}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
	assert.False(t, res.Sync.OK)
	assert.Contains(t, res.Sync.Error, "rate limited")

	ids, err := e.links.CategoryIDs(ctx, gidP)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{brakes.ID}, ids, "local commit stays")
}

func TestService_Unlink(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := e.category(t, "Alpha", nil)
	b := e.category(t, "Bravo", nil)
	c := e.category(t, "Charlie", nil)
	_, err := e.service.Link(ctx, gidP, LinkCategoriesRequest{Categories: []string{"alpha", "bravo", "charlie"}})
	require.NoError(t, err)

	t.Run("never linked is success with zero removed", func(t *testing.T) {
		res, err := e.service.Unlink(ctx, gidQ, linkage.UnlinkOne{Ref: linkage.CategoryRef{ID: &a.ID}})
		require.NoError(t, err)
		assert.Equal(t, 0, res.Removed)

		res, err = e.service.Unlink(ctx, gidP, linkage.UnlinkOne{Ref: linkage.CategoryRef{Slug: "unknown-slug"}})
		require.NoError(t, err)
		assert.Equal(t, 0, res.Removed)
	})

	t.Run("list removes exactly those", func(t *testing.T) {
		res, err := e.service.Unlink(ctx, gidP, linkage.UnlinkMany{Refs: []linkage.CategoryRef{{ID: &b.ID}, {Slug: "charlie"}, {Slug: "missing"}}})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Removed)

		ids, err := e.links.CategoryIDs(ctx, gidP)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{a.ID}, ids)
	})

	t.Run("all wins when several are given", func(t *testing.T) {
		_, err := e.service.Link(ctx, gidP, LinkCategoriesRequest{Categories: []string{c.Slug}})
		require.NoError(t, err)

		req, err := linkage.RawUnlink{All: true, Category: "alpha"}.Resolve()
		require.NoError(t, err)
		res, err := e.service.Unlink(ctx, gidP, req)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Removed)

		res, err = e.service.Unlink(ctx, gidP, req)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Removed)
	})
}

func TestService_Fitments(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	civic := FitmentRequest{Make: "Honda", Model: "Civic", YearFrom: intPtr(2016), YearTo: intPtr(2020)}

	first, err := e.service.UpsertFitment(ctx, gidP, civic)
	require.NoError(t, err)
	assert.True(t, first.Created)

	again, err := e.service.UpsertFitment(ctx, gidP, FitmentRequest{Make: " Honda ", Model: "Civic", YearFrom: intPtr(2016), YearTo: intPtr(2020), Trim: strPtr("  ")})
	require.NoError(t, err)
	assert.False(t, again.Created, "same tuple is a no-op")
	assert.Equal(t, first.Fitment.ID, again.Fitment.ID)

	camry, err := e.service.UpsertFitment(ctx, gidP, FitmentRequest{Make: "Toyota", Model: "Camry"})
	require.NoError(t, err)

	push, ok := e.catalog.LastPush(gidP)
	require.True(t, ok)
	assert.Len(t, push.YMM(), 2)

	t.Run("invalid year range", func(t *testing.T) {
		_, err := e.service.UpsertFitment(ctx, gidP, FitmentRequest{Make: "Honda", Model: "Civic", YearFrom: intPtr(2020), YearTo: intPtr(2016)})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("delete by id scoped to product", func(t *testing.T) {
		res, err := e.service.DeleteFitment(ctx, gidQ, camry.Fitment.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Removed)

		res, err = e.service.DeleteFitment(ctx, gidP, camry.Fitment.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Removed)

		res, err = e.service.DeleteFitment(ctx, gidP, camry.Fitment.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Removed)
	})

	t.Run("delete by key", func(t *testing.T) {
		res, err := e.service.DeleteFitmentByKey(ctx, gidP, civic)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Removed)

		res, err = e.service.DeleteFitmentByKey(ctx, gidP, civic)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Removed)

		rows, err := e.service.ListFitments(ctx, gidP)
		require.NoError(t, err)
		assert.Empty(t, rows)

		push, ok := e.catalog.LastPush(gidP)
		require.True(t, ok)
		assert.Empty(t, push.YMM())
	})
}

func TestService_ListCategories(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.category(t, "Brakes", nil)
	e.category(t, "Wheels", nil)
	_, err := e.service.Link(ctx, gidP, LinkCategoriesRequest{Categories: []string{"wheels", "brakes"}})
	require.NoError(t, err)

	got, err := e.service.ListCategories(ctx, gidP)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "wheels", got[0].Slug)
	assert.Equal(t, "brakes", got[1].Slug)
}

func TestImporter_Import(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	exhaust := e.category(t, "Exhaust", nil)
	e.category(t, "Downpipes", &exhaust.ID)

	report := e.importer.Import(ctx, []ImportRecord{
		{
			SKU: "DP-100", ProductGID: "100", Title: "Catted downpipe",
			Price: decimal.RequireFromString("349.00"), CategoryPath: "exhaust > Downpipes",
			Make: "Honda", Model: "Civic", YearFrom: intPtr(2017), YearTo: intPtr(2021),
		},
		{SKU: "DP-200", Title: "Unmatched product", CategoryPath: "Exhaust"},
		{SKU: "", Title: "missing sku"},
		{SKU: "DP-300", ProductGID: "300", Title: "Bad path", CategoryPath: "Exhaust > Mufflers"},
		{SKU: "DP-400", Title: "Half a vehicle", Make: "Honda"},
	})

	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 1, report.Linked)
	require.Len(t, report.Failed, 3)
	assert.Equal(t, 2, report.Failed[0].Index)
	assert.Contains(t, report.Failed[0].Error, "sku")
	assert.Contains(t, report.Failed[1].Error, "Mufflers")
	assert.Contains(t, report.Failed[2].Error, "model")

	push, ok := e.catalog.LastPush(gidP)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"downpipes", "exhaust"}, push.CategorySlugs())
	require.Len(t, push.YMM(), 1)
	assert.Equal(t, 2017, *push.YMM()[0].YearFrom)
	assert.Equal(t, 1, e.catalog.PushCount(), "one rebuild per product")

	t.Run("re-import keeps the known gid", func(t *testing.T) {
		report := e.importer.Import(ctx, []ImportRecord{{SKU: "DP-100", Title: "Catted downpipe v2", CategoryPath: "Exhaust"}})
		assert.Equal(t, 1, report.Linked)

		stored, err := e.sources.FindBySKU(ctx, "DP-100")
		require.NoError(t, err)
		require.NotNil(t, stored.ProductGID)
		assert.Equal(t, gidP, *stored.ProductGID)
		assert.Equal(t, "Catted downpipe v2", stored.Title)
	})
}

func TestImporter_InvalidFitmentStoresNothing(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.category(t, "Exhaust", nil)

	report := e.importer.Import(ctx, []ImportRecord{{
		SKU: "EX-1", ProductGID: gidQ, Title: "Backwards years", CategoryPath: "Exhaust",
		Make: "Honda", Model: "Civic", YearFrom: intPtr(2021), YearTo: intPtr(2017),
	}})

	assert.Equal(t, 0, report.Imported)
	require.Len(t, report.Failed, 1)
	assert.Contains(t, report.Failed[0].Error, "yearFrom")

	ids, err := e.links.CategoryIDs(ctx, gidQ)
	require.NoError(t, err)
	assert.Empty(t, ids, "no link without its fitment")
	_, err = e.sources.FindBySKU(ctx, "EX-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Equal(t, 0, e.catalog.PushCount())
}

func TestImporter_CreatesMissingCategories(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	e.importer.config.CreateMissingCategories = true

	report := e.importer.Import(ctx, []ImportRecord{
		{SKU: "IN-1", ProductGID: gidQ, Title: "Cold air intake", CategoryPath: "Intake > Cold Air Intakes"},
		{SKU: "IN-2", ProductGID: "201", Title: "Another intake", CategoryPath: "intake>cold air intakes"},
	})
	require.Empty(t, report.Failed)
	assert.Equal(t, 2, report.Linked)

	leaf, err := e.categories.FindBySlug(ctx, "cold-air-intakes")
	require.NoError(t, err)
	gids, err := e.links.ProductGIDsByCategory(ctx, leaf.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{gidQ, "gid://shopify/Product/201"}, gids)
}
