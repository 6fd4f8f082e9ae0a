package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/fitment"
	"github.com/partscatalog/backend/internal/domain/linkage"
	"github.com/partscatalog/backend/internal/domain/projection"
	"github.com/partscatalog/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestGormFitmentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormFitmentRepository(newTestDB(t))

	civicKey := fitment.Key{ProductGID: gidA, Make: "Honda", Model: "Civic", YearFrom: intPtr(2016), YearTo: intPtr(2021), Trim: strPtr("Si")}
	civic, err := fitment.NewProductFitment(civicKey)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, civic))

	accord, err := fitment.NewProductFitment(fitment.Key{ProductGID: gidA, Make: "Honda", Model: "Accord"})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, accord))

	acura, err := fitment.NewProductFitment(fitment.Key{ProductGID: gidA, Make: "Acura", Model: "Integra", YearFrom: intPtr(2023)})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, acura))

	t.Run("find by key matches null columns exactly", func(t *testing.T) {
		got, err := repo.FindByKey(ctx, civicKey)
		require.NoError(t, err)
		assert.Equal(t, civic.ID, got.ID)

		withoutTrim := civicKey
		withoutTrim.Trim = nil
		_, err = repo.FindByKey(ctx, withoutTrim)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("product rows are ordered by make, model, year", func(t *testing.T) {
		rows, err := repo.FindByProduct(ctx, gidA)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "Acura", rows[0].Make)
		assert.Equal(t, "Accord", rows[1].Model)
		assert.Equal(t, "Civic", rows[2].Model)
	})

	t.Run("count by name ignores case", func(t *testing.T) {
		count, err := repo.CountByName(ctx, fitment.DimensionMake, "HONDA", fitment.Query{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		count, err = repo.CountByName(ctx, fitment.DimensionTrim, "si", fitment.Query{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		_, err = repo.CountByName(ctx, fitment.Dimension("engine"), "x", fitment.Query{})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("count by name narrows to the scope", func(t *testing.T) {
		count, err := repo.CountByName(ctx, fitment.DimensionModel, "civic", fitment.Query{Make: "honda"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		count, err = repo.CountByName(ctx, fitment.DimensionModel, "Civic", fitment.Query{Make: "Acura"})
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("deletes report rows affected", func(t *testing.T) {
		n, err := repo.DeleteByKey(ctx, civicKey)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = repo.DeleteByKey(ctx, civicKey)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)

		n, err = repo.Delete(ctx, accord.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("distinct products", func(t *testing.T) {
		gids, err := repo.DistinctProductGIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{gidA}, gids)

		rows, err := repo.FindByProducts(ctx, []string{gidA, gidB})
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}

func TestGormSnapshotRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSnapshotRepository(newTestDB(t))
	p := projection.Build(gidA, []string{"exhaust"}, nil)

	record := func(pushErr error) *projection.Snapshot {
		s, err := projection.NewSnapshot(p, pushErr)
		require.NoError(t, err)
		require.NoError(t, repo.Record(ctx, s))
		return s
	}

	record(errors.New("catalogapi: rate limited"))
	record(errors.New("catalogapi: rate limited"))

	got, err := repo.FindByProduct(ctx, gidA)
	require.NoError(t, err)
	assert.Equal(t, projection.SnapshotFailed, got.Status)
	assert.Equal(t, 2, got.Attempts)
	assert.JSONEq(t, `["exhaust"]`, string(got.CategorySlugs))

	failed, err := repo.FindFailed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)

	record(nil)
	got, err = repo.FindByProduct(ctx, gidA)
	require.NoError(t, err)
	assert.Equal(t, projection.SnapshotSuccess, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.Empty(t, got.LastError)

	failed, err = repo.FindFailed(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, failed)

	_, err = repo.FindByProduct(ctx, gidB)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormSourceProductRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewGormSourceProductRepository(newTestDB(t))

	first, err := linkage.NewSourceProduct("DP-100", "Downpipe")
	require.NoError(t, err)
	first.Price = decimal.RequireFromString("199.99")
	require.NoError(t, repo.Upsert(ctx, first))

	second, err := linkage.NewSourceProduct("DP-100", "Downpipe v2")
	require.NoError(t, err)
	second.ProductGID = strPtr(gidA)
	require.NoError(t, repo.Upsert(ctx, second))

	assert.Equal(t, first.ID, second.ID, "id is stable across upserts")

	got, err := repo.FindBySKU(ctx, "DP-100")
	require.NoError(t, err)
	assert.Equal(t, "Downpipe v2", got.Title)
	require.NotNil(t, got.ProductGID)
	assert.Equal(t, gidA, *got.ProductGID)
	assert.True(t, got.Price.IsZero(), "price is overwritten by the latest record")

	_, err = repo.FindBySKU(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormSourceProductRepository_UpsertLinked(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewGormSourceProductRepository(db)
	links := NewGormProductCategoryRepository(db)
	fitments := NewGormFitmentRepository(db)
	category := uuid.New()

	row, err := fitment.NewProductFitment(fitment.Key{ProductGID: gidA, Make: "Honda", Model: "Civic", YearFrom: intPtr(2017)})
	require.NoError(t, err)
	p, err := linkage.NewSourceProduct("DP-100", "Downpipe")
	require.NoError(t, err)
	p.ProductGID = strPtr(gidA)
	require.NoError(t, repo.UpsertLinked(ctx, p, &category, row))

	t.Run("stores every part", func(t *testing.T) {
		ids, err := links.CategoryIDs(ctx, gidA)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{category}, ids)
		rows, err := fitments.FindByProduct(ctx, gidA)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("repeating keeps one link and one row", func(t *testing.T) {
		again, err := fitment.NewProductFitment(row.Key())
		require.NoError(t, err)
		require.NoError(t, repo.UpsertLinked(ctx, p, &category, again))

		ids, err := links.CategoryIDs(ctx, gidA)
		require.NoError(t, err)
		assert.Len(t, ids, 1)
		rows, err := fitments.FindByProduct(ctx, gidA)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("links need a gid", func(t *testing.T) {
		orphan, err := linkage.NewSourceProduct("DP-200", "No gid yet")
		require.NoError(t, err)
		err = repo.UpsertLinked(ctx, orphan, &category, nil)
		assert.ErrorIs(t, err, shared.NewDomainError(shared.CodeInvalidProductGID, ""))

		_, err = repo.FindBySKU(ctx, "DP-200")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
