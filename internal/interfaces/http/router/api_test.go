package router

import (
	"net/http"
	"net/url"
	"testing"

	linkageapp "github.com/partscatalog/backend/internal/application/linkage"
	projectionapp "github.com/partscatalog/backend/internal/application/projection"
	"github.com/partscatalog/backend/internal/application/query"
	taxonomyapp "github.com/partscatalog/backend/internal/application/taxonomy"
	"github.com/partscatalog/backend/internal/domain/linkage"
	"github.com/partscatalog/backend/internal/domain/projection"
	"github.com/partscatalog/backend/internal/infrastructure/persistence"
	"github.com/partscatalog/backend/internal/interfaces/http/handler"
	"github.com/partscatalog/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gidP = "gid://shopify/Product/100"

type api struct {
	engine  http.Handler
	catalog *testutil.FakeCatalog
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db := testutil.NewTestDB(t)
	categories := persistence.NewGormCategoryRepository(db)
	terms := persistence.NewGormFitTermRepository(db)
	links := persistence.NewGormProductCategoryRepository(db)
	fitments := persistence.NewGormFitmentRepository(db)
	sources := persistence.NewGormSourceProductRepository(db)
	catalog := testutil.NewFakeCatalog()

	sync := projectionapp.NewSynchronizer(categories, links, fitments, catalog,
		projectionapp.SyncConfig{}, nil, projectionapp.WithSnapshots(persistence.NewGormSnapshotRepository(db)))
	trigger := projectionapp.NewWriteThroughTrigger(sync)
	linkService := linkageapp.NewService(categories, links, fitments, trigger, "", nil)

	engine := NewEngine(EngineOptions{MaxBodyBytes: 1 << 20, ImportMaxBytes: 1 << 20}, Handlers{
		System:     handler.NewSystemHandler(nil, "test"),
		Category:   handler.NewCategoryHandler(taxonomyapp.NewCategoryService(categories, links, trigger, nil)),
		FitTerm:    handler.NewFitTermHandler(taxonomyapp.NewFitTermService(terms, fitments, nil)),
		Product:    handler.NewProductHandler(linkService, sync),
		Projection: handler.NewProjectionHandler(sync, nil),
		Query:      handler.NewQueryHandler(query.NewEngine(categories, links, fitments, catalog, query.Config{}, nil)),
		Import: handler.NewImportHandler(linkageapp.NewImporter(sources, categories, trigger,
			linkageapp.ImporterConfig{}, nil)),
	})
	return &api{engine: engine, catalog: catalog}
}

func (a *api) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	w := testutil.PerformRequest(t, a.engine, method, path, body)
	var data map[string]any
	if w.Code != http.StatusNoContent && w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		resp := testutil.DecodeResponse(t, w, nil)
		if resp.Success {
			testutil.DecodeResponse(t, w, &data)
		} else if resp.Error != nil {
			data = map[string]any{"code": resp.Error.Code, "message": resp.Error.Message}
		}
	}
	return w.Code, data
}

func (a *api) createCategory(t *testing.T, title string, parentID any) string {
	t.Helper()
	body := map[string]any{"title": title}
	if parentID != nil {
		body["parent_id"] = parentID
	}
	code, data := a.do(t, http.MethodPost, "/api/v1/taxonomy/categories", body)
	require.Equal(t, http.StatusCreated, code, data)
	return data["id"].(string)
}

func productPath(gid, suffix string) string {
	return "/api/v1/products/" + url.PathEscape(gid) + suffix
}

func TestAPI_LinkPreviewAndQuery(t *testing.T) {
	a := newAPI(t)
	exhaust := a.createCategory(t, "Exhaust", nil)
	a.createCategory(t, "Downpipes", exhaust)

	code, data := a.do(t, http.MethodPost, productPath(gidP, "/categories"),
		map[string]any{"categories": []string{"downpipes"}})
	require.Equal(t, http.StatusOK, code, data)
	assert.Equal(t, gidP, data["product_gid"])
	assert.EqualValues(t, 1, data["added"])
	assert.Equal(t, true, data["sync"].(map[string]any)["ok"])

	push, ok := a.catalog.LastPush(gidP)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"downpipes", "exhaust"}, push.CategorySlugs())

	t.Run("fitment upsert creates once", func(t *testing.T) {
		body := map[string]any{"make": "Honda", "model": "Civic", "year_from": 2016, "year_to": 2020}
		code, _ := a.do(t, http.MethodPost, productPath(gidP, "/fitments"), body)
		assert.Equal(t, http.StatusCreated, code)
		code, data := a.do(t, http.MethodPost, productPath(gidP, "/fitments"), body)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, false, data["created"])
	})

	t.Run("preview reflects local state", func(t *testing.T) {
		w := testutil.PerformRequest(t, a.engine, http.MethodGet, productPath("100", "/projection"), nil)
		require.Equal(t, http.StatusOK, w.Code)
		var p projection.Projection
		testutil.DecodeResponse(t, w, &p)
		assert.Equal(t, gidP, p.ProductGID)
		assert.ElementsMatch(t, []string{"downpipes", "exhaust"}, p.CategorySlugs)
		require.Len(t, p.YMM, 1)
		assert.Equal(t, "Honda", p.YMM[0].Make)
	})

	t.Run("query narrows by vehicle", func(t *testing.T) {
		w := testutil.PerformRequest(t, a.engine, http.MethodGet,
			"/api/v1/query/categories/downpipes/products?make=honda&year=2018", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var gids []string
		resp := testutil.DecodeResponse(t, w, &gids)
		assert.Equal(t, []string{gidP}, gids)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, 24, resp.Meta.Limit)

		w = testutil.PerformRequest(t, a.engine, http.MethodGet,
			"/api/v1/query/categories/downpipes/products?make=toyota", nil)
		gids = nil
		testutil.DecodeResponse(t, w, &gids)
		assert.Empty(t, gids)
	})

	t.Run("counts per category", func(t *testing.T) {
		w := testutil.PerformRequest(t, a.engine, http.MethodGet,
			"/api/v1/query/counts?slugs=downpipes,exhaust&slugs=missing", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var counts map[string]int
		testutil.DecodeResponse(t, w, &counts)
		assert.Equal(t, map[string]int{"downpipes": 1, "exhaust": 0, "missing": 0}, counts)

		code, _ := a.do(t, http.MethodGet, "/api/v1/query/counts", nil)
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("unlink all", func(t *testing.T) {
		code, data := a.do(t, http.MethodDelete, productPath(gidP, "/categories"), linkage.RawUnlink{All: true})
		require.Equal(t, http.StatusOK, code)
		assert.EqualValues(t, 1, data["removed"])
		push, _ := a.catalog.LastPush(gidP)
		assert.Empty(t, push.CategorySlugs())
	})
}

func TestAPI_ErrorMapping(t *testing.T) {
	a := newAPI(t)
	parent := a.createCategory(t, "Brakes", nil)
	a.createCategory(t, "Pads", parent)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"delete with children", http.MethodDelete, "/api/v1/taxonomy/categories/" + parent, nil, http.StatusUnprocessableEntity, "HAS_CHILDREN"},
		{"duplicate slug", http.MethodPost, "/api/v1/taxonomy/categories", map[string]any{"title": "Brakes"}, http.StatusConflict, "ALREADY_EXISTS"},
		{"unknown category", http.MethodGet, "/api/v1/taxonomy/categories/slug/nope", nil, http.StatusNotFound, "NOT_FOUND"},
		{"malformed id", http.MethodGet, "/api/v1/taxonomy/categories/not-a-uuid", nil, http.StatusBadRequest, "ERR_BAD_REQUEST"},
		{"invalid gid", http.MethodGet, productPath("sku-1", "/categories"), nil, http.StatusBadRequest, "INVALID_PRODUCT_GID"},
		{"missing fitment make", http.MethodPost, productPath(gidP, "/fitments"), map[string]any{"model": "Civic"}, http.StatusBadRequest, "ERR_VALIDATION"},
		{"unknown link target", http.MethodPost, productPath(gidP, "/categories"), map[string]any{"categories": []string{"ghost"}}, http.StatusBadRequest, "INVALID_INPUT"},
		{"empty unlink body", http.MethodDelete, productPath(gidP, "/categories"), map[string]any{}, http.StatusBadRequest, "INVALID_INPUT"},
		{"fit-term parent type", http.MethodPost, "/api/v1/taxonomy/fit-terms", map[string]any{"type": "MAKE", "name": "Honda", "parent_id": parent}, http.StatusBadRequest, "INVALID_PARENT"},
		{"drain without queue", http.MethodPost, "/api/v1/projection/drain", nil, http.StatusConflict, "ERR_NOT_CONFIGURED"},
		{"backfill without targets", http.MethodPost, "/api/v1/projection/backfill", map[string]any{}, http.StatusBadRequest, "ERR_VALIDATION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, data := a.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, code, data)
			assert.Equal(t, tt.code, data["code"])
		})
	}
}

func TestAPI_ImportAndBackfill(t *testing.T) {
	a := newAPI(t)
	exhaust := a.createCategory(t, "Exhaust", nil)
	a.createCategory(t, "Mufflers", exhaust)

	code, data := a.do(t, http.MethodPost, "/api/v1/import/records", map[string]any{
		"records": []map[string]any{
			{"sku": "MF-1", "title": "Muffler", "product_gid": "100", "category_path": "Exhaust > Mufflers", "make": "Subaru", "model": "WRX"},
			{"sku": "", "title": "Broken"},
		},
	})
	require.Equal(t, http.StatusOK, code, data)
	assert.EqualValues(t, 1, data["imported"])
	assert.Len(t, data["failed"], 1)
	assert.Equal(t, 1, a.catalog.PushCount())

	code, data = a.do(t, http.MethodPost, "/api/v1/projection/backfill", map[string]any{"all": true})
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, data["succeeded"])

	code, data = a.do(t, http.MethodPost, "/api/v1/projection/retry-failed?limit=5", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 0, data["total"])
}

func TestAPI_Health(t *testing.T) {
	a := newAPI(t)
	w := testutil.PerformRequest(t, a.engine, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}
