package app

import (
	"context"
	"testing"

	projectionapp "github.com/partscatalog/backend/internal/application/projection"
	"github.com/partscatalog/backend/internal/domain/projection"
	"github.com/partscatalog/backend/internal/infrastructure/catalogapi"
	"github.com/partscatalog/backend/internal/infrastructure/config"
	"github.com/partscatalog/backend/internal/infrastructure/persistence"
	"github.com/partscatalog/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewCatalog_WithoutCredentials(t *testing.T) {
	cfg := &config.CatalogConfig{APIVersion: catalogapi.DefaultAPIVersion}

	writer, reader, err := newCatalog(cfg, zap.NewNop())
	require.NoError(t, err, "development starts without a shop")
	assert.Nil(t, reader)
	assert.IsType(t, catalogapi.Unconfigured{}, writer)

	t.Run("rebuild commits locally and reports the push", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		sync := projectionapp.NewSynchronizer(
			persistence.NewGormCategoryRepository(db),
			persistence.NewGormProductCategoryRepository(db),
			persistence.NewGormFitmentRepository(db),
			writer, projectionapp.SyncConfig{}, nil,
		)

		_, err := sync.Rebuild(context.Background(), "gid://shopify/Product/1")
		var writeErr *projection.ExternalWriteError
		require.ErrorAs(t, err, &writeErr)
		assert.ErrorIs(t, err, catalogapi.ErrNotConfigured)
	})
}

func TestNewCatalog_WithCredentials(t *testing.T) {
	cfg := &config.CatalogConfig{ShopDomain: "demo.myshopify.com", AccessToken: "shpat_test"}

	writer, reader, err := newCatalog(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &catalogapi.Client{}, writer)
	assert.Same(t, writer, reader)
}
