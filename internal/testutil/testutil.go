// Package testutil provides helpers shared by the package tests: an
// in-memory database, a recording catalog fake and gin response helpers.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/fitment"
	"github.com/partscatalog/backend/internal/domain/linkage"
	"github.com/partscatalog/backend/internal/domain/projection"
	"github.com/partscatalog/backend/internal/domain/taxonomy"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Models lists every table the service owns, in migration order
func Models() []any {
	return []any{
		&taxonomy.Category{},
		&taxonomy.FitTerm{},
		&linkage.ProductCategory{},
		&linkage.SourceProduct{},
		&fitment.ProductFitment{},
		&projection.Snapshot{},
	}
}

// NewTestDB creates an in-memory SQLite database with every table migrated.
// A single connection keeps the in-memory database shared across transactions.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "Failed to open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(Models()...), "Failed to migrate")
	return db
}

// NewTestUUID generates a deterministic UUID from a seed string
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}

// ContextWithTimeout creates a context with a timeout for tests
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// RequireEventually retries condition until it holds or the timeout passes
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...any) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(interval)
	}

	require.Fail(t, "Condition not met within timeout", msgAndArgs...)
}
