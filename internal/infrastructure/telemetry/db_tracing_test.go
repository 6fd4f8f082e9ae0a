package telemetry_test

import (
	"context"
	"testing"

	"github.com/partscatalog/backend/internal/domain/taxonomy"
	"github.com/partscatalog/backend/internal/infrastructure/telemetry"
	"github.com/partscatalog/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestRegisterDBTracing(t *testing.T) {
	t.Run("disabled leaves queries untraced", func(t *testing.T) {
		db := testutil.NewTestDB(t)
		require.NoError(t, telemetry.RegisterDBTracing(db, telemetry.DBTracingConfig{}, nil))
		_, ok := db.Plugins["otelgorm"]
		assert.False(t, ok)
	})

	t.Run("enabled traces repository queries", func(t *testing.T) {
		recorder := tracetest.NewSpanRecorder()
		provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
		previous := otel.GetTracerProvider()
		otel.SetTracerProvider(provider)
		t.Cleanup(func() {
			otel.SetTracerProvider(previous)
			_ = provider.Shutdown(context.Background())
		})

		db := testutil.NewTestDB(t)
		require.NoError(t, telemetry.RegisterDBTracing(db, telemetry.DBTracingConfig{Enabled: true}, nil))

		var count int64
		require.NoError(t, db.WithContext(context.Background()).Model(&taxonomy.Category{}).Count(&count).Error)

		assert.NotEmpty(t, recorder.Ended())
	})
}
