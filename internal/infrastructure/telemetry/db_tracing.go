package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig controls the otelgorm plugin
type DBTracingConfig struct {
	Enabled bool
	// LogFullSQL keeps bound values in db.statement; never in production
	LogFullSQL bool
}

// RegisterDBTracing makes every repository query a child span of the request
// or rebuild that issued it.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	opts := []otelgorm.Option{
		otelgorm.WithDBName(db.Dialector.Name()),
	}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if logger != nil {
		logger.Info("Database tracing enabled", zap.Bool("log_full_sql", cfg.LogFullSQL))
	}
	return nil
}
