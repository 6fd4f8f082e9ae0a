package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/partscatalog/backend/internal/infrastructure/config"
	"github.com/partscatalog/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database owns the connection pool shared by every repository
type Database struct {
	DB *gorm.DB
}

// NewDatabase opens the postgres connection, configures the pool and routes
// GORM logging through zap.
func NewDatabase(cfg *config.DatabaseConfig, zapLogger *zap.Logger) (*Database, error) {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	gl := logger.NewGormLogger(zapLogger, logger.MapGormLogLevel(cfg.LogLevel), cfg.SlowThreshold)
	return open(postgres.Open(cfg.DSN()), gl, cfg)
}

func open(dialector gorm.Dialector, gl gormlogger.Interface, cfg *config.DatabaseConfig) (*Database, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gl,
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks the connection is alive within ctx
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
