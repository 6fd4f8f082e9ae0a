// Package app assembles the parts catalog from configuration. It is shared by
// the server and the backfill command so both run the same synchronizer.
package app

import (
	"context"
	"errors"
	"fmt"

	linkageapp "github.com/partscatalog/backend/internal/application/linkage"
	projectionapp "github.com/partscatalog/backend/internal/application/projection"
	"github.com/partscatalog/backend/internal/application/query"
	taxonomyapp "github.com/partscatalog/backend/internal/application/taxonomy"
	"github.com/partscatalog/backend/internal/domain/linkage"
	"github.com/partscatalog/backend/internal/domain/projection"
	"github.com/partscatalog/backend/internal/infrastructure/cache"
	"github.com/partscatalog/backend/internal/infrastructure/catalogapi"
	"github.com/partscatalog/backend/internal/infrastructure/config"
	"github.com/partscatalog/backend/internal/infrastructure/logger"
	"github.com/partscatalog/backend/internal/infrastructure/persistence"
	"github.com/partscatalog/backend/internal/infrastructure/telemetry"
	"github.com/partscatalog/backend/internal/interfaces/http/handler"
	"github.com/partscatalog/backend/internal/interfaces/http/middleware"
	"github.com/partscatalog/backend/internal/interfaces/http/router"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// App holds every long-lived component
type App struct {
	Config       *config.Config
	Logger       *zap.Logger
	Database     *persistence.Database
	Synchronizer *projectionapp.Synchronizer
	// Worker is nil unless projection.mode is queued
	Worker   *projectionapp.QueueWorker
	Handlers router.Handlers

	version  string
	queue    *cache.RedisRebuildQueue
	meter    metric.Meter
	shutdown []func(context.Context) error
}

// New builds the application. On error everything opened so far is released.
func New(ctx context.Context, cfg *config.Config, version string) (_ *App, err error) {
	a := &App{Config: cfg, version: version}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	if err := a.initTelemetry(ctx); err != nil {
		return nil, err
	}

	a.Database, err = persistence.NewDatabase(&cfg.Database, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.shutdown = append(a.shutdown, func(context.Context) error { return a.Database.Close() })
	if err := telemetry.RegisterDBTracing(a.Database.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
	}, a.Logger); err != nil {
		return nil, err
	}

	db := a.Database.DB
	categories := persistence.NewGormCategoryRepository(db)
	terms := persistence.NewGormFitTermRepository(db)
	links := persistence.NewGormProductCategoryRepository(db)
	fitments := persistence.NewGormFitmentRepository(db)
	sources := persistence.NewGormSourceProductRepository(db)
	snapshots := persistence.NewGormSnapshotRepository(db)

	writer, reader, err := newCatalog(&cfg.Catalog, a.Logger)
	if err != nil {
		return nil, err
	}

	metrics, err := telemetry.NewProjectionMetrics(a.meter)
	if err != nil {
		return nil, err
	}
	a.Synchronizer = projectionapp.NewSynchronizer(categories, links, fitments, writer,
		projectionapp.SyncConfig{
			BatchDelay:       cfg.Projection.BatchDelay,
			ProductGIDPrefix: cfg.Catalog.ProductGIDPrefix,
		},
		a.Logger,
		projectionapp.WithSnapshots(snapshots),
		projectionapp.WithMetrics(metrics),
	)

	trigger, err := a.newTrigger()
	if err != nil {
		return nil, err
	}

	queryCfg := query.Config{
		OverFetchMultiplier: cfg.Query.OverFetchMultiplier,
		DefaultLimit:        cfg.Query.DefaultLimit,
		MaxLimit:            cfg.Query.MaxLimit,
	}
	importer := linkageapp.NewImporter(sources, categories, trigger,
		linkageapp.ImporterConfig{
			CreateMissingCategories: cfg.Import.CreateMissingCategories,
			GIDPrefix:               cfg.Catalog.ProductGIDPrefix,
		}, a.Logger)

	a.Handlers = router.Handlers{
		System:     a.systemHandler(),
		Category:   handler.NewCategoryHandler(taxonomyapp.NewCategoryService(categories, links, trigger, a.Logger)),
		FitTerm:    handler.NewFitTermHandler(taxonomyapp.NewFitTermService(terms, fitments, a.Logger)),
		Product:    handler.NewProductHandler(linkageapp.NewService(categories, links, fitments, trigger, cfg.Catalog.ProductGIDPrefix, a.Logger), a.Synchronizer),
		Projection: handler.NewProjectionHandler(a.Synchronizer, a.Worker),
		Query:      handler.NewQueryHandler(query.NewEngine(categories, links, fitments, reader, queryCfg, a.Logger)),
		Import:     handler.NewImportHandler(importer),
	}
	return a, nil
}

// newCatalog builds the shop client. Without credentials the service still
// starts: pushes fail with catalogapi.ErrNotConfigured and queries skip
// hydration.
func newCatalog(cfg *config.CatalogConfig, log *zap.Logger) (projection.CatalogWriter, projection.CatalogReader, error) {
	if !cfg.Configured() {
		log.Warn("Catalog credentials missing; projection pushes will fail until they are set")
		return catalogapi.Unconfigured{}, nil, nil
	}
	client, err := catalogapi.NewClient(&catalogapi.Config{
		ShopDomain:  cfg.ShopDomain,
		AccessToken: cfg.AccessToken,
		APIVersion:  cfg.APIVersion,
		Timeout:     cfg.Timeout,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog client: %w", err)
	}
	return client, client, nil
}

// initTelemetry sets up the logger and the tracer, meter and log providers
func (a *App) initTelemetry(ctx context.Context) error {
	cfg := a.Config
	base, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	a.Logger = base

	collector := telemetry.Collector{
		Endpoint:       cfg.Telemetry.CollectorEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: a.version,
		Environment:    cfg.App.Env,
	}

	logs, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Collector: collector,
		Enabled:   cfg.Telemetry.LogsEnabled,
	}, base)
	if err != nil {
		return err
	}
	a.shutdown = append(a.shutdown, logs.Shutdown)
	a.Logger = logs.Bridge(base, logger.ParseLevel(cfg.Log.Level))

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.TracingConfig{
		Collector:     collector,
		Enabled:       cfg.Telemetry.Enabled,
		SamplingRatio: cfg.Telemetry.SamplingRatio,
	}, a.Logger)
	if err != nil {
		return err
	}
	a.shutdown = append(a.shutdown, tracer.Shutdown)

	meter, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Collector:      collector,
		Enabled:        cfg.Telemetry.MetricsEnabled,
		ExportInterval: cfg.Telemetry.MetricsInterval,
	}, a.Logger)
	if err != nil {
		return err
	}
	a.shutdown = append(a.shutdown, meter.Shutdown)
	a.meter = meter.Meter(telemetry.InstrumentationName)
	return nil
}

// newTrigger returns the rebuild trigger for the configured projection mode.
// Queued mode also creates the worker that drains the redis list.
func (a *App) newTrigger() (linkage.RebuildTrigger, error) {
	cfg := a.Config
	if !cfg.IsQueued() {
		return projectionapp.NewWriteThroughTrigger(a.Synchronizer), nil
	}

	queue, err := cache.NewRedisRebuildQueue(cache.RedisConfig{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, cfg.Projection.QueueKey)
	if err != nil {
		return nil, fmt.Errorf("rebuild queue: %w", err)
	}
	a.shutdown = append(a.shutdown, func(context.Context) error { return queue.Close() })
	a.queue = queue

	workerCfg := projectionapp.DefaultQueueWorkerConfig()
	workerCfg.BatchDelay = cfg.Projection.BatchDelay
	a.Worker = projectionapp.NewQueueWorker(queue, a.Synchronizer, workerCfg, a.Logger)
	return projectionapp.NewQueuedTrigger(queue), nil
}

func (a *App) systemHandler() *handler.SystemHandler {
	h := handler.NewSystemHandler(a.Database, a.version)
	if a.queue != nil {
		h.WithCheck("rebuild_queue", a.queue)
	}
	return h
}

// EngineOptions derives the HTTP engine options from configuration
func (a *App) EngineOptions() router.EngineOptions {
	cfg := a.Config
	return router.EngineOptions{
		Logger: a.Logger,
		Meter:  a.meter,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		ImportMaxBytes: cfg.HTTP.ImportMaxBytes,
		RateLimit:      cfg.HTTP.RateLimit,
		RateWindow:     cfg.HTTP.RateWindow,
	}
}

// Close releases resources in reverse order of creation
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		if err := a.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.shutdown = nil
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return errors.Join(errs...)
}
