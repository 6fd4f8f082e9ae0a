package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/partscatalog/backend/internal/infrastructure/logger"
	"github.com/partscatalog/backend/internal/interfaces/http/handler"
	"github.com/partscatalog/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers mounted by NewEngine
type Handlers struct {
	System     *handler.SystemHandler
	Category   *handler.CategoryHandler
	FitTerm    *handler.FitTermHandler
	Product    *handler.ProductHandler
	Projection *handler.ProjectionHandler
	Query      *handler.QueryHandler
	Import     *handler.ImportHandler
}

// EngineOptions configures the middleware chain
type EngineOptions struct {
	Logger         *zap.Logger
	Meter          metric.Meter
	Tracing        middleware.TracingConfig
	CORSOrigins    []string
	TrustedProxies []string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	ImportMaxBytes int64
	// RateLimit is requests per RateWindow per client; 0 disables it
	RateLimit  int
	RateWindow time.Duration
}

// NewEngine builds the gin engine with the full middleware chain and every
// route of the admin and storefront API.
func NewEngine(opts EngineOptions, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	engine := gin.New()
	// Product gids carry slashes and arrive URL-escaped in path params
	engine.UseRawPath = true
	engine.UnescapePathValues = true
	if len(opts.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
			opts.Logger.Warn("Ignoring invalid trusted proxies", zap.Error(err))
		}
	}

	engine.Use(logger.GinMiddleware(opts.Logger))
	engine.Use(logger.Recovery(opts.Logger))
	engine.Use(middleware.Tracing(opts.Tracing))
	engine.Use(middleware.SpanAttributes())
	engine.Use(middleware.HTTPMetrics(opts.Meter))
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = opts.CORSOrigins
	engine.Use(middleware.CORS(cors))
	engine.Use(middleware.Secure())
	if opts.RequestTimeout > 0 {
		engine.Use(middleware.Timeout(opts.RequestTimeout))
	}
	if opts.RateLimit > 0 {
		engine.Use(middleware.RateLimit(middleware.NewRateLimiter(opts.RateLimit, opts.RateWindow)))
	}

	if h.System != nil {
		engine.GET("/health", h.System.Health)
	}

	r := NewRouter(engine)
	for _, group := range DomainGroups(h, opts) {
		r.Register(group)
	}
	r.Setup()
	return engine
}

// DomainGroups declares the API areas. A nil handler leaves its area out.
func DomainGroups(h Handlers, opts EngineOptions) []*DomainGroup {
	var groups []*DomainGroup
	bodyLimit := func(n int64) gin.HandlerFunc {
		if n <= 0 {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.BodyLimit(n)
	}

	if h.System != nil {
		system := NewDomainGroup("system", "/system")
		system.GET("/info", h.System.GetSystemInfo)
		system.GET("/ping", h.System.Ping)
		groups = append(groups, system)
	}

	taxonomy := NewDomainGroup("taxonomy", "/taxonomy").Use(bodyLimit(opts.MaxBodyBytes))
	if h.Category != nil {
		categories := taxonomy.Group("categories", "/categories")
		categories.GET("", h.Category.Tree)
		categories.POST("", h.Category.Create)
		categories.GET("/slug/:slug", h.Category.GetBySlug)
		categories.GET("/:id", h.Category.GetByID)
		categories.GET("/:id/ancestor-slugs", h.Category.AncestorSlugs)
		categories.PATCH("/:id", h.Category.Update)
		categories.POST("/:id/move", h.Category.Move)
		categories.DELETE("/:id", h.Category.Delete)
	}
	if h.FitTerm != nil {
		terms := taxonomy.Group("fit-terms", "/fit-terms")
		terms.GET("", h.FitTerm.Tree)
		terms.POST("", h.FitTerm.Create)
		terms.POST("/reset-selection", h.FitTerm.ResetSelection)
		terms.GET("/:id", h.FitTerm.GetByID)
		terms.GET("/:id/descendant-of/:ancestorId", h.FitTerm.IsDescendantOf)
		terms.PATCH("/:id", h.FitTerm.Rename)
		terms.DELETE("/:id", h.FitTerm.Delete)
	}
	if h.Category != nil || h.FitTerm != nil {
		groups = append(groups, taxonomy)
	}

	if h.Product != nil {
		products := NewDomainGroup("products", "/products/:gid").Use(bodyLimit(opts.MaxBodyBytes))
		products.GET("/categories", h.Product.ListCategories)
		products.POST("/categories", h.Product.Link)
		products.DELETE("/categories", h.Product.Unlink)
		products.GET("/fitments", h.Product.ListFitments)
		products.POST("/fitments", h.Product.UpsertFitment)
		products.DELETE("/fitments", h.Product.DeleteFitmentByKey)
		products.DELETE("/fitments/:id", h.Product.DeleteFitment)
		products.GET("/projection", h.Product.Preview)
		products.POST("/projection/sync", h.Product.Resync)
		groups = append(groups, products)
	}

	if h.Projection != nil {
		projection := NewDomainGroup("projection", "/projection").Use(bodyLimit(opts.MaxBodyBytes))
		projection.POST("/backfill", h.Projection.Backfill)
		projection.POST("/retry-failed", h.Projection.RetryFailed)
		projection.POST("/drain", h.Projection.Drain)
		groups = append(groups, projection)
	}

	if h.Query != nil {
		query := NewDomainGroup("query", "/query")
		query.GET("/categories/:slug/products", h.Query.ProductsInCategory)
		query.GET("/counts", h.Query.Counts)
		groups = append(groups, query)
	}

	if h.Import != nil {
		imports := NewDomainGroup("import", "/import").Use(bodyLimit(opts.ImportMaxBytes))
		imports.POST("/records", h.Import.Import)
		groups = append(groups, imports)
	}

	return groups
}
