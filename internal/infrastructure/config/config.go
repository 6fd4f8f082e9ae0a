package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Projection rebuild modes
const (
	ProjectionModeWriteThrough = "write_through"
	ProjectionModeQueued       = "queued"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Catalog    CatalogConfig
	Projection ProjectionConfig
	Query      QueryConfig
	Import     ImportConfig
	Telemetry  TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	LogLevel        string
	SlowThreshold   time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	ImportMaxBytes int64 // body limit of the import endpoint
	RateLimit      int   // requests per RateWindow per client, 0 disables
	RateWindow     time.Duration
	CORSOrigins    []string
}

// CatalogConfig points at the external product catalog
type CatalogConfig struct {
	ShopDomain       string // e.g. my-shop.myshopify.com
	AccessToken      string
	APIVersion       string
	Timeout          time.Duration
	ProductGIDPrefix string
}

// ProjectionConfig controls how projections are pushed
type ProjectionConfig struct {
	Mode       string        // write_through or queued
	BatchDelay time.Duration // pause between pushes during backfill and queue draining
	QueueKey   string
}

// QueryConfig holds query engine tuning
type QueryConfig struct {
	OverFetchMultiplier int
	DefaultLimit        int
	MaxLimit            int
}

// ImportConfig controls the distributor record importer
type ImportConfig struct {
	CreateMissingCategories bool
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // tracing
	MetricsEnabled    bool    // metrics export
	MetricsInterval   time.Duration
	LogsEnabled       bool    // zap records exported over OTLP
	CollectorEndpoint string  // e.g. "localhost:4317"
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	DBLogFullSQL      bool // dev only
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with PARTS_ prefix (e.g., PARTS_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("PARTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			LogLevel:        v.GetString("database.log_level"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
			RequestTimeout: v.GetDuration("http.request_timeout"),
			MaxBodyBytes:   v.GetInt64("http.max_body_bytes"),
			ImportMaxBytes: v.GetInt64("http.import_max_bytes"),
			RateLimit:      v.GetInt("http.rate_limit"),
			RateWindow:     v.GetDuration("http.rate_window"),
			CORSOrigins:    v.GetStringSlice("http.cors_origins"),
		},
		Catalog: CatalogConfig{
			ShopDomain:       v.GetString("catalog.shop_domain"),
			AccessToken:      v.GetString("catalog.access_token"),
			APIVersion:       v.GetString("catalog.api_version"),
			Timeout:          v.GetDuration("catalog.timeout"),
			ProductGIDPrefix: v.GetString("catalog.product_gid_prefix"),
		},
		Projection: ProjectionConfig{
			Mode:       v.GetString("projection.mode"),
			BatchDelay: v.GetDuration("projection.batch_delay"),
			QueueKey:   v.GetString("projection.queue_key"),
		},
		Query: QueryConfig{
			OverFetchMultiplier: v.GetInt("query.over_fetch_multiplier"),
			DefaultLimit:        v.GetInt("query.default_limit"),
			MaxLimit:            v.GetInt("query.max_limit"),
		},
		Import: ImportConfig{
			CreateMissingCategories: v.GetBool("import.create_missing_categories"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "parts-catalog"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "parts_catalog"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 200 * time.Millisecond
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.RequestTimeout == 0 {
		cfg.HTTP.RequestTimeout = 25 * time.Second
	}
	if cfg.HTTP.MaxBodyBytes == 0 {
		cfg.HTTP.MaxBodyBytes = 1 << 20
	}
	if cfg.HTTP.ImportMaxBytes == 0 {
		cfg.HTTP.ImportMaxBytes = 32 << 20
	}
	if cfg.HTTP.RateWindow == 0 {
		cfg.HTTP.RateWindow = time.Minute
	}
	if len(cfg.HTTP.CORSOrigins) == 0 {
		cfg.HTTP.CORSOrigins = []string{"*"}
	}
	if cfg.Catalog.APIVersion == "" {
		cfg.Catalog.APIVersion = "2024-10"
	}
	if cfg.Catalog.Timeout == 0 {
		cfg.Catalog.Timeout = 15 * time.Second
	}
	if cfg.Catalog.ProductGIDPrefix == "" {
		cfg.Catalog.ProductGIDPrefix = "gid://shopify/Product/"
	}
	if cfg.Projection.Mode == "" {
		cfg.Projection.Mode = ProjectionModeWriteThrough
	}
	if cfg.Projection.BatchDelay == 0 {
		cfg.Projection.BatchDelay = 500 * time.Millisecond
	}
	if cfg.Projection.QueueKey == "" {
		cfg.Projection.QueueKey = "parts:projection:rebuild"
	}
	if cfg.Query.OverFetchMultiplier == 0 {
		cfg.Query.OverFetchMultiplier = 3
	}
	if cfg.Query.DefaultLimit == 0 {
		cfg.Query.DefaultLimit = 24
	}
	if cfg.Query.MaxLimit == 0 {
		cfg.Query.MaxLimit = 250
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
}

// Validate checks the configuration for invalid combinations
func (c *Config) Validate() error {
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Projection.Mode {
	case ProjectionModeWriteThrough:
	case ProjectionModeQueued:
		if c.Redis.Host == "" {
			return fmt.Errorf("projection.mode=queued requires redis.host")
		}
	default:
		return fmt.Errorf("projection.mode must be %q or %q, got %q",
			ProjectionModeWriteThrough, ProjectionModeQueued, c.Projection.Mode)
	}
	if c.Projection.BatchDelay < 0 {
		return fmt.Errorf("projection.batch_delay cannot be negative")
	}

	if c.HTTP.RateLimit < 0 {
		return fmt.Errorf("http.rate_limit cannot be negative")
	}

	if c.Query.OverFetchMultiplier < 1 {
		return fmt.Errorf("query.over_fetch_multiplier must be at least 1")
	}
	if c.Query.DefaultLimit < 1 || c.Query.DefaultLimit > c.Query.MaxLimit {
		return fmt.Errorf("query.default_limit must be between 1 and query.max_limit (%d)", c.Query.MaxLimit)
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		if !c.Catalog.Configured() {
			return fmt.Errorf("catalog.shop_domain and catalog.access_token are required in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	return nil
}

// IsQueued reports whether rebuilds go through the redis queue
func (c *Config) IsQueued() bool {
	return c.Projection.Mode == ProjectionModeQueued
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns host:port for the redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Configured reports whether shop credentials are present
func (c *CatalogConfig) Configured() bool {
	return c.ShopDomain != "" && c.AccessToken != ""
}
