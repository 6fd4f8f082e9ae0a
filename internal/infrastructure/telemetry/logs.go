package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogsConfig controls log record export
type LogsConfig struct {
	Collector
	Enabled bool
}

// LoggerProvider owns the SDK logger provider when log export is enabled
type LoggerProvider struct {
	provider *sdklog.LoggerProvider
	scope    string
}

// NewLoggerProvider exports zap records over OTLP when enabled. A disabled
// provider is still safe to pass to Bridge and Shutdown.
func NewLoggerProvider(ctx context.Context, cfg LogsConfig, logger *zap.Logger) (*LoggerProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	lp := &LoggerProvider{scope: cfg.ServiceName}
	if !cfg.Enabled {
		return lp, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create OTLP log exporter: %w", err)
	}
	res, err := cfg.resource()
	if err != nil {
		return nil, err
	}

	lp.provider = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(lp.provider)

	logger.Info("Log export enabled", zap.String("collector_endpoint", cfg.Endpoint))
	return lp, nil
}

// Bridge returns a logger that writes to base and, when enabled, to the
// collector. Records below level are not exported.
func (lp *LoggerProvider) Bridge(base *zap.Logger, level zapcore.Level) *zap.Logger {
	if !lp.IsEnabled() {
		return base
	}
	exported := &levelFilterCore{
		Core:     otelzap.NewCore(lp.scope, otelzap.WithLoggerProvider(lp.provider)),
		minLevel: level,
	}
	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, exported)
	}))
}

// Shutdown flushes buffered records
func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if lp.provider == nil {
		return nil
	}
	return shutdownWithin(ctx, "logger", lp.provider.Shutdown)
}

func (lp *LoggerProvider) IsEnabled() bool { return lp.provider != nil }

// levelFilterCore adds a minimum level to the otelzap core, which has none.
type levelFilterCore struct {
	zapcore.Core
	minLevel zapcore.Level
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.minLevel && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return ce
	}
	return c.Core.Check(entry, ce)
}

func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{Core: c.Core.With(fields), minLevel: c.minLevel}
}
