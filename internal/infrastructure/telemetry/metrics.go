package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const defaultExportInterval = time.Minute

// MetricsConfig controls metric export
type MetricsConfig struct {
	Collector
	Enabled        bool
	ExportInterval time.Duration
}

// MeterProvider owns the SDK meter provider when metrics are enabled
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
}

// NewMeterProvider installs a periodic OTLP meter provider as the global one.
func NewMeterProvider(ctx context.Context, cfg MetricsConfig, logger *zap.Logger) (*MeterProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Debug("Metrics disabled")
		return &MeterProvider{}, nil
	}

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = defaultExportInterval
	}
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create OTLP metric exporter: %w", err)
	}
	res, err := cfg.resource()
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(provider)

	logger.Info("Metrics enabled",
		zap.String("collector_endpoint", cfg.Endpoint),
		zap.Duration("export_interval", interval),
	)
	return &MeterProvider{provider: provider}, nil
}

// Shutdown performs a final export
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	return shutdownWithin(ctx, "meter", mp.provider.Shutdown)
}

// Meter returns a meter from this provider, or from the global one when
// metrics are disabled.
func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.provider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return mp.provider.Meter(name, opts...)
}

func (mp *MeterProvider) IsEnabled() bool { return mp.provider != nil }
