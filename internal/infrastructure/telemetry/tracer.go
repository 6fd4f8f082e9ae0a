package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TracingConfig controls span export
type TracingConfig struct {
	Collector
	Enabled bool
	// SamplingRatio applies to root spans; child spans follow their parent
	SamplingRatio float64
}

// TracerProvider owns the SDK tracer provider when tracing is enabled
type TracerProvider struct {
	provider *sdktrace.TracerProvider
}

// NewTracerProvider installs a batching OTLP tracer provider and the W3C
// propagators as globals. Disabled tracing returns an inert provider.
func NewTracerProvider(ctx context.Context, cfg TracingConfig, logger *zap.Logger) (*TracerProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Debug("Tracing disabled")
		return &TracerProvider{}, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create OTLP trace exporter: %w", err)
	}
	res, err := cfg.resource()
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(rootSampler(cfg.SamplingRatio))),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Tracing enabled",
		zap.String("collector_endpoint", cfg.Endpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
	)
	return &TracerProvider{provider: provider}, nil
}

func rootSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(ratio)
	}
}

// Shutdown flushes buffered spans
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}
	return shutdownWithin(ctx, "tracer", tp.provider.Shutdown)
}

// Tracer returns a tracer from this provider, or from the global one when
// tracing is disabled.
func (tp *TracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	if tp.provider == nil {
		return otel.GetTracerProvider().Tracer(name, opts...)
	}
	return tp.provider.Tracer(name, opts...)
}

func (tp *TracerProvider) IsEnabled() bool { return tp.provider != nil }
