// Package telemetry wires traces, metrics and logs to an OTLP collector.
// Each signal can be switched off on its own; a disabled provider leaves the
// global no-op implementation in place and its methods stay safe to call.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

const shutdownTimeout = 10 * time.Second

// Collector identifies the OTLP gRPC endpoint and the service reporting to it
type Collector struct {
	Endpoint       string
	Insecure       bool
	ServiceName    string
	ServiceVersion string
	Environment    string
}

func (c Collector) resource() (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(c.ServiceName)}
	if c.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(c.ServiceVersion))
	}
	if c.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironmentName(c.Environment))
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}
	return res, nil
}

// shutdownWithin bounds a provider shutdown to shutdownTimeout
func shutdownWithin(ctx context.Context, signal string, shutdown func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown %s provider: %w", signal, err)
	}
	return nil
}
