package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AttrResult splits counters and histograms by outcome
var AttrResult = attribute.Key("result")

var (
	// PushDurationBuckets fit catalog API round trips, in seconds
	PushDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
	// HTTPDurationBuckets fit admin API requests, in seconds
	HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
)

// Counter is a monotonic int64 counter
type Counter struct {
	inst metric.Int64Counter
}

func NewCounter(meter metric.Meter, name, description, unit string) (*Counter, error) {
	inst, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", name, err)
	}
	return &Counter{inst: inst}, nil
}

func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.inst.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// HistogramOpts describes a float64 histogram. Nil Boundaries keeps the SDK
// defaults.
type HistogramOpts struct {
	Name        string
	Description string
	Unit        string
	Boundaries  []float64
}

// Histogram records durations in seconds
type Histogram struct {
	inst metric.Float64Histogram
}

func NewHistogram(meter metric.Meter, opts HistogramOpts) (*Histogram, error) {
	hopts := []metric.Float64HistogramOption{
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	}
	if len(opts.Boundaries) > 0 {
		hopts = append(hopts, metric.WithExplicitBucketBoundaries(opts.Boundaries...))
	}
	inst, err := meter.Float64Histogram(opts.Name, hopts...)
	if err != nil {
		return nil, fmt.Errorf("histogram %s: %w", opts.Name, err)
	}
	return &Histogram{inst: inst}, nil
}

func (h *Histogram) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.inst.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}
