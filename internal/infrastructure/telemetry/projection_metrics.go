package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// Push results used as the result attribute
const (
	PushResultSuccess = "success"
	PushResultFailure = "failure"
)

// ProjectionMetrics counts and times projection pushes to the external catalog.
type ProjectionMetrics struct {
	pushTotal    *Counter
	pushDuration *Histogram
}

// NewProjectionMetrics registers the projection instruments on meter.
func NewProjectionMetrics(meter metric.Meter) (*ProjectionMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	total, err := NewCounter(meter, "projection_push_total", "Projection pushes by result", "{pushes}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "projection_push_duration",
		Description: "Duration of projection pushes",
		Unit:        "s",
		Boundaries:  PushDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &ProjectionMetrics{pushTotal: total, pushDuration: duration}, nil
}

// RecordPush records one push attempt. A nil receiver is a no-op.
func (m *ProjectionMetrics) RecordPush(ctx context.Context, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := PushResultSuccess
	if err != nil {
		result = PushResultFailure
	}
	m.pushTotal.Inc(ctx, AttrResult.String(result))
	m.pushDuration.RecordDuration(ctx, d, AttrResult.String(result))
}

// ErrMeterNil is returned by NewProjectionMetrics for a nil meter
var ErrMeterNil = errors.New("telemetry: meter is nil")
