package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/partscatalog/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	attrMethod      = attribute.Key("http.method")
	attrRoute       = attribute.Key("http.route")
	attrStatusGroup = attribute.Key("http.status_group")
)

type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	activeRequests  metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	total, err := telemetry.NewCounter(meter,
		"http_server_request_total", "Total number of HTTP requests", "{request}")
	if err != nil {
		return nil, err
	}
	duration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency distribution in seconds",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return &httpMetrics{requestTotal: total, requestDuration: duration, activeRequests: active}, nil
}

// HTTPMetrics counts and times requests by method, route pattern and
// status class. A nil meter or a failed instrument setup yields a pass-through.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.activeRequests.Add(ctx, 1)

		c.Next()

		m.activeRequests.Add(ctx, -1)
		m.record(ctx, c.Request.Method, routePattern(c), c.Writer.Status(), time.Since(start))
	}
}

func (m *httpMetrics) record(ctx context.Context, method, route string, status int, d time.Duration) {
	base := []attribute.KeyValue{attrMethod.String(method), attrRoute.String(route)}
	m.requestTotal.Inc(ctx, append(base, attrStatusGroup.String(StatusGroup(status)))...)
	m.requestDuration.RecordDuration(ctx, d, base...)
}

// routePattern keeps metric cardinality bounded by using the matched route
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}

// StatusGroup buckets a status code into its class
func StatusGroup(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "other"
	}
}
