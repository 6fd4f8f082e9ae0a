// Package middleware provides gin middleware for the admin API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/partscatalog/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength caps the request id copied into span attributes
const MaxRequestIDLength = 128

// TraceIDHeader carries the server trace id on responses
const TraceIDHeader = "X-Trace-ID"

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// Tracing returns the otelgin server-span middleware, or a pass-through when disabled.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// SpanAttributes tags the server span with the request id and, on product
// routes, the gid path parameter. The trace id is returned in TraceIDHeader. Responses with status >= 500 mark the span
// as failed. It must be registered after Tracing.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if id := GetRequestID(c); id != "" {
				if len(id) > MaxRequestIDLength {
					id = id[:MaxRequestIDLength]
				}
				span.SetAttributes(attribute.String("request_id", id))
			}
			if gid := c.Param("gid"); gid != "" {
				span.SetAttributes(telemetry.AttrProductGID.String(gid))
			}
		}
		if traceID := telemetry.GetTraceID(c.Request.Context()); traceID != "" {
			c.Header(TraceIDHeader, traceID)
		}

		c.Next()

		if status := c.Writer.Status(); status >= http.StatusInternalServerError && span.IsRecording() {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
