package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName scopes spans and instruments created by this module
const InstrumentationName = "github.com/partscatalog/backend"

// Span attributes for catalog work
var (
	AttrProductGID   = attribute.Key("catalog.product_gid")
	AttrCategorySlug = attribute.Key("catalog.category_slug")
)

// StartSpan opens an internal span on the global tracer provider. The caller
// ends it.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(InstrumentationName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// RecordError marks span failed with err. Nil arguments are ignored.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// GetTraceID returns the hex trace id active in ctx, or "" outside a trace
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
