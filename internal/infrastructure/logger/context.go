package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey     contextKey = "logger"
	requestIDKey  contextKey = "request_id"
	productGIDKey contextKey = "product_gid"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request id and a logger carrying it
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithProductGID stores the product being mutated or rebuilt
func WithProductGID(ctx context.Context, logger *zap.Logger, gid string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, productGIDKey, gid)
	enriched := logger.With(zap.String("product_gid", gid))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// GetProductGID retrieves the product gid from context
func GetProductGID(ctx context.Context) string {
	v, _ := ctx.Value(productGIDKey).(string)
	return v
}

// L returns the context logger with trace_id and span_id added when a span is active.
//
//	logger.L(ctx).Warn("projection push failed", zap.Error(err))
func L(ctx context.Context) *zap.Logger {
	l := FromContext(ctx)
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", spanCtx.TraceID().String()),
		zap.String("span_id", spanCtx.SpanID().String()),
	)
}
