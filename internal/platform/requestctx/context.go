// Package requestctx carries per-request values that several layers read
// without importing each other.
package requestctx

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type loggerKey struct{}

var nop = zap.NewNop()

// WithLogger attaches the request logger. A nil logger is stored as a no-op.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		logger = nop
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Logger never returns nil.
func Logger(ctx context.Context) *zap.Logger {
	if logger, ok := lookupLogger(ctx); ok {
		return logger
	}
	return nop
}

func HasLogger(ctx context.Context) bool {
	_, ok := lookupLogger(ctx)
	return ok
}

func lookupLogger(ctx context.Context) (*zap.Logger, bool) {
	if ctx == nil {
		return nil, false
	}
	logger, ok := ctx.Value(loggerKey{}).(*zap.Logger)
	return logger, ok && logger != nil
}

// TraceID returns the hex id of the span active on ctx, or "" outside a trace.
func TraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
