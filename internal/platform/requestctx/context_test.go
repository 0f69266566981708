package requestctx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func TestLoggerDefaultsToNop(t *testing.T) {
	ctx := context.Background()
	if HasLogger(ctx) {
		t.Fatalf("empty context must not report a logger")
	}
	if Logger(ctx) == nil {
		t.Fatalf("expected no-op logger")
	}

	logger := zap.NewExample()
	ctx = WithLogger(ctx, logger)
	if !HasLogger(ctx) || Logger(ctx) != logger {
		t.Fatalf("expected attached logger")
	}
}

func TestTraceID(t *testing.T) {
	if got := TraceID(context.Background()); got != "" {
		t.Fatalf("expected empty trace id, got %q", got)
	}

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))
	if got := TraceID(ctx); got != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("unexpected trace id %q", got)
	}
}
