package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// contextWithValidSpan attaches a well-formed remote span context so the
// trace enrichment path has real IDs to extract.
func contextWithValidSpan(ctx context.Context) (context.Context, trace.SpanContext) {
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10},
		SpanID:     trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(ctx, spanCtx), spanCtx
}

func TestWithContext(t *testing.T) {
	logger, err := NewForEnvironment("development")
	require.NoError(t, err)

	ctx := WithContext(context.Background(), logger)

	assert.Equal(t, logger, FromContext(ctx))
}

func TestFromContext_NotFound(t *testing.T) {
	logger := FromContext(context.Background())

	// Should return a no-op logger
	assert.NotNil(t, logger)
}

func TestWithRequestID(t *testing.T) {
	logger, err := NewForEnvironment("development")
	require.NoError(t, err)

	newCtx, newLogger := WithRequestID(context.Background(), logger, "req-123")

	assert.NotNil(t, newLogger)
	assert.Equal(t, "req-123", GetRequestID(newCtx))
	assert.Equal(t, newLogger, FromContext(newCtx))
}

func TestGetRequestID_NotFound(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestFromContextOr_PrefersAttachedLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	attached := zap.New(core)
	ctx := WithContext(context.Background(), attached)

	FromContextOr(ctx, zap.NewNop()).Info("handled")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "handled", logs.All()[0].Message)
}

func TestFromContextOr_FallbackCarriesRequestID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	fallback := zap.New(core)
	ctx := context.WithValue(context.Background(), RequestIDKey, "req-77")

	FromContextOr(ctx, fallback).Info("handled")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-77", fields["request_id"])
}

func TestFromContextOr_NilFallback(t *testing.T) {
	logger := FromContextOr(context.Background(), nil)

	assert.NotNil(t, logger)
}

func TestFromContextOr_AddsTraceCorrelation(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	fallback := zap.New(core)
	ctx, spanCtx := contextWithValidSpan(context.Background())

	FromContextOr(ctx, fallback).Info("handled")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, spanCtx.TraceID().String(), fields["trace_id"])
	assert.Equal(t, spanCtx.SpanID().String(), fields["span_id"])
}

func TestL_UsesRequestScopedLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx, _ := WithRequestID(context.Background(), zap.New(core), "req-9")

	L(ctx).Warn("slow path")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "slow path", entry.Message)
	assert.Equal(t, "req-9", entry.ContextMap()["request_id"])
}

func TestL_NoAttachedLoggerIsSilent(t *testing.T) {
	// Must not panic without an attached logger
	L(context.Background()).Info("dropped")
}

func TestWithTraceContext_NoSpan(t *testing.T) {
	baseLogger := zap.NewNop()

	enriched := WithTraceContext(context.Background(), baseLogger)

	// Without a span the logger passes through unchanged
	assert.Equal(t, baseLogger, enriched)
}

func TestWithTraceContext_WithSpan(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx, spanCtx := contextWithValidSpan(context.Background())

	WithTraceContext(ctx, zap.New(core)).Info("traced")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, spanCtx.TraceID().String(), fields["trace_id"])
	assert.Equal(t, spanCtx.SpanID().String(), fields["span_id"])
}
