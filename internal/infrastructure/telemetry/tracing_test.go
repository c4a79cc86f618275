package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// setupTestTracer installs an in-memory span recorder as the global provider
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})

	return sr
}

func attributeMap(span sdktrace.ReadOnlySpan) map[string]any {
	out := make(map[string]any)
	for _, attr := range span.Attributes() {
		out[string(attr.Key)] = attr.Value.AsInterface()
	}
	return out
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "concept", "activate",
		telemetry.WithSpanKind(trace.SpanKindServer))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "concept.activate", spans[0].Name())
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)
	conceptID := uuid.New()

	_, span := telemetry.StartSpan(context.Background(), "summary.pending")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrConceptID, conceptID,
		telemetry.SpanAttrAudienceSize, 42,
		telemetry.SpanAttrOnlyThisYear, true,
		7, "ignored",
	)
	span.End()

	attrs := attributeMap(sr.Ended()[0])
	assert.Equal(t, conceptID.String(), attrs["concept_id"])
	assert.Equal(t, int64(42), attrs["audience_size"])
	assert.Equal(t, true, attrs["only_this_year"])
	assert.Len(t, attrs, 3)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "concept.finalize")
	telemetry.RecordError(span, errors.New("boom"))
	telemetry.RecordError(span, nil)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "boom", spans[0].Status().Description)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "fanout.dispatch")
	telemetry.AddEvent(span, "chunk_enqueued", telemetry.SpanAttrChunkCount, 2)
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "chunk_enqueued", events[0].Name)
}

func TestGetTraceID(t *testing.T) {
	setupTestTracer(t)

	assert.Empty(t, telemetry.GetTraceID(context.Background()))

	ctx, span := telemetry.StartSpan(context.Background(), "op")
	defer span.End()
	assert.Len(t, telemetry.GetTraceID(ctx), 32)
}

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{Enabled: false}, zapNop())
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.ForceFlush(context.Background()))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{Enabled: false}, zapNop())
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func zapNop() *zap.Logger { return zap.NewNop() }
