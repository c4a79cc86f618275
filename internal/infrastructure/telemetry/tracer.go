package telemetry

import (
	"context"
	"fmt"

	otelpyroscope "github.com/grafana/otel-profiling-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// TracerProvider owns the span exporter. When tracing is disabled the
// global no-op provider stays in place and spans started through
// StartSpan cost nothing.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
}

// NewTracerProvider installs a batching OTLP/gRPC span exporter as the
// global tracer provider, together with W3C trace context propagation.
func NewTracerProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*TracerProvider, error) {
	tp := &TracerProvider{}
	if !cfg.Enabled {
		logger.Info("Tracing disabled")
		return tp, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	tp.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SamplingRatio)),
	)
	otel.SetTracerProvider(tp.provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Tracing enabled",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio),
		zap.String("service_name", cfg.ServiceName),
	)
	return tp, nil
}

// EnableSpanProfiles installs a global tracer provider that tags CPU
// samples with the active span ID. The profiler must already be running.
// It reports whether the wrapper was installed.
func (tp *TracerProvider) EnableSpanProfiles(profiler *Profiler, logger *zap.Logger) bool {
	if !tp.IsEnabled() || !profiler.IsEnabled() {
		return false
	}
	otel.SetTracerProvider(otelpyroscope.NewTracerProvider(tp.provider))
	logger.Info("Span profiles enabled")
	return true
}

// IsEnabled reports whether spans are exported
func (tp *TracerProvider) IsEnabled() bool {
	return tp != nil && tp.provider != nil
}

// Shutdown flushes pending spans and stops the exporter
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if !tp.IsEnabled() {
		return nil
	}
	return shutdownWithin(ctx, "tracer", tp.provider.Shutdown)
}
