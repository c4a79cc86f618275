package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

const (
	defaultExportInterval = time.Minute
	shutdownTimeout       = 10 * time.Second
	serviceVersion        = "1.0.0"
)

// Config holds the collector settings for traces and logs
type Config struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
}

// MetricsConfig holds the collector settings for metrics
type MetricsConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ExportInterval    time.Duration // zero means one minute
	ServiceName       string
	Insecure          bool
}

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}
	return res, nil
}

// newSampler honours the caller's sampling decision and samples root spans
// at ratio. Ratios outside [0, 1] are clamped.
func newSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// shutdownWithin runs an SDK shutdown bounded by shutdownTimeout
func shutdownWithin(ctx context.Context, signal string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return fmt.Errorf("failed to shutdown %s provider: %w", signal, err)
	}
	return nil
}
