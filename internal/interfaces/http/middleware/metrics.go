package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/schoolpay/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTP metric attribute keys
var (
	attrHTTPMethod     = attribute.Key("http_method")
	attrHTTPRoute      = attribute.Key("http_route")
	attrHTTPStatusCode = attribute.Key("http_status_code")
)

// httpDurationBuckets are tuned for summary reads answered from cache
var httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// HTTPMetricsConfig holds configuration for HTTP metrics middleware.
type HTTPMetricsConfig struct {
	// MeterProvider is the OpenTelemetry meter provider.
	MeterProvider *telemetry.MeterProvider
	// Enabled controls whether metrics collection is active.
	Enabled bool
}

// httpMetrics holds all HTTP-related metrics instruments.
type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration *telemetry.Histogram
	responseSize    *telemetry.Histogram
	activeRequests  metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requestTotal, err := telemetry.NewCounter(
		meter,
		"http_server_request_total",
		"Total number of HTTP requests",
		"{request}",
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency distribution in seconds",
		Unit:        "s",
		Boundaries:  httpDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	responseSize, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_response_size_bytes",
		Description: "HTTP response body size distribution in bytes",
		Unit:        "By",
		Boundaries:  []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000},
	})
	if err != nil {
		return nil, err
	}

	activeRequests, err := meter.Int64UpDownCounter(
		"http_server_active_requests",
		metric.WithDescription("Number of currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &httpMetrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		responseSize:    responseSize,
		activeRequests:  activeRequests,
	}, nil
}

// HTTPMetrics returns a Gin middleware that records request count, latency,
// response size and in-flight requests per route.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("http.server"), true)
}

// HTTPMetricsWithMeter returns HTTP metrics middleware using an existing meter.
func HTTPMetricsWithMeter(meter metric.Meter, enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	metrics, err := newHTTPMetrics(meter)
	if err != nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return httpMetricsMiddleware(metrics)
}

func httpMetricsMiddleware(metrics *httpMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		metrics.activeRequests.Add(ctx, 1)
		c.Next()
		metrics.activeRequests.Add(ctx, -1)

		// Route pattern, not the raw path, keeps cardinality bounded
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		routeAttrs := []attribute.KeyValue{
			attrHTTPMethod.String(c.Request.Method),
			attrHTTPRoute.String(route),
		}

		metrics.requestTotal.Inc(ctx, append(routeAttrs, attrHTTPStatusCode.Int(c.Writer.Status()))...)
		metrics.requestDuration.RecordDuration(ctx, time.Since(start), routeAttrs...)
		if size := c.Writer.Size(); size > 0 {
			metrics.responseSize.Record(ctx, float64(size), routeAttrs...)
		}
	}
}
