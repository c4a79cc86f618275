package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when an instrument set is built without a meter
var ErrMeterNil = errors.New("NewFinanceMetrics: meter cannot be nil")

// Metric attribute keys
var (
	AttrTaskType  = attribute.Key("task_type")
	AttrSweep     = attribute.Key("sweep")
	AttrAppliesTo = attribute.Key("applies_to")
	AttrCacheHit  = attribute.Key("cache_hit")

	attributeKind = attribute.Key("summary_kind")
)

// Counter wraps a monotonic int64 counter
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter registers a counter on meter
func NewCounter(meter metric.Meter, name, description, unit string) (*Counter, error) {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return &Counter{counter: c}, nil
}

// Add increments the counter by value
func (c *Counter) Add(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

// Inc increments the counter by one
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, attrs...)
}

// HistogramOpts describes a float64 histogram. Empty Boundaries keep the
// SDK default buckets.
type HistogramOpts struct {
	Name        string
	Description string
	Unit        string
	Boundaries  []float64
}

// Histogram wraps a float64 histogram
type Histogram struct {
	histogram metric.Float64Histogram
}

// NewHistogram registers a histogram on meter
func NewHistogram(meter metric.Meter, opts HistogramOpts) (*Histogram, error) {
	options := []metric.Float64HistogramOption{
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	}
	if len(opts.Boundaries) > 0 {
		options = append(options, metric.WithExplicitBucketBoundaries(opts.Boundaries...))
	}

	h, err := meter.Float64Histogram(opts.Name, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", opts.Name, err)
	}
	return &Histogram{histogram: h}, nil
}

// Record adds one observation
func (h *Histogram) Record(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}

// RecordDuration adds d in seconds
func (h *Histogram) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.Record(ctx, d.Seconds(), attrs...)
}
