package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// FinanceMetrics tracks fan-out, sweep and summary cache activity.
// A nil *FinanceMetrics is valid and records nothing.
type FinanceMetrics struct {
	tasksEnqueued    *Counter
	usersInvalidated *Counter
	sweepTransitions *Counter
	summaryLookups   *Counter
	summaryDuration  *Histogram
}

// NewFinanceMetrics registers the finance instruments on meter
func NewFinanceMetrics(meter metric.Meter) (*FinanceMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	fm := &FinanceMetrics{}
	var err error

	fm.tasksEnqueued, err = NewCounter(meter,
		"schoolpay_invalidation_tasks_total",
		"Cache invalidation tasks enqueued",
		"{tasks}")
	if err != nil {
		return nil, err
	}

	fm.usersInvalidated, err = NewCounter(meter,
		"schoolpay_invalidated_users_total",
		"Users whose summary caches were scheduled for invalidation",
		"{users}")
	if err != nil {
		return nil, err
	}

	fm.sweepTransitions, err = NewCounter(meter,
		"schoolpay_sweep_concepts_total",
		"Concepts finalized or purged by lifecycle sweeps",
		"{concepts}")
	if err != nil {
		return nil, err
	}

	fm.summaryLookups, err = NewCounter(meter,
		"schoolpay_summary_lookups_total",
		"Summary reads split by cache hit",
		"{lookups}")
	if err != nil {
		return nil, err
	}

	fm.summaryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "schoolpay_summary_duration_seconds",
		Description: "Time spent computing an uncached summary",
		Unit:        "s",
		Boundaries:  []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})
	if err != nil {
		return nil, err
	}

	return fm, nil
}

// RecordFanOut records the tasks and users of one fan-out
func (fm *FinanceMetrics) RecordFanOut(ctx context.Context, taskType string, tasks, users int) {
	if fm == nil {
		return
	}
	fm.tasksEnqueued.Add(ctx, int64(tasks), AttrTaskType.String(taskType))
	fm.usersInvalidated.Add(ctx, int64(users), AttrTaskType.String(taskType))
}

// RecordSweep records how many concepts a sweep run changed
func (fm *FinanceMetrics) RecordSweep(ctx context.Context, sweep string, n int) {
	if fm == nil || n == 0 {
		return
	}
	fm.sweepTransitions.Add(ctx, int64(n), AttrSweep.String(sweep))
}

// RecordSummaryLookup records one summary read
func (fm *FinanceMetrics) RecordSummaryLookup(ctx context.Context, kind string, hit bool) {
	if fm == nil {
		return
	}
	fm.summaryLookups.Inc(ctx, AttrCacheHit.Bool(hit), attributeKind.String(kind))
}

// RecordSummaryDuration records the compute time of an uncached summary
func (fm *FinanceMetrics) RecordSummaryDuration(ctx context.Context, kind string, d time.Duration) {
	if fm == nil {
		return
	}
	fm.summaryDuration.RecordDuration(ctx, d, attributeKind.String(kind))
}
