package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// AttrDBState labels pool connections by state
var AttrDBState = attribute.Key("state")

// PoolStats is a snapshot of the database connection pool
type PoolStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
}

// PoolStatsFunc reads the current pool statistics
type PoolStatsFunc func() (PoolStats, error)

// PoolMetrics exports connection pool gauges. The pool is read once per
// metric collection, so no background goroutine is needed.
type PoolMetrics struct {
	registration metric.Registration
}

// RegisterPoolMetrics registers observable pool instruments on meter that
// read stats on every collection. Unregister stops the observation.
func RegisterPoolMetrics(meter metric.Meter, stats PoolStatsFunc, logger *zap.Logger) (*PoolMetrics, error) {
	if meter == nil {
		return nil, errors.New("RegisterPoolMetrics: meter cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	connections, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Number of connections in the pool by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create gauge db_pool_connections: %w", err)
	}
	connectionsMax, err := meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Maximum number of open connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create gauge db_pool_connections_max: %w", err)
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connections that had to wait for a free slot"),
		metric.WithUnit("{wait}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter db_pool_wait_total: %w", err)
	}
	waitDuration, err := meter.Float64ObservableCounter("db_pool_wait_duration_seconds",
		metric.WithDescription("Total time spent waiting for a connection"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter db_pool_wait_duration_seconds: %w", err)
	}

	registration, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s, err := stats()
		if err != nil {
			logger.Warn("Failed to read connection pool stats", zap.Error(err))
			return nil
		}
		o.ObserveInt64(connections, int64(s.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(connections, int64(s.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(connections, int64(s.OpenConnections), metric.WithAttributes(AttrDBState.String("open")))
		o.ObserveInt64(connectionsMax, int64(s.MaxOpenConnections))
		o.ObserveInt64(waits, s.WaitCount)
		o.ObserveFloat64(waitDuration, s.WaitDuration.Seconds())
		return nil
	}, connections, connectionsMax, waits, waitDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to register pool stats callback: %w", err)
	}

	return &PoolMetrics{registration: registration}, nil
}

// Unregister stops observing the pool. Safe on a nil receiver.
func (m *PoolMetrics) Unregister() error {
	if m == nil || m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}
