package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

type dbContextKey string

const queryStartKey dbContextKey = "otel_query_start"

// RegisterDBTracing installs the otelgorm plugin on db and marks queries
// slower than slowThreshold on their span. Query variables are never
// recorded; they carry user ids and amounts.
func RegisterDBTracing(db *gorm.DB, slowThreshold time.Duration) error {
	if err := db.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName("postgresql"),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) {
		if tx.Statement.Context != nil {
			tx.Statement.Context = context.WithValue(tx.Statement.Context, queryStartKey, time.Now())
		}
	}
	after := func(tx *gorm.DB) {
		markQuerySpan(tx, slowThreshold)
	}

	cb := db.Callback()
	registrations := []error{
		cb.Create().Before("gorm:create").Register("otel_timing:before_create", before),
		cb.Query().Before("gorm:query").Register("otel_timing:before_query", before),
		cb.Update().Before("gorm:update").Register("otel_timing:before_update", before),
		cb.Delete().Before("gorm:delete").Register("otel_timing:before_delete", before),
		cb.Row().Before("gorm:row").Register("otel_timing:before_row", before),
		cb.Raw().Before("gorm:raw").Register("otel_timing:before_raw", before),
		cb.Create().After("gorm:create").Register("otel_timing:after_create", after),
		cb.Query().After("gorm:query").Register("otel_timing:after_query", after),
		cb.Update().After("gorm:update").Register("otel_timing:after_update", after),
		cb.Delete().After("gorm:delete").Register("otel_timing:after_delete", after),
		cb.Row().After("gorm:row").Register("otel_timing:after_row", after),
		cb.Raw().After("gorm:raw").Register("otel_timing:after_raw", after),
	}
	return errors.Join(registrations...)
}

func markQuerySpan(tx *gorm.DB, slowThreshold time.Duration) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	if tx.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", tx.Statement.Table))
	}
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, tx.Error.Error())
		span.RecordError(tx.Error)
	}
	if start, ok := ctx.Value(queryStartKey).(time.Time); ok {
		if elapsed := time.Since(start); elapsed > slowThreshold {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
		}
	}
}
