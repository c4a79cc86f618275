package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultSlowThreshold = 200 * time.Millisecond

	// maxLoggedSQL bounds statements such as multi-row target inserts
	maxLoggedSQL = 2048
)

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
	"debug":  gormlogger.Info,
}

// GormLogger routes GORM output to zap. Statements log at debug, slow
// statements at warn and failures at error, each tagged with the request
// and trace IDs found on the context.
type GormLogger struct {
	logger        *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
	skipNotFound  bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration above which a statement is slow.
// Zero disables slow statement warnings.
func WithSlowThreshold(threshold time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowThreshold = threshold }
}

// WithIgnoreRecordNotFoundError controls whether gorm.ErrRecordNotFound is
// logged. Lookups that miss are expected, so it is ignored by default.
func WithIgnoreRecordNotFoundError(ignore bool) GormLoggerOption {
	return func(l *GormLogger) { l.skipNotFound = ignore }
}

// NewGormLogger creates a GORM logger writing to a "gorm" child of zapLogger
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		logger:        zapLogger.Named("gorm"),
		level:         level,
		slowThreshold: defaultSlowThreshold,
		skipNotFound:  true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MapGormLogLevel maps a config level name to a GORM level, defaulting to warn
func MapGormLogLevel(level string) gormlogger.LogLevel {
	if l, ok := gormLevels[strings.ToLower(level)]; ok {
		return l
	}
	return gormlogger.Warn
}

// LogMode returns a copy logging at level
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		l.logger.Info(fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		l.logger.Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		l.logger.Error(fmt.Sprintf(msg, data...))
	}
}

// Trace logs one executed statement
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && l.level >= gormlogger.Error:
		if l.skipNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		l.logger.Error("SQL Error", append(statementFields(ctx, elapsed, fc), zap.Error(err))...)

	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		l.logger.Warn("Slow SQL", append(statementFields(ctx, elapsed, fc), zap.Duration("threshold", l.slowThreshold))...)

	case l.level >= gormlogger.Info:
		l.logger.Debug("SQL", statementFields(ctx, elapsed, fc)...)
	}
}

// statementFields renders the statement only once a record will be written
func statementFields(ctx context.Context, elapsed time.Duration, fc func() (string, int64)) []zap.Field {
	sql, rows := fc()
	if len(sql) > maxLoggedSQL {
		sql = sql[:maxLoggedSQL] + "..."
	}

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	}
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := GetUserID(ctx); id != "" {
		fields = append(fields, zap.String("user_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
	}
	return fields
}
