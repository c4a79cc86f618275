package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerProvider wraps the OpenTelemetry LoggerProvider that receives
// bridged zap records
type LoggerProvider struct {
	provider    *sdklog.LoggerProvider
	serviceName string
}

// NewLoggerProvider creates an OTLP log exporter. When disabled the returned
// provider bridges nothing.
func NewLoggerProvider(ctx context.Context, cfg Config, enabled bool, logger *zap.Logger) (*LoggerProvider, error) {
	lp := &LoggerProvider{serviceName: cfg.ServiceName}
	if !enabled {
		return lp, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP logs exporter: %w", err)
	}

	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}
	lp.provider = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(lp.provider)

	logger.Info("OpenTelemetry LoggerProvider initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
	)
	return lp, nil
}

// IsEnabled reports whether logs are exported
func (lp *LoggerProvider) IsEnabled() bool {
	return lp != nil && lp.provider != nil
}

// Shutdown flushes and stops the exporter
func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if !lp.IsEnabled() {
		return nil
	}
	return shutdownWithin(ctx, "logger", lp.provider.Shutdown)
}

// Bridge returns a logger writing to both base and the OTLP exporter at
// level and above. Without an enabled provider base is returned unchanged.
func (lp *LoggerProvider) Bridge(base *zap.Logger, level zapcore.Level) *zap.Logger {
	if !lp.IsEnabled() {
		return base
	}
	core := otelzap.NewCore(lp.serviceName, otelzap.WithLoggerProvider(lp.provider))
	return base.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, &levelFilterCore{Core: core, minLevel: level})
	}))
}

// levelFilterCore drops records below minLevel; the otelzap core has no
// level of its own
type levelFilterCore struct {
	zapcore.Core
	minLevel zapcore.Level
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.minLevel && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return ce
	}
	return c.Core.Check(entry, ce)
}

func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{Core: c.Core.With(fields), minLevel: c.minLevel}
}
