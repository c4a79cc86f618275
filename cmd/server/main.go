package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	financeapp "github.com/schoolpay/backend/internal/application/finance"
	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/infrastructure/auth"
	"github.com/schoolpay/backend/internal/infrastructure/cache"
	"github.com/schoolpay/backend/internal/infrastructure/config"
	"github.com/schoolpay/backend/internal/infrastructure/event"
	"github.com/schoolpay/backend/internal/infrastructure/logger"
	"github.com/schoolpay/backend/internal/infrastructure/persistence"
	"github.com/schoolpay/backend/internal/infrastructure/queue"
	"github.com/schoolpay/backend/internal/infrastructure/scheduler"
	"github.com/schoolpay/backend/internal/infrastructure/telemetry"
	"github.com/schoolpay/backend/internal/interfaces/http/handler"
	"github.com/schoolpay/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("Server exited with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

// run wires the application and blocks until a shutdown signal arrives
func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetryCfg, cfg.Telemetry.LogsEnabled, log)
	if err != nil {
		return fmt.Errorf("init log exporter: %w", err)
	}
	if loggerProvider.IsEnabled() {
		level, err := logger.ParseLevel(cfg.Log.Level)
		if err != nil {
			return err
		}
		log = loggerProvider.Bridge(log, level)
	}

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.ProfilingServerAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		BasicAuthUser:     cfg.Telemetry.ProfilingBasicAuthUser,
		BasicAuthPassword: cfg.Telemetry.ProfilingBasicAuthPassword,
		ProfileTypes:      cfg.Telemetry.ProfilingTypes,
		SpanProfiles:      cfg.Telemetry.ProfilingSpanProfiles,
	}, log)
	if err != nil {
		return fmt.Errorf("init profiler: %w", err)
	}
	if cfg.Telemetry.ProfilingSpanProfiles {
		tracerProvider.EnableSpanProfiles(profiler, log)
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return fmt.Errorf("init meter: %w", err)
	}
	financeMetrics, err := telemetry.NewFinanceMetrics(meterProvider.Meter("schoolpay.finance"))
	if err != nil {
		return fmt.Errorf("init finance metrics: %w", err)
	}

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.String("queue_backend", cfg.Queue.Backend),
	)

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if cfg.Telemetry.DBTracing {
		if err := telemetry.RegisterDBTracing(db.DB, cfg.Database.SlowThreshold); err != nil {
			return fmt.Errorf("register db tracing: %w", err)
		}
	}
	var poolMetrics *telemetry.PoolMetrics
	if meterProvider.IsEnabled() {
		poolMetrics, err = telemetry.RegisterPoolMetrics(meterProvider.Meter("schoolpay.db"), func() (telemetry.PoolStats, error) {
			s, err := db.Stats()
			return telemetry.PoolStats(s), err
		}, log)
		if err != nil {
			return fmt.Errorf("register pool metrics: %w", err)
		}
	}

	cacheFactory := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	summaryCache, err := cacheFactory.SummaryCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}

	taskQueue, err := queue.New(ctx, cfg.Queue, cacheFactory, log)
	if err != nil {
		return fmt.Errorf("init task queue: %w", err)
	}
	taskQueue.Register(financeapp.NewInvalidationHandler(summaryCache))

	eventBus := event.NewInMemoryEventBus(log)
	serializer := event.NewEventSerializer()
	event.RegisterFinanceEvents(serializer)
	auditHandler := event.NewAuditLogHandler(serializer, log)
	eventBus.Subscribe(auditHandler, auditHandler.EventTypes()...)

	concepts := persistence.NewGormPaymentConceptRepository(db.DB)
	payments := persistence.NewGormPaymentRepository(db.DB)
	users := persistence.NewGormUserRepository(db.DB)

	summaryService := financeapp.NewSummaryService(concepts, payments, users,
		financeapp.WithSummaryCache(summaryCache),
		financeapp.WithSummaryMetrics(financeMetrics),
	)
	conceptService := financeapp.NewConceptService(
		concepts,
		finance.NewResolver(users),
		financeapp.NewFanOut(taskQueue, cfg.Queue.ChunkSize, financeMetrics),
		financeapp.WithEventPublisher(eventBus),
		financeapp.WithConceptMetrics(financeMetrics),
		financeapp.WithPurgeRetention(cfg.Sweep.Retention),
	)

	sweeper, err := newSweeper(cfg.Sweep, conceptService, log)
	if err != nil {
		return err
	}

	engine, err := router.NewEngine(router.EngineConfig{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: tracerProvider.IsEnabled(),
		MeterProvider:  meterProvider,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		AllowOrigins:   cfg.HTTP.AllowOrigins,
		TrustedProxies: cfg.HTTP.TrustedProxies,

		ProfilingEnabled: profiler.IsEnabled(),
	})
	if err != nil {
		return fmt.Errorf("init http engine: %w", err)
	}

	checks := map[string]handler.HealthCheck{"database": db.Ping}
	if cfg.Cache.Backend == config.BackendRedis || cfg.Queue.Backend == config.BackendRedis {
		checks["redis"] = func(ctx context.Context) error {
			client, err := cacheFactory.RedisClient(ctx)
			if err != nil {
				return err
			}
			return client.Ping(ctx).Err()
		}
	}
	healthHandler := handler.NewHealthHandler(checks)
	engine.GET("/health", healthHandler.Health)

	jwtService := auth.NewJWTService(cfg.JWT)
	router.NewRouter(engine, router.WithGroupMiddleware(router.APIMiddleware(jwtService, log)...)).
		Register(healthHandler).
		Register(handler.NewSummaryHandler(summaryService)).
		Register(handler.NewConceptHandler(conceptService)).
		Setup()

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	if err := taskQueue.Start(workerCtx); err != nil {
		return fmt.Errorf("start task queue: %w", err)
	}
	if err := sweeper.Start(workerCtx); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		log.Info("Shutting down server", zap.String("signal", sig.String()))
	case err := <-serverErr:
		runErr = fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := sweeper.Stop(shutdownCtx); err != nil {
		log.Warn("Sweeper did not stop cleanly", zap.Error(err))
	}
	if err := taskQueue.Stop(shutdownCtx); err != nil {
		log.Warn("Task queue did not stop cleanly", zap.Error(err))
	}
	stopWorkers()
	if err := cacheFactory.Close(); err != nil {
		log.Warn("Failed to close Redis client", zap.Error(err))
	}
	if err := poolMetrics.Unregister(); err != nil {
		log.Warn("Failed to unregister pool metrics", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to shutdown meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to shutdown tracer provider", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Warn("Failed to close database", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Failed to stop profiler", zap.Error(err))
	}

	log.Info("Server exited")
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to shutdown log exporter: %v\n", err)
	}
	return runErr
}

// newSweeper registers the auto-finalize and purge passes
func newSweeper(cfg config.SweepConfig, concepts *financeapp.ConceptService, log *zap.Logger) (*scheduler.Sweeper, error) {
	sweeperCfg := scheduler.DefaultSweeperConfig()
	sweeperCfg.Enabled = cfg.Enabled
	sweeper := scheduler.NewSweeper(sweeperCfg, log)

	err := sweeper.Register(scheduler.Sweep{
		Name:     "finalize",
		Interval: cfg.FinalizeInterval,
		Run: func(ctx context.Context, now time.Time) (int, error) {
			transitions, err := concepts.AutoFinalizeSweep(ctx, now)
			return len(transitions), err
		},
	})
	if err != nil {
		return nil, err
	}

	err = sweeper.Register(scheduler.Sweep{
		Name:     "purge",
		Interval: cfg.PurgeInterval,
		Run: func(ctx context.Context, now time.Time) (int, error) {
			purged, err := concepts.PurgeSweep(ctx, now)
			return len(purged), err
		},
	})
	if err != nil {
		return nil, err
	}
	return sweeper, nil
}
