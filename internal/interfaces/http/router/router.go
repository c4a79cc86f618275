// Package router assembles the gin engine and the versioned API routes.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/schoolpay/backend/internal/infrastructure/auth"
	"github.com/schoolpay/backend/internal/infrastructure/logger"
	"github.com/schoolpay/backend/internal/infrastructure/telemetry"
	"github.com/schoolpay/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithGroupMiddleware adds middleware that only runs for versioned API routes
func WithGroupMiddleware(handlers ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.middleware = append(r.middleware, handlers...)
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		registrars: make([]RouteRegistrar, 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	if len(r.middleware) > 0 {
		api.Use(r.middleware...)
	}

	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// EngineConfig holds what the global middleware chain needs
type EngineConfig struct {
	Logger         *zap.Logger
	ServiceName    string
	TracingEnabled bool
	MeterProvider  *telemetry.MeterProvider
	MaxBodySize    int64
	AllowOrigins   []string
	TrustedProxies []string
	// ProfilingEnabled adds route labels to continuous profiles
	ProfilingEnabled bool
}

// NewEngine builds a gin engine with the global middleware chain. Request
// IDs come first so every later layer can log and trace them.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.AllowOrigins
	profilingCfg := middleware.DefaultProfilingConfig()
	profilingCfg.Enabled = cfg.ProfilingEnabled

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(cfg.Logger),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.ServiceName,
			Enabled:     cfg.TracingEnabled,
		}),
		middleware.SpanErrorMarker(),
		middleware.ProfilingWithConfig(profilingCfg),
		logger.GinMiddleware(cfg.Logger),
		middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: cfg.MeterProvider,
			Enabled:       true,
		}),
		middleware.CORSWithConfig(corsCfg),
		middleware.Secure(),
	)
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	return engine, nil
}

// APIMiddleware returns the chain for authenticated API routes
func APIMiddleware(jwtService *auth.JWTService, log *zap.Logger) []gin.HandlerFunc {
	jwtCfg := middleware.DefaultJWTConfig(jwtService)
	jwtCfg.Logger = log
	return []gin.HandlerFunc{
		middleware.JWTAuthMiddlewareWithConfig(jwtCfg),
		middleware.TracingAttributeInjector(),
	}
}
