package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/schoolpay/backend/internal/infrastructure/telemetry"
)

// ProfilingConfig holds configuration for the profiling middleware.
type ProfilingConfig struct {
	// Enabled controls whether profiling labels are added to requests.
	Enabled bool
	// SkipPaths are paths served without labels.
	SkipPaths []string
}

// DefaultProfilingConfig returns default profiling middleware configuration.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:   true,
		SkipPaths: []string{"/health", "/api/v1/health"},
	}
}

// ProfilingWithConfig tags the request goroutine with its route pattern
// and method so CPU profiles can be split per endpoint. Unmatched routes
// are left unlabeled.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		labels := map[string]string{
			telemetry.ProfilingLabelRoute:  c.FullPath(),
			telemetry.ProfilingLabelMethod: c.Request.Method,
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
