package handler

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/schoolpay/backend/internal/interfaces/http/dto"
)

// HealthCheck checks one dependency
type HealthCheck func(ctx context.Context) error

// HealthResponse reports the service and its dependencies
type HealthResponse struct {
	Status     string            `json:"status"`
	GoVersion  string            `json:"go_version"`
	Uptime     string            `json:"uptime"`
	Components map[string]string `json:"components,omitempty"`
}

// HealthHandler answers /health
type HealthHandler struct {
	BaseHandler
	startTime time.Time
	timeout   time.Duration
	checks    map[string]HealthCheck
}

// NewHealthHandler creates a HealthHandler running the given checks
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		timeout:   2 * time.Second,
		checks:    checks,
	}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}

// Health runs every check and answers 503 when any of them fails
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status:    "ok",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	if len(names) > 0 {
		resp.Components = make(map[string]string, len(names))
	}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			resp.Components[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[name] = "ok"
	}

	c.JSON(status, dto.Response{Success: status == http.StatusOK, Data: resp})
}
