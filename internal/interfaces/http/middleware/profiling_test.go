package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func labelsSeenBy(t *testing.T, cfg ProfilingConfig, path string) map[string]string {
	t.Helper()

	seen := map[string]string{}
	record := func(c *gin.Context) {
		pprof.ForLabels(c.Request.Context(), func(key, value string) bool {
			seen[key] = value
			return true
		})
		c.Status(http.StatusOK)
	}

	router := gin.New()
	router.Use(ProfilingWithConfig(cfg))
	router.GET("/api/v1/concepts/:id", record)
	router.GET("/health", record)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	return seen
}

func TestProfiling_LabelsRoutePattern(t *testing.T) {
	seen := labelsSeenBy(t, DefaultProfilingConfig(), "/api/v1/concepts/42")

	assert.Equal(t, map[string]string{
		"route":  "/api/v1/concepts/:id",
		"method": http.MethodGet,
	}, seen)
}

func TestProfiling_SkipsHealth(t *testing.T) {
	seen := labelsSeenBy(t, DefaultProfilingConfig(), "/health")
	assert.Empty(t, seen)
}

func TestProfiling_Disabled(t *testing.T) {
	seen := labelsSeenBy(t, ProfilingConfig{Enabled: false}, "/api/v1/concepts/42")
	assert.Empty(t, seen)
}
