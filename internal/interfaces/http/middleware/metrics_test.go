package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupTestMeter sets up a test meter provider and reader.
func setupTestMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
	})

	return mp, reader
}

// findMetricByName collects from the reader and returns the named metric.
func findMetricByName(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestHTTPMetrics_Disabled(t *testing.T) {
	for name, cfg := range map[string]HTTPMetricsConfig{
		"disabled":          {Enabled: false},
		"no meter provider": {Enabled: true},
	} {
		t.Run(name, func(t *testing.T) {
			router := gin.New()
			router.Use(HTTPMetrics(cfg))
			router.GET("/test", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"message": "ok"})
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestHTTPMetricsWithMeter_RecordsPerRoute(t *testing.T) {
	mp, reader := setupTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true))
	router.GET("/users/:id/summary/pending", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"total_amount": "0.00"})
	})

	for _, id := range []string{"a", "b", "c"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/"+id+"/summary/pending", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	m := findMetricByName(t, reader, "http_server_request_total")
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
	route, found := sum.DataPoints[0].Attributes.Value(attrHTTPRoute)
	require.True(t, found)
	assert.Equal(t, "/users/:id/summary/pending", route.AsString())
}

func TestHTTPMetricsWithMeter_Duration(t *testing.T) {
	mp, reader := setupTestMeter(t)

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	m := findMetricByName(t, reader, "http_server_request_duration_seconds")
	require.NotNil(t, m)
	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}
