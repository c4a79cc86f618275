// Package middleware provides the gin middleware of the payment API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength is the longest client supplied request ID that is kept
const MaxRequestIDLength = 128

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	// ServiceName is the name of the service for trace identification.
	ServiceName string
	// Enabled controls whether tracing is active.
	Enabled bool
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "schoolpay-backend",
		Enabled:     true,
	}
}

// Tracing returns OpenTelemetry tracing middleware with default configuration.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig returns the otelgin middleware, which opens one server
// span per request named after the matched route. Request and user
// attributes are added by TracingAttributeInjector once they are known.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// TracingAttributeInjector adds request_id and user_id to the current span.
// It belongs after both Tracing and the JWT middleware in the chain.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if requestID := GetRequestID(c); requestID != "" {
				span.SetAttributes(attribute.String("request_id", requestID))
			}
			if userID := GetJWTUserID(c); userID != "" {
				span.SetAttributes(attribute.String("user_id", userID))
			}
		}
		c.Next()
	}
}

// SpanErrorMarker marks the span as failed for 4xx and 5xx responses.
// It must run inside Tracing so the span is still open.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		statusCode := c.Writer.Status()
		if statusCode < http.StatusBadRequest {
			return
		}
		message := http.StatusText(statusCode)
		if len(c.Errors) > 0 {
			message = c.Errors.Last().Error()
		}
		span.SetStatus(codes.Error, message)
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
	}
}
