package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/infrastructure/logger"
	"github.com/schoolpay/backend/internal/interfaces/http/dto"
	"github.com/schoolpay/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// errMissingUser is returned when the JWT middleware did not identify a caller
var errMissingUser = errors.New("user ID not found in context")

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := middleware.GetRequestID(c); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// getUserID returns the caller's user ID from the JWT claims
func getUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr := middleware.GetJWTUserID(c)
	if userIDStr == "" {
		return uuid.Nil, errMissingUser
	}
	return uuid.Parse(userIDStr)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts an error into an HTTP response. Domain errors keep
// their code; codes without a mapped status are business rule violations
// and answer 422. Anything else is logged and answered with 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		statusCode, ok := dto.ErrorCodeHTTPStatus[code]
		if !ok {
			statusCode = http.StatusUnprocessableEntity
		}
		h.Error(c, statusCode, code, domainErr.Message)
		return
	}

	logger.FromContext(c.Request.Context()).Error("request failed",
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	h.InternalError(c, "An unexpected error occurred")
}

// bindID parses the :id path parameter, answering 400 when it is not a UUID
func (h *BaseHandler) bindID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid ID format")
		return uuid.Nil, false
	}
	return id, true
}

// callerID returns the authenticated caller, answering 401 when absent
func (h *BaseHandler) callerID(c *gin.Context) (uuid.UUID, bool) {
	id, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return uuid.Nil, false
	}
	return id, true
}
