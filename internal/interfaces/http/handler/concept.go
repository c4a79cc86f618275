package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	financeapp "github.com/schoolpay/backend/internal/application/finance"
	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/interfaces/http/middleware"
)

// ConceptManager is the part of the concept service the handler needs
type ConceptManager interface {
	Get(ctx context.Context, id uuid.UUID) (financeapp.ConceptResponse, error)
	Create(ctx context.Context, in financeapp.CreateConceptInput) (financeapp.CreateResult, error)
	Update(ctx context.Context, id uuid.UUID, in financeapp.UpdateConceptInput) (financeapp.UpdateResult, error)
	Activate(ctx context.Context, id uuid.UUID) (financeapp.LifecycleResult, error)
	Disable(ctx context.Context, id uuid.UUID) (financeapp.LifecycleResult, error)
	Finalize(ctx context.Context, id uuid.UUID) (financeapp.LifecycleResult, error)
	SoftDelete(ctx context.Context, id uuid.UUID) (financeapp.LifecycleResult, error)
	UpdateRelations(ctx context.Context, id uuid.UUID, update finance.TargetingUpdate, replace bool) (financeapp.RelationsResult, error)
	Audience(ctx context.Context, id uuid.UUID) (financeapp.AudienceResult, error)
}

// ConceptHandler manages payment concepts
type ConceptHandler struct {
	BaseHandler
	concepts ConceptManager
}

// NewConceptHandler creates a ConceptHandler
func NewConceptHandler(concepts ConceptManager) *ConceptHandler {
	return &ConceptHandler{concepts: concepts}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *ConceptHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/concepts")
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.lifecycle(ConceptManager.SoftDelete))
	g.POST("/:id/activate", h.lifecycle(ConceptManager.Activate))
	g.POST("/:id/disable", h.lifecycle(ConceptManager.Disable))
	g.POST("/:id/finalize", h.lifecycle(ConceptManager.Finalize))
	g.PUT("/:id/relations", h.UpdateRelations)
	g.GET("/:id/audience", h.Audience)
}

// Create handles POST /concepts
func (h *ConceptHandler) Create(c *gin.Context) {
	var req CreateConceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.concepts.Create(c.Request.Context(), req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Get handles GET /concepts/:id
func (h *ConceptHandler) Get(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	concept, err := h.concepts.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, concept)
}

// Update handles PATCH /concepts/:id
func (h *ConceptHandler) Update(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	var req UpdateConceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.concepts.Update(c.Request.Context(), id, req.toInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// lifecycle adapts one of the status transitions to a handler
func (h *ConceptHandler) lifecycle(
	transition func(ConceptManager, context.Context, uuid.UUID) (financeapp.LifecycleResult, error),
) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.bindID(c)
		if !ok {
			return
		}
		result, err := transition(h.concepts, c.Request.Context(), id)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, result)
	}
}

// UpdateRelations handles PUT /concepts/:id/relations?replace=bool
func (h *ConceptHandler) UpdateRelations(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	var q RelationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	var req UpdateRelationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.concepts.UpdateRelations(c.Request.Context(), id, req.toUpdate(), q.Replace)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Audience handles GET /concepts/:id/audience
func (h *ConceptHandler) Audience(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	result, err := h.concepts.Audience(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
