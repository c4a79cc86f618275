package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	financeapp "github.com/schoolpay/backend/internal/application/finance"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/interfaces/http/middleware"
)

// SummaryReader is the part of the summary service the handler needs
type SummaryReader interface {
	Pending(ctx context.Context, userID uuid.UUID, onlyThisYear bool) (financeapp.DebtSummary, error)
	Overdue(ctx context.Context, userID uuid.UUID, onlyThisYear bool) (financeapp.DebtSummary, error)
	PaymentsMade(ctx context.Context, userID uuid.UUID, onlyThisYear bool) (financeapp.PaymentsSummary, error)
	PaymentHistory(ctx context.Context, userID uuid.UUID, page, perPage int, onlyThisYear bool) (shared.Page[financeapp.PaymentRecord], error)
}

// SummaryQuery is the query string shared by the summary endpoints
type SummaryQuery struct {
	OnlyThisYear bool `form:"only_this_year"`
}

// HistoryQuery pages through a user's payments
type HistoryQuery struct {
	SummaryQuery
	Page    int `form:"page" binding:"omitempty,min=1"`
	PerPage int `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// SummaryHandler serves per-user debt and payment summaries, both for the
// caller and, under /users/:id, for any user
type SummaryHandler struct {
	BaseHandler
	summaries SummaryReader
}

// NewSummaryHandler creates a SummaryHandler
func NewSummaryHandler(summaries SummaryReader) *SummaryHandler {
	return &SummaryHandler{summaries: summaries}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *SummaryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	me := rg.Group("/me")
	me.GET("/summary/pending", h.mine(h.pending))
	me.GET("/summary/overdue", h.mine(h.overdue))
	me.GET("/summary/payments", h.mine(h.paymentsMade))
	me.GET("/payments", h.mine(h.history))

	users := rg.Group("/users/:id")
	users.GET("/summary/pending", h.forUser(h.pending))
	users.GET("/summary/overdue", h.forUser(h.overdue))
	users.GET("/summary/payments", h.forUser(h.paymentsMade))
}

type summaryEndpoint func(c *gin.Context, userID uuid.UUID)

// mine runs the endpoint for the authenticated caller
func (h *SummaryHandler) mine(fn summaryEndpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, ok := h.callerID(c); ok {
			fn(c, userID)
		}
	}
}

// forUser runs the endpoint for the user named in the path
func (h *SummaryHandler) forUser(fn summaryEndpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, ok := h.bindID(c); ok {
			fn(c, userID)
		}
	}
}

func (h *SummaryHandler) bindSummaryQuery(c *gin.Context) (SummaryQuery, bool) {
	var q SummaryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return q, false
	}
	return q, true
}

func (h *SummaryHandler) pending(c *gin.Context, userID uuid.UUID) {
	q, ok := h.bindSummaryQuery(c)
	if !ok {
		return
	}
	summary, err := h.summaries.Pending(c.Request.Context(), userID, q.OnlyThisYear)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

func (h *SummaryHandler) overdue(c *gin.Context, userID uuid.UUID) {
	q, ok := h.bindSummaryQuery(c)
	if !ok {
		return
	}
	summary, err := h.summaries.Overdue(c.Request.Context(), userID, q.OnlyThisYear)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

func (h *SummaryHandler) paymentsMade(c *gin.Context, userID uuid.UUID) {
	q, ok := h.bindSummaryQuery(c)
	if !ok {
		return
	}
	summary, err := h.summaries.PaymentsMade(c.Request.Context(), userID, q.OnlyThisYear)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

func (h *SummaryHandler) history(c *gin.Context, userID uuid.UUID) {
	var q HistoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	page, err := h.summaries.PaymentHistory(c.Request.Context(), userID, q.Page, q.PerPage, q.OnlyThisYear)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, page)
}
