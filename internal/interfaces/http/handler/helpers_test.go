package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	financeapp "github.com/schoolpay/backend/internal/application/finance"
	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/interfaces/http/dto"
	"github.com/schoolpay/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

type MockSummaryReader struct {
	mock.Mock
}

func (m *MockSummaryReader) Pending(ctx context.Context, userID uuid.UUID, onlyThisYear bool) (financeapp.DebtSummary, error) {
	args := m.Called(ctx, userID, onlyThisYear)
	return args.Get(0).(financeapp.DebtSummary), args.Error(1)
}

func (m *MockSummaryReader) Overdue(ctx context.Context, userID uuid.UUID, onlyThisYear bool) (financeapp.DebtSummary, error) {
	args := m.Called(ctx, userID, onlyThisYear)
	return args.Get(0).(financeapp.DebtSummary), args.Error(1)
}

func (m *MockSummaryReader) PaymentsMade(ctx context.Context, userID uuid.UUID, onlyThisYear bool) (financeapp.PaymentsSummary, error) {
	args := m.Called(ctx, userID, onlyThisYear)
	return args.Get(0).(financeapp.PaymentsSummary), args.Error(1)
}

func (m *MockSummaryReader) PaymentHistory(ctx context.Context, userID uuid.UUID, page, perPage int, onlyThisYear bool) (shared.Page[financeapp.PaymentRecord], error) {
	args := m.Called(ctx, userID, page, perPage, onlyThisYear)
	return args.Get(0).(shared.Page[financeapp.PaymentRecord]), args.Error(1)
}

type MockConceptManager struct {
	mock.Mock
}

func (m *MockConceptManager) Get(ctx context.Context, id uuid.UUID) (financeapp.ConceptResponse, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(financeapp.ConceptResponse), args.Error(1)
}

func (m *MockConceptManager) Create(ctx context.Context, in financeapp.CreateConceptInput) (financeapp.CreateResult, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(financeapp.CreateResult), args.Error(1)
}

func (m *MockConceptManager) Update(ctx context.Context, id uuid.UUID, in financeapp.UpdateConceptInput) (financeapp.UpdateResult, error) {
	args := m.Called(ctx, id, in)
	return args.Get(0).(financeapp.UpdateResult), args.Error(1)
}

func (m *MockConceptManager) Activate(ctx context.Context, id uuid.UUID) (financeapp.LifecycleResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(financeapp.LifecycleResult), args.Error(1)
}

func (m *MockConceptManager) Disable(ctx context.Context, id uuid.UUID) (financeapp.LifecycleResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(financeapp.LifecycleResult), args.Error(1)
}

func (m *MockConceptManager) Finalize(ctx context.Context, id uuid.UUID) (financeapp.LifecycleResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(financeapp.LifecycleResult), args.Error(1)
}

func (m *MockConceptManager) SoftDelete(ctx context.Context, id uuid.UUID) (financeapp.LifecycleResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(financeapp.LifecycleResult), args.Error(1)
}

func (m *MockConceptManager) UpdateRelations(ctx context.Context, id uuid.UUID, update finance.TargetingUpdate, replace bool) (financeapp.RelationsResult, error) {
	args := m.Called(ctx, id, update, replace)
	return args.Get(0).(financeapp.RelationsResult), args.Error(1)
}

func (m *MockConceptManager) Audience(ctx context.Context, id uuid.UUID) (financeapp.AudienceResult, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(financeapp.AudienceResult), args.Error(1)
}

// authenticatedAs stands in for the JWT middleware
func authenticatedAs(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set(middleware.JWTUserIDKey, userID.String())
		}
		c.Next()
	}
}

type registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

func newTestEngine(caller uuid.UUID, handlers ...registrar) *gin.Engine {
	engine := gin.New()
	api := engine.Group("/api/v1", middleware.RequestID(), authenticatedAs(caller))
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}
	return engine
}

func doRequest(engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// decodeData unmarshals the data member of a success response into out
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.True(t, envelope.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *dto.ErrorInfo {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error
}
