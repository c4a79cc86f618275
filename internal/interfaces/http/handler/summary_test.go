package handler

import (
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	financeapp "github.com/schoolpay/backend/internal/application/finance"
	"github.com/schoolpay/backend/internal/domain/identity"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
	"github.com/schoolpay/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSummaryHandler_MyPending(t *testing.T) {
	caller := uuid.New()
	reader := new(MockSummaryReader)
	reader.On("Pending", mock.Anything, caller, true).Return(financeapp.DebtSummary{
		TotalAmount: valueobject.MustMoney("1200"),
		TotalCount:  2,
	}, nil)

	w := doRequest(newTestEngine(caller, NewSummaryHandler(reader)), http.MethodGet,
		"/api/v1/me/summary/pending?only_this_year=true", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		TotalAmount string `json:"total_amount"`
		TotalCount  int    `json:"total_count"`
	}
	decodeData(t, w, &got)
	assert.Equal(t, "1200.00", got.TotalAmount)
	assert.Equal(t, 2, got.TotalCount)
	reader.AssertExpectations(t)
}

func TestSummaryHandler_MyOverdue_DefaultsToAllYears(t *testing.T) {
	caller := uuid.New()
	reader := new(MockSummaryReader)
	reader.On("Overdue", mock.Anything, caller, false).Return(financeapp.DebtSummary{TotalAmount: valueobject.Zero()}, nil)

	w := doRequest(newTestEngine(caller, NewSummaryHandler(reader)), http.MethodGet, "/api/v1/me/summary/overdue", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	reader.AssertExpectations(t)
}

func TestSummaryHandler_MyPayments(t *testing.T) {
	caller := uuid.New()
	reader := new(MockSummaryReader)
	reader.On("PaymentsMade", mock.Anything, caller, false).Return(financeapp.PaymentsSummary{
		TotalPayments: valueobject.MustMoney("750.5"),
		PaymentsByMonth: map[string]valueobject.Money{
			"2026-03": valueobject.MustMoney("500"),
			"2026-04": valueobject.MustMoney("250.5"),
		},
		Months: []string{"2026-03", "2026-04"},
	}, nil)

	w := doRequest(newTestEngine(caller, NewSummaryHandler(reader)), http.MethodGet, "/api/v1/me/summary/payments", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		TotalPayments   string            `json:"total_payments"`
		PaymentsByMonth map[string]string `json:"payments_by_month"`
	}
	decodeData(t, w, &got)
	assert.Equal(t, "750.50", got.TotalPayments)
	assert.Equal(t, map[string]string{"2026-03": "500.00", "2026-04": "250.50"}, got.PaymentsByMonth)
}

func TestSummaryHandler_History(t *testing.T) {
	caller := uuid.New()
	reader := new(MockSummaryReader)
	page := shared.NewPage([]financeapp.PaymentRecord{{ID: uuid.New(), Amount: valueobject.MustMoney("100")}}, 41, 2, 20)
	reader.On("PaymentHistory", mock.Anything, caller, 2, 20, false).Return(page, nil)

	engine := newTestEngine(caller, NewSummaryHandler(reader))
	w := doRequest(engine, http.MethodGet, "/api/v1/me/payments?page=2&per_page=20", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Data        []map[string]any `json:"data"`
		Total       int64            `json:"total"`
		CurrentPage int              `json:"current_page"`
		LastPage    int              `json:"last_page"`
	}
	decodeData(t, w, &got)
	assert.Len(t, got.Data, 1)
	assert.Equal(t, int64(41), got.Total)
	assert.Equal(t, 2, got.CurrentPage)
	assert.Equal(t, 3, got.LastPage)

	t.Run("per_page above the cap is rejected", func(t *testing.T) {
		w := doRequest(engine, http.MethodGet, "/api/v1/me/payments?per_page=500", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeError(t, w).Code)
	})
}

func TestSummaryHandler_StaffView(t *testing.T) {
	target := uuid.New()
	reader := new(MockSummaryReader)
	reader.On("Pending", mock.Anything, target, false).Return(financeapp.DebtSummary{TotalAmount: valueobject.Zero()}, nil)
	reader.On("Overdue", mock.Anything, mock.Anything, false).Return(financeapp.DebtSummary{}, identity.ErrUserNotFound)
	engine := newTestEngine(uuid.New(), NewSummaryHandler(reader))

	t.Run("reads the path user", func(t *testing.T) {
		w := doRequest(engine, http.MethodGet, "/api/v1/users/"+target.String()+"/summary/pending", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown user is 404", func(t *testing.T) {
		w := doRequest(engine, http.MethodGet, "/api/v1/users/"+uuid.NewString()+"/summary/overdue", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeUserNotFound, decodeError(t, w).Code)
	})

	t.Run("malformed id is 400", func(t *testing.T) {
		w := doRequest(engine, http.MethodGet, "/api/v1/users/not-a-uuid/summary/pending", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decodeError(t, w).Code)
	})
}

func TestSummaryHandler_Errors(t *testing.T) {
	t.Run("anonymous caller is 401", func(t *testing.T) {
		w := doRequest(newTestEngine(uuid.Nil, NewSummaryHandler(new(MockSummaryReader))),
			http.MethodGet, "/api/v1/me/summary/pending", nil)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("infrastructure failure is 500 without details", func(t *testing.T) {
		caller := uuid.New()
		reader := new(MockSummaryReader)
		reader.On("Pending", mock.Anything, caller, false).
			Return(financeapp.DebtSummary{}, errors.New("pq: connection refused"))

		w := doRequest(newTestEngine(caller, NewSummaryHandler(reader)), http.MethodGet, "/api/v1/me/summary/pending", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		errInfo := decodeError(t, w)
		assert.Equal(t, dto.ErrCodeInternal, errInfo.Code)
		assert.NotContains(t, errInfo.Message, "pq")
		assert.NotEmpty(t, errInfo.RequestID)
	})
}
