package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPayment(t *testing.T, repo *GormPaymentRepository, userID, conceptID uuid.UUID, createdAt time.Time, received string, status finance.PaymentStatus) *finance.Payment {
	t.Helper()
	p, err := finance.NewPayment(userID, conceptID, valueobject.MustMoney("500.00"), createdAt)
	require.NoError(t, err)
	if received != "" {
		require.NoError(t, p.Record(valueobject.MustMoney(received), status, createdAt))
	}
	require.NoError(t, repo.Save(context.Background(), p))
	return p
}

func TestGormPaymentRepository(t *testing.T) {
	repo := NewGormPaymentRepository(setupTestDB(t))
	ctx := context.Background()
	user, other := uuid.New(), uuid.New()
	conceptA, conceptB := uuid.New(), uuid.New()

	p1 := seedPayment(t, repo, user, conceptA, testNow.AddDate(-1, 0, 0), "100.00", finance.PaymentStatusUnderpaid)
	p2 := seedPayment(t, repo, user, conceptA, testNow.AddDate(0, -2, 0), "150.25", finance.PaymentStatusUnderpaid)
	p3 := seedPayment(t, repo, user, conceptB, testNow.AddDate(0, -1, 0), "", "")
	p4 := seedPayment(t, repo, user, conceptB, testNow.AddDate(0, 0, -1), "500.00", finance.PaymentStatusSucceeded)
	seedPayment(t, repo, other, conceptA, testNow, "500.00", finance.PaymentStatusSucceeded)

	ids := func(payments []*finance.Payment) []uuid.UUID {
		out := make([]uuid.UUID, len(payments))
		for i, p := range payments {
			out[i] = p.ID
		}
		return out
	}

	t.Run("newest first for the user", func(t *testing.T) {
		got, err := repo.FindByFilter(ctx, finance.PaymentFilter{UserID: user})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{p4.ID, p3.ID, p2.ID, p1.ID}, ids(got))
	})

	t.Run("received only", func(t *testing.T) {
		got, err := repo.FindByFilter(ctx, finance.PaymentFilter{UserID: user, OnlyReceived: true})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{p4.ID, p2.ID, p1.ID}, ids(got))

		received, ok := got[1].Received()
		require.True(t, ok)
		assert.Equal(t, "150.25", received.String())
	})

	t.Run("by concept and year", func(t *testing.T) {
		got, err := repo.FindByFilter(ctx, finance.PaymentFilter{
			UserID:      user,
			ConceptIDs:  []uuid.UUID{conceptA},
			CreatedYear: testNow.Year(),
		})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{p2.ID}, ids(got))
	})

	t.Run("pending payment has no received amount", func(t *testing.T) {
		got, err := repo.FindByFilter(ctx, finance.PaymentFilter{UserID: user, ConceptIDs: []uuid.UUID{conceptB}})
		require.NoError(t, err)
		require.Len(t, got, 2)
		_, ok := got[1].Received()
		assert.False(t, ok)
		assert.Equal(t, finance.PaymentStatusDefault, got[1].Status)
	})

	t.Run("pages", func(t *testing.T) {
		got, total, err := repo.FindPage(ctx, finance.PaymentFilter{UserID: user, Page: 2, PerPage: 3})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Equal(t, []uuid.UUID{p1.ID}, ids(got))
	})

	t.Run("update keeps one row", func(t *testing.T) {
		require.NoError(t, p3.Record(valueobject.MustMoney("500.00"), finance.PaymentStatusSucceeded, testNow))
		require.NoError(t, repo.Save(ctx, p3))

		got, total, err := repo.FindPage(ctx, finance.PaymentFilter{UserID: user, OnlyReceived: true})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Len(t, got, 4)
	})
}
