package finance_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/domain/identity"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

func newConcept(t *testing.T, targeting finance.Targeting, opts ...func(*finance.NewConceptParams)) *finance.PaymentConcept {
	t.Helper()
	params := finance.NewConceptParams{
		Name:      "Tuition",
		Amount:    valueobject.MustMoney("1000.00"),
		StartDate: testNow.AddDate(0, -1, 0),
		Targeting: targeting,
	}
	for _, opt := range opts {
		opt(&params)
	}
	c, err := finance.NewPaymentConcept(params, testNow.AddDate(0, -1, 0))
	require.NoError(t, err)
	return c
}

func withStatus(s finance.ConceptStatus) func(*finance.NewConceptParams) {
	return func(p *finance.NewConceptParams) { p.Status = s }
}

func withEndDate(end time.Time) func(*finance.NewConceptParams) {
	return func(p *finance.NewConceptParams) { p.EndDate = &end }
}

func withExceptions(ids ...uuid.UUID) func(*finance.NewConceptParams) {
	return func(p *finance.NewConceptParams) { p.ExceptionUserIDs = ids }
}

func allUsers() finance.Targeting {
	return finance.Targeting{AppliesTo: finance.AppliesToAll}
}

func newUser(t *testing.T, roles ...string) *identity.User {
	t.Helper()
	u, err := identity.NewUser("User", uuid.NewString()[:8]+"@school.edu", roles, testNow)
	require.NoError(t, err)
	return u
}

func newStudent(t *testing.T, careerID uuid.UUID, semester int) *identity.User {
	t.Helper()
	u := newUser(t)
	require.NoError(t, u.Enroll(careerID, semester, testNow))
	return u
}
