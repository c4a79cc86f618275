package finance

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/domain/identity"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
	"github.com/stretchr/testify/mock"
)

var testNow = time.Date(2026, 5, 15, 12, 0, 0, 0, time.UTC)

// MockConceptRepository is a mock implementation of PaymentConceptRepository
type MockConceptRepository struct {
	mock.Mock
}

func (m *MockConceptRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.PaymentConcept, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.PaymentConcept), args.Error(1)
}

func (m *MockConceptRepository) FindByFilter(ctx context.Context, filter finance.ConceptFilter) ([]*finance.PaymentConcept, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*finance.PaymentConcept), args.Error(1)
}

func (m *MockConceptRepository) FindExpiredActive(ctx context.Context, now time.Time) ([]*finance.PaymentConcept, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*finance.PaymentConcept), args.Error(1)
}

func (m *MockConceptRepository) FindDeletedBefore(ctx context.Context, cutoff time.Time) ([]*finance.PaymentConcept, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*finance.PaymentConcept), args.Error(1)
}

func (m *MockConceptRepository) Save(ctx context.Context, concept *finance.PaymentConcept) error {
	args := m.Called(ctx, concept)
	return args.Error(0)
}

func (m *MockConceptRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPaymentRepository is a mock implementation of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByFilter(ctx context.Context, filter finance.PaymentFilter) ([]*finance.Payment, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*finance.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindPage(ctx context.Context, filter finance.PaymentFilter) ([]*finance.Payment, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*finance.Payment), args.Get(1).(int64), args.Error(2)
}

func (m *MockPaymentRepository) Save(ctx context.Context, payment *finance.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context) ([]*identity.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identity.User), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// memoryDirectory answers directory queries by scanning a fixed user list
type memoryDirectory struct {
	users []*identity.User
	err   error
}

func (d *memoryDirectory) AllUserIDs(context.Context) (valueobject.IDSet, error) {
	return d.collect(func(*identity.User) bool { return true })
}

func (d *memoryDirectory) ExistingUserIDs(_ context.Context, ids valueobject.IDSet) (valueobject.IDSet, error) {
	return d.collect(func(u *identity.User) bool { return ids.Contains(u.ID) })
}

func (d *memoryDirectory) StudentIDs(_ context.Context, f finance.StudentFilter) (valueobject.IDSet, error) {
	return d.collect(func(u *identity.User) bool {
		if !u.IsStudent() {
			return false
		}
		if !f.CareerIDs.IsEmpty() && !f.CareerIDs.Contains(u.StudentProfile.CareerID) {
			return false
		}
		return f.Semesters.IsEmpty() || f.Semesters.Contains(u.StudentProfile.Semester)
	})
}

func (d *memoryDirectory) UserIDsWithAnyRole(_ context.Context, roles valueobject.Set[string]) (valueobject.IDSet, error) {
	return d.collect(func(u *identity.User) bool { return u.HasAnyRole(roles) })
}

func (d *memoryDirectory) CountStudentProfiles(context.Context) (int64, error) {
	var n int64
	for _, u := range d.users {
		if u.IsStudent() {
			n++
		}
	}
	return n, d.err
}

func (d *memoryDirectory) collect(keep func(*identity.User) bool) (valueobject.IDSet, error) {
	if d.err != nil {
		return valueobject.IDSet{}, d.err
	}
	ids := make([]uuid.UUID, 0, len(d.users))
	for _, u := range d.users {
		if keep(u) {
			ids = append(ids, u.ID)
		}
	}
	return valueobject.NewIDSet(ids...), nil
}

// recordingQueue captures enqueued tasks
type recordingQueue struct {
	mu    sync.Mutex
	tasks []shared.Task
	err   error
}

func (q *recordingQueue) Enqueue(ctx context.Context, task shared.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, task)
	return nil
}

// invalidatedUsers decodes every captured task into the union of its users
func (q *recordingQueue) invalidatedUsers() valueobject.IDSet {
	q.mu.Lock()
	defer q.mu.Unlock()
	var ids []uuid.UUID
	for _, t := range q.tasks {
		var p InvalidateUsersPayload
		if err := json.Unmarshal(t.Payload, &p); err == nil {
			ids = append(ids, p.UserIDs...)
		}
	}
	return valueobject.NewIDSet(ids...)
}

// mapCache is a SummaryCache over a plain map
type mapCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	getErr      error
	setErr      error
	invalidated []uuid.UUID
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, userID uuid.UUID, field string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	v, ok := c.entries[userID.String()+"/"+field]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, userID uuid.UUID, field string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[userID.String()+"/"+field] = value
	return nil
}

func (c *mapCache) InvalidateUsers(_ context.Context, userIDs []uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, userIDs...)
	for _, id := range userIDs {
		prefix := id.String() + "/"
		for k := range c.entries {
			if len(k) > len(prefix) && k[:len(prefix)] == prefix {
				delete(c.entries, k)
			}
		}
	}
	return nil
}

func newUser(name string, roles ...string) *identity.User {
	u, err := identity.NewUser(name, name+"@school.test", roles, testNow)
	if err != nil {
		panic(err)
	}
	return u
}

func newStudent(name string, careerID uuid.UUID, semester int) *identity.User {
	u := newUser(name)
	if err := u.Enroll(careerID, semester, testNow); err != nil {
		panic(err)
	}
	return u
}

func newConcept(amount string, targeting finance.Targeting) *finance.PaymentConcept {
	c, err := finance.NewPaymentConcept(finance.NewConceptParams{
		Name:      "Tuition",
		Amount:    valueobject.MustMoney(amount),
		StartDate: testNow.AddDate(0, -1, 0),
		Targeting: targeting,
	}, testNow.AddDate(0, -1, 0))
	if err != nil {
		panic(err)
	}
	c.ClearDomainEvents()
	return c
}

func newPaymentRecord(userID, conceptID uuid.UUID, received string, status finance.PaymentStatus, at time.Time) *finance.Payment {
	p, err := finance.NewPayment(userID, conceptID, valueobject.MustMoney("0"), at)
	if err != nil {
		panic(err)
	}
	if received != "" {
		if err := p.Record(valueobject.MustMoney(received), status, at); err != nil {
			panic(err)
		}
	}
	return p
}

func allUsers() finance.Targeting {
	return finance.Targeting{AppliesTo: finance.AppliesToAll}
}

func explicitUsers(ids ...uuid.UUID) finance.Targeting {
	return finance.Targeting{AppliesTo: finance.AppliesToStudents, UserIDs: valueobject.NewIDSet(ids...)}
}
