package finance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/identity"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// Applies decides whether the concept applies to the user. Exceptions are
// checked first and always win. Status is not considered here.
func Applies(user *identity.User, c *PaymentConcept) bool {
	if user == nil || c == nil {
		return false
	}
	if c.IsException(user.ID) {
		return false
	}

	t := c.Targeting
	switch t.AppliesTo {
	case AppliesToAll:
		return true
	case AppliesToStudents:
		return t.UserIDs.Contains(user.ID)
	case AppliesToCareer:
		return user.IsStudent() && t.CareerIDs.Contains(user.StudentProfile.CareerID)
	case AppliesToSemester:
		return user.IsStudent() && t.Semesters.Contains(user.StudentProfile.Semester)
	case AppliesToCareerSemester:
		return user.IsStudent() &&
			t.CareerIDs.Contains(user.StudentProfile.CareerID) &&
			t.Semesters.Contains(user.StudentProfile.Semester)
	case AppliesToTag:
		return user.HasAnyRole(t.ApplicantTags)
	}
	return false
}

// FilterAffected runs every user through Applies and collects the members
func FilterAffected(users []*identity.User, c *PaymentConcept) valueobject.IDSet {
	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		if Applies(u, c) {
			ids = append(ids, u.ID)
		}
	}
	return valueobject.NewIDSet(ids...)
}

// StudentFilter narrows a student lookup. An empty set leaves that
// dimension unrestricted; callers guarantee at least one is non-empty.
type StudentFilter struct {
	CareerIDs valueobject.IDSet
	Semesters valueobject.Set[int]
}

// UserDirectory answers set queries over the user population
type UserDirectory interface {
	// AllUserIDs returns every user id
	AllUserIDs(ctx context.Context) (valueobject.IDSet, error)

	// ExistingUserIDs returns the subset of ids that belong to real users
	ExistingUserIDs(ctx context.Context, ids valueobject.IDSet) (valueobject.IDSet, error)

	// StudentIDs returns users with a student profile matching the filter
	StudentIDs(ctx context.Context, filter StudentFilter) (valueobject.IDSet, error)

	// UserIDsWithAnyRole returns users carrying at least one of the roles
	UserIDsWithAnyRole(ctx context.Context, roles valueobject.Set[string]) (valueobject.IDSet, error)

	// CountStudentProfiles returns how many users have a student profile
	CountStudentProfiles(ctx context.Context) (int64, error)
}

// Resolver computes concept audiences from set queries. The result is
// always the same set FilterAffected would produce over all users.
type Resolver struct {
	users UserDirectory
}

// NewResolver creates a resolver over the directory
func NewResolver(users UserDirectory) *Resolver {
	return &Resolver{users: users}
}

// AffectedUserIDs returns every user the concept applies to
func (r *Resolver) AffectedUserIDs(ctx context.Context, c *PaymentConcept) (valueobject.IDSet, error) {
	t := c.Targeting
	var (
		base valueobject.IDSet
		err  error
	)

	switch t.AppliesTo {
	case AppliesToAll:
		base, err = r.users.AllUserIDs(ctx)
	case AppliesToStudents:
		if t.UserIDs.IsEmpty() {
			return valueobject.NewIDSet(), nil
		}
		base, err = r.users.ExistingUserIDs(ctx, t.UserIDs)
	case AppliesToCareer:
		if t.CareerIDs.IsEmpty() {
			return valueobject.NewIDSet(), nil
		}
		base, err = r.users.StudentIDs(ctx, StudentFilter{CareerIDs: t.CareerIDs})
	case AppliesToSemester:
		if t.Semesters.IsEmpty() {
			return valueobject.NewIDSet(), nil
		}
		base, err = r.users.StudentIDs(ctx, StudentFilter{Semesters: t.Semesters})
	case AppliesToCareerSemester:
		if t.CareerIDs.IsEmpty() || t.Semesters.IsEmpty() {
			return valueobject.NewIDSet(), nil
		}
		base, err = r.users.StudentIDs(ctx, StudentFilter{CareerIDs: t.CareerIDs, Semesters: t.Semesters})
	case AppliesToTag:
		if t.ApplicantTags.IsEmpty() {
			return valueobject.NewIDSet(), nil
		}
		base, err = r.users.UserIDsWithAnyRole(ctx, t.ApplicantTags)
	default:
		return valueobject.NewIDSet(), nil
	}
	if err != nil {
		return valueobject.IDSet{}, fmt.Errorf("resolve audience for %s: %w", t.AppliesTo, err)
	}

	return base.Difference(c.ExceptionUserIDs), nil
}

// Audience returns the users that carry a balance for the concept in its
// current status: the affected users while it owes a balance, else nobody.
func (r *Resolver) Audience(ctx context.Context, c *PaymentConcept) (valueobject.IDSet, error) {
	if !c.Status.OwesBalance() {
		return valueobject.NewIDSet(), nil
	}
	return r.AffectedUserIDs(ctx, c)
}

// RequireRecipients resolves the affected users and rejects an empty
// audience. When the mode needs student profiles and none exist at all
// the error is ErrStudentProfileMissing.
func (r *Resolver) RequireRecipients(ctx context.Context, c *PaymentConcept) (valueobject.IDSet, error) {
	affected, err := r.AffectedUserIDs(ctx, c)
	if err != nil {
		return valueobject.IDSet{}, err
	}
	if !affected.IsEmpty() {
		return affected, nil
	}

	if c.Targeting.AppliesTo.RequiresStudentProfile() {
		n, err := r.users.CountStudentProfiles(ctx)
		if err != nil {
			return valueobject.IDSet{}, fmt.Errorf("count student profiles: %w", err)
		}
		if n == 0 {
			return valueobject.IDSet{}, ErrStudentProfileMissing
		}
	}
	return valueobject.IDSet{}, ErrRecipientsNotFound
}
