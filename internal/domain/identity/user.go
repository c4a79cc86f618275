package identity

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// Well-known roles. Any role a user carries can also be targeted as an
// applicant tag by a payment concept.
const (
	RoleStudent               = "student"
	RoleApplicant             = "applicant"
	RoleApplicantNoEnrollment = "applicant_no_enrollment"
	RoleFinancialStaff        = "financial_staff"
	RoleAdmin                 = "admin"
)

// Semester bounds accepted on a student profile
const (
	MinSemester = 1
	MaxSemester = 20
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ErrUserNotFound is returned when a user id does not resolve
var ErrUserNotFound = shared.NewDomainError("USER_NOT_FOUND", "User not found")

// StudentProfile holds the enrollment data that career and semester
// targeting match against
type StudentProfile struct {
	CareerID uuid.UUID
	Semester int
}

// User is anyone a payment concept may apply to
type User struct {
	shared.BaseEntity
	Name           string
	Email          string
	Roles          []string
	StudentProfile *StudentProfile // nil for users that are not enrolled
}

// NewUser creates a user with the given roles
func NewUser(name, email string, roles []string, now time.Time) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Name cannot exceed 200 characters")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	return &User{
		BaseEntity: shared.NewBaseEntity(now),
		Name:       name,
		Email:      email,
		Roles:      normalizeRoles(roles),
	}, nil
}

// Enroll attaches or replaces the student profile
func (u *User) Enroll(careerID uuid.UUID, semester int, now time.Time) error {
	if careerID == uuid.Nil {
		return shared.NewDomainError("INVALID_CAREER", "Career ID cannot be empty")
	}
	if semester < MinSemester || semester > MaxSemester {
		return shared.NewDomainError("INVALID_SEMESTER", "Semester is out of range")
	}
	u.StudentProfile = &StudentProfile{CareerID: careerID, Semester: semester}
	if !u.HasRole(RoleStudent) {
		u.Roles = normalizeRoles(append(u.Roles, RoleStudent))
	}
	u.Touch(now)
	return nil
}

// HasRole reports whether the user carries the role
func (u *User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// HasAnyRole reports whether the user carries at least one of the roles
func (u *User) HasAnyRole(roles valueobject.Set[string]) bool {
	for _, r := range u.Roles {
		if roles.Contains(r) {
			return true
		}
	}
	return false
}

// IsStudent reports whether the user has a student profile
func (u *User) IsStudent() bool {
	return u.StudentProfile != nil
}

func normalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if r != "" && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	slices.Sort(out)
	return out
}

func validateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}
