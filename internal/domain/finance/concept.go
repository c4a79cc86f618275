package finance

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// AppliesTo is the targeting mode of a payment concept. Exactly one mode is
// active at a time and only the target sets it uses are meaningful.
type AppliesTo string

const (
	// AppliesToAll targets every user
	AppliesToAll AppliesTo = "TODOS"
	// AppliesToStudents targets an explicit list of users
	AppliesToStudents AppliesTo = "ESTUDIANTES"
	// AppliesToCareer targets students enrolled in any of the careers
	AppliesToCareer AppliesTo = "CARRERA"
	// AppliesToSemester targets students in any of the semesters
	AppliesToSemester AppliesTo = "SEMESTRE"
	// AppliesToCareerSemester targets students matching a career AND a semester
	AppliesToCareerSemester AppliesTo = "CARRERA_SEMESTRE"
	// AppliesToTag targets users carrying any of the applicant tags
	AppliesToTag AppliesTo = "TAG"
)

// IsValid checks if the mode is known
func (a AppliesTo) IsValid() bool {
	switch a {
	case AppliesToAll, AppliesToStudents, AppliesToCareer, AppliesToSemester,
		AppliesToCareerSemester, AppliesToTag:
		return true
	}
	return false
}

// String returns the string representation of AppliesTo
func (a AppliesTo) String() string {
	return string(a)
}

// UsesUsers reports whether the mode reads the user list
func (a AppliesTo) UsesUsers() bool { return a == AppliesToStudents }

// UsesCareers reports whether the mode reads the career list
func (a AppliesTo) UsesCareers() bool {
	return a == AppliesToCareer || a == AppliesToCareerSemester
}

// UsesSemesters reports whether the mode reads the semester list
func (a AppliesTo) UsesSemesters() bool {
	return a == AppliesToSemester || a == AppliesToCareerSemester
}

// UsesTags reports whether the mode reads the applicant tag list
func (a AppliesTo) UsesTags() bool { return a == AppliesToTag }

// RequiresStudentProfile reports whether only enrolled students can match
func (a AppliesTo) RequiresStudentProfile() bool {
	return a.UsesCareers() || a.UsesSemesters()
}

// Targeting is the mode plus its target sets
type Targeting struct {
	AppliesTo     AppliesTo
	UserIDs       valueobject.IDSet
	CareerIDs     valueobject.IDSet
	Semesters     valueobject.Set[int]
	ApplicantTags valueobject.Set[string]
}

// Normalized returns a copy with every set the mode does not use emptied
// and applicant tags in lower case
func (t Targeting) Normalized() Targeting {
	out := Targeting{AppliesTo: t.AppliesTo}
	if t.AppliesTo.UsesUsers() {
		out.UserIDs = t.UserIDs
	}
	if t.AppliesTo.UsesCareers() {
		out.CareerIDs = t.CareerIDs
	}
	if t.AppliesTo.UsesSemesters() {
		out.Semesters = t.Semesters
	}
	if t.AppliesTo.UsesTags() {
		out.ApplicantTags = normalizeTags(t.ApplicantTags)
	}
	return out
}

// normalizeTags trims and lowercases tags to the form user roles are stored
// in, dropping blanks
func normalizeTags(tags valueobject.Set[string]) valueobject.Set[string] {
	out := make([]string, 0, tags.Len())
	for _, tag := range tags.Values() {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			out = append(out, tag)
		}
	}
	return valueobject.NewSet(out...)
}

// Validate checks the mode and that every set it requires is non-empty
func (t Targeting) Validate() error {
	if !t.AppliesTo.IsValid() {
		return ErrValidation.WithMessage("Unknown applies_to mode: " + t.AppliesTo.String())
	}
	var missing []string
	if t.AppliesTo.UsesUsers() && t.UserIDs.IsEmpty() {
		missing = append(missing, "students")
	}
	if t.AppliesTo.UsesCareers() && t.CareerIDs.IsEmpty() {
		missing = append(missing, "careers")
	}
	if t.AppliesTo.UsesSemesters() && t.Semesters.IsEmpty() {
		missing = append(missing, "semesters")
	}
	if t.AppliesTo.UsesTags() && t.ApplicantTags.IsEmpty() {
		missing = append(missing, "applicant_tags")
	}
	if len(missing) > 0 {
		return ErrRequiredForAppliesTo.WithMessage(
			t.AppliesTo.String() + " requires non-empty " + strings.Join(missing, " and "))
	}
	for _, s := range t.Semesters.Values() {
		if s < 1 {
			return ErrValidation.WithMessage("Semesters must be positive")
		}
	}
	return nil
}

// PaymentConcept is an obligation the school charges to an audience
type PaymentConcept struct {
	shared.BaseAggregateRoot
	Name             string
	Description      string
	Amount           valueobject.Money
	Status           ConceptStatus
	StartDate        time.Time
	EndDate          *time.Time
	Targeting        Targeting
	ExceptionUserIDs valueobject.IDSet
	DeletedAt        *time.Time
}

// NewConceptParams carries the data needed to create a concept
type NewConceptParams struct {
	Name             string
	Description      string
	Amount           valueobject.Money
	Status           ConceptStatus
	StartDate        time.Time
	EndDate          *time.Time
	Targeting        Targeting
	ExceptionUserIDs []uuid.UUID
}

// NewPaymentConcept creates a concept in ACTIVO or DESACTIVADO
func NewPaymentConcept(p NewConceptParams, now time.Time) (*PaymentConcept, error) {
	name := strings.TrimSpace(p.Name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateAmount(p.Amount); err != nil {
		return nil, err
	}
	if err := validateDateRange(p.StartDate, p.EndDate); err != nil {
		return nil, err
	}

	status := p.Status
	if status == "" {
		status = ConceptStatusActive
	}
	if status != ConceptStatusActive && status != ConceptStatusDisabled {
		return nil, ErrValidation.WithMessage("A payment concept must be created ACTIVO or DESACTIVADO")
	}

	targeting := p.Targeting.Normalized()
	if err := targeting.Validate(); err != nil {
		return nil, err
	}

	c := &PaymentConcept{
		Name:             name,
		Description:      strings.TrimSpace(p.Description),
		Amount:           p.Amount,
		Status:           status,
		StartDate:        p.StartDate,
		EndDate:          p.EndDate,
		Targeting:        targeting,
		ExceptionUserIDs: valueobject.NewIDSet(p.ExceptionUserIDs...),
	}
	c.BaseEntity = shared.NewBaseEntity(now)

	c.AddDomainEvent(NewConceptCreatedEvent(c))
	return c, nil
}

// ConceptDetailsUpdate holds optional new field values; nil means unchanged
type ConceptDetailsUpdate struct {
	Name        *string
	Description *string
	Amount      *valueobject.Money
	StartDate   *time.Time
	EndDate     *time.Time
}

// IsEmpty reports whether no field was supplied
func (u ConceptDetailsUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Amount == nil && u.StartDate == nil && u.EndDate == nil
}

// UpdateDetails applies field changes and returns the names of the fields
// that actually changed. An empty result with a nil error means no-op.
func (c *PaymentConcept) UpdateDetails(u ConceptDetailsUpdate, now time.Time) ([]string, error) {
	if u.IsEmpty() {
		return nil, ErrValidation.WithMessage("At least one field must be provided")
	}
	if !c.Status.IsUpdatable() {
		return nil, ErrConceptCannotBeUpdated
	}

	name, description, amount := c.Name, c.Description, c.Amount
	start, end := c.StartDate, c.EndDate
	var changed []string

	if u.Name != nil {
		n := strings.TrimSpace(*u.Name)
		if err := validateName(n); err != nil {
			return nil, err
		}
		if n != name {
			name = n
			changed = append(changed, "name")
		}
	}
	if u.Description != nil {
		d := strings.TrimSpace(*u.Description)
		if d != description {
			description = d
			changed = append(changed, "description")
		}
	}
	if u.Amount != nil {
		if err := validateAmount(*u.Amount); err != nil {
			return nil, err
		}
		if !u.Amount.Equals(amount) {
			amount = *u.Amount
			changed = append(changed, "amount")
		}
	}
	if u.StartDate != nil && !u.StartDate.Equal(start) {
		start = *u.StartDate
		changed = append(changed, "start_date")
	}
	if u.EndDate != nil && (end == nil || !u.EndDate.Equal(*end)) {
		e := *u.EndDate
		end = &e
		changed = append(changed, "end_date")
	}
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return nil, nil
	}

	c.Name, c.Description, c.Amount = name, description, amount
	c.StartDate, c.EndDate = start, end
	c.Touch(now)
	return changed, nil
}

// IsCollectible reports whether the concept is inside its validity window at now
func (c *PaymentConcept) IsCollectible(now time.Time) bool {
	if c.StartDate.After(now) {
		return false
	}
	return c.EndDate == nil || !c.EndDate.Before(now)
}

func validateName(name string) error {
	if name == "" {
		return ErrValidation.WithMessage("Name cannot be empty")
	}
	if len(name) > 255 {
		return ErrValidation.WithMessage("Name cannot exceed 255 characters")
	}
	return nil
}

func validateAmount(amount valueobject.Money) error {
	if !amount.IsPositive() {
		return ErrValidation.WithMessage("Amount must be positive")
	}
	return nil
}

func validateDateRange(start time.Time, end *time.Time) error {
	if start.IsZero() {
		return ErrValidation.WithMessage("Start date is required")
	}
	if end != nil && end.Before(start) {
		return ErrValidation.WithMessage("End date cannot be before start date")
	}
	return nil
}
