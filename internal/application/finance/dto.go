package finance

import (
	"cmp"
	"time"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// CreateConceptInput carries the fields of a new payment concept
type CreateConceptInput struct {
	Name             string
	Description      string
	Amount           valueobject.Money
	Status           finance.ConceptStatus // empty means ACTIVO
	StartDate        time.Time
	EndDate          *time.Time
	AppliesTo        finance.AppliesTo
	UserIDs          []uuid.UUID
	CareerIDs        []uuid.UUID
	Semesters        []int
	ApplicantTags    []string
	ExceptionUserIDs []uuid.UUID
}

func (in CreateConceptInput) params() finance.NewConceptParams {
	return finance.NewConceptParams{
		Name:        in.Name,
		Description: in.Description,
		Amount:      in.Amount,
		Status:      in.Status,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Targeting: finance.Targeting{
			AppliesTo:     in.AppliesTo,
			UserIDs:       valueobject.NewIDSet(in.UserIDs...),
			CareerIDs:     valueobject.NewIDSet(in.CareerIDs...),
			Semesters:     valueobject.NewSet(in.Semesters...),
			ApplicantTags: valueobject.NewSet(in.ApplicantTags...),
		},
		ExceptionUserIDs: in.ExceptionUserIDs,
	}
}

// UpdateConceptInput holds optional new field values; nil means unchanged
type UpdateConceptInput struct {
	Name        *string
	Description *string
	Amount      *valueobject.Money
	StartDate   *time.Time
	EndDate     *time.Time
}

// ConceptResponse is the read model of a payment concept
type ConceptResponse struct {
	ID               uuid.UUID             `json:"id"`
	Name             string                `json:"name"`
	Description      string                `json:"description"`
	Amount           valueobject.Money     `json:"amount"`
	Status           finance.ConceptStatus `json:"status"`
	StartDate        time.Time             `json:"start_date"`
	EndDate          *time.Time            `json:"end_date"`
	AppliesTo        finance.AppliesTo     `json:"applies_to"`
	UserIDs          []uuid.UUID           `json:"user_ids"`
	CareerIDs        []uuid.UUID           `json:"career_ids"`
	Semesters        []int                 `json:"semesters"`
	ApplicantTags    []string              `json:"applicant_tags"`
	ExceptionUserIDs []uuid.UUID           `json:"exception_user_ids"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
	DeletedAt        *time.Time            `json:"deleted_at,omitempty"`
}

// ToConceptResponse converts a concept into its read model with every set
// in a stable order
func ToConceptResponse(c *finance.PaymentConcept) ConceptResponse {
	t := c.Targeting
	return ConceptResponse{
		ID:               c.ID,
		Name:             c.Name,
		Description:      c.Description,
		Amount:           c.Amount,
		Status:           c.Status,
		StartDate:        c.StartDate,
		EndDate:          c.EndDate,
		AppliesTo:        t.AppliesTo,
		UserIDs:          valueobject.SortedIDs(t.UserIDs),
		CareerIDs:        valueobject.SortedIDs(t.CareerIDs),
		Semesters:        t.Semesters.Sorted(cmp.Compare[int]),
		ApplicantTags:    t.ApplicantTags.Sorted(cmp.Compare[string]),
		ExceptionUserIDs: valueobject.SortedIDs(c.ExceptionUserIDs),
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
		DeletedAt:        c.DeletedAt,
	}
}

// CreateResult is returned by Create
type CreateResult struct {
	Concept    ConceptResponse `json:"concept"`
	Recipients int             `json:"recipients"`
}

// UpdateResult is returned by Update
type UpdateResult struct {
	Concept       ConceptResponse `json:"concept"`
	ChangedFields []string        `json:"changed_fields"`
	NoChanges     bool            `json:"no_changes"`
}

// LifecycleResult is returned by the status transitions
type LifecycleResult struct {
	Concept ConceptResponse `json:"concept"`
	AudienceDiff
}

// RelationsResult is returned by UpdateRelations
type RelationsResult struct {
	Concept   ConceptResponse          `json:"concept"`
	Changes   []finance.RelationChange `json:"changes"`
	NoChanges bool                     `json:"no_changes"`
	AudienceDiff
}

// AudienceResult lists the users a concept applies to
type AudienceResult struct {
	ConceptID   uuid.UUID             `json:"concept_id"`
	Status      finance.ConceptStatus `json:"status"`
	OwesBalance bool                  `json:"owes_balance"`
	UserIDs     []uuid.UUID           `json:"user_ids"`
	Count       int                   `json:"count"`
}
