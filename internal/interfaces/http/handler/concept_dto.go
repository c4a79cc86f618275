package handler

import (
	"time"

	"github.com/google/uuid"
	financeapp "github.com/schoolpay/backend/internal/application/finance"
	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// CreateConceptRequest is the body of POST /concepts. Amounts are decimal
// strings; dates are RFC 3339 timestamps.
type CreateConceptRequest struct {
	Name             string             `json:"name" binding:"required,max=200"`
	Description      string             `json:"description" binding:"max=2000"`
	Amount           *valueobject.Money `json:"amount" binding:"required"`
	Status           string             `json:"status" binding:"omitempty,concept_status"`
	StartDate        *time.Time         `json:"start_date" binding:"required"`
	EndDate          *time.Time         `json:"end_date"`
	AppliesTo        string             `json:"applies_to" binding:"required,applies_to"`
	UserIDs          []uuid.UUID        `json:"user_ids"`
	CareerIDs        []uuid.UUID        `json:"career_ids"`
	Semesters        []int              `json:"semesters" binding:"omitempty,dive,gte=1,lte=20"`
	ApplicantTags    []string           `json:"applicant_tags" binding:"omitempty,dive,required,max=100"`
	ExceptionUserIDs []uuid.UUID        `json:"exception_user_ids"`
}

func (r CreateConceptRequest) toInput() financeapp.CreateConceptInput {
	return financeapp.CreateConceptInput{
		Name:             r.Name,
		Description:      r.Description,
		Amount:           *r.Amount,
		Status:           finance.ConceptStatus(r.Status),
		StartDate:        *r.StartDate,
		EndDate:          r.EndDate,
		AppliesTo:        finance.AppliesTo(r.AppliesTo),
		UserIDs:          r.UserIDs,
		CareerIDs:        r.CareerIDs,
		Semesters:        r.Semesters,
		ApplicantTags:    r.ApplicantTags,
		ExceptionUserIDs: r.ExceptionUserIDs,
	}
}

// UpdateConceptRequest is the body of PATCH /concepts/:id; absent fields
// are left unchanged
type UpdateConceptRequest struct {
	Name        *string            `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string            `json:"description" binding:"omitempty,max=2000"`
	Amount      *valueobject.Money `json:"amount"`
	StartDate   *time.Time         `json:"start_date"`
	EndDate     *time.Time         `json:"end_date"`
}

func (r UpdateConceptRequest) toInput() financeapp.UpdateConceptInput {
	return financeapp.UpdateConceptInput{
		Name:        r.Name,
		Description: r.Description,
		Amount:      r.Amount,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
	}
}

// UpdateRelationsRequest is the body of PUT /concepts/:id/relations. An
// absent or null list leaves that relation untouched; an empty list clears
// it when replacing.
type UpdateRelationsRequest struct {
	AppliesTo           string      `json:"applies_to" binding:"omitempty,applies_to"`
	UserIDs             []uuid.UUID `json:"user_ids"`
	CareerIDs           []uuid.UUID `json:"career_ids"`
	Semesters           []int       `json:"semesters" binding:"omitempty,dive,gte=1,lte=20"`
	ApplicantTags       []string    `json:"applicant_tags" binding:"omitempty,dive,required,max=100"`
	ExceptionUserIDs    []uuid.UUID `json:"exception_user_ids"`
	RemoveAllExceptions bool        `json:"remove_all_exceptions"`
}

func (r UpdateRelationsRequest) toUpdate() finance.TargetingUpdate {
	return finance.TargetingUpdate{
		AppliesTo:           finance.AppliesTo(r.AppliesTo),
		UserIDs:             r.UserIDs,
		CareerIDs:           r.CareerIDs,
		Semesters:           r.Semesters,
		ApplicantTags:       r.ApplicantTags,
		ExceptionUserIDs:    r.ExceptionUserIDs,
		RemoveAllExceptions: r.RemoveAllExceptions,
	}
}

// RelationsQuery selects replace or merge semantics
type RelationsQuery struct {
	Replace bool `form:"replace"`
}
