package finance

import "github.com/schoolpay/backend/internal/domain/shared"

// Payment concept errors. All of them are surfaced to the caller as-is.
var (
	ErrConceptNotFound         = shared.NewDomainError("CONCEPT_NOT_FOUND", "Payment concept not found")
	ErrStudentProfileMissing   = shared.NewDomainError("STUDENT_PROFILE_MISSING", "No student profiles exist for the requested targeting")
	ErrRecipientsNotFound      = shared.NewDomainError("RECIPIENTS_NOT_FOUND", "The payment concept does not apply to any user")
	ErrRequiredForAppliesTo    = shared.NewDomainError("REQUIRED_FOR_APPLIES_TO", "The targeting mode requires a non-empty target list")
	ErrConceptAlreadyActive    = shared.NewDomainError("CONCEPT_ALREADY_ACTIVE", "Payment concept is already active")
	ErrConceptAlreadyDisabled  = shared.NewDomainError("CONCEPT_ALREADY_DISABLED", "Payment concept is already disabled")
	ErrConceptAlreadyFinalized = shared.NewDomainError("CONCEPT_ALREADY_FINALIZED", "Payment concept is already finalized")
	ErrConceptCannotBeUpdated  = shared.NewDomainError("CONCEPT_CANNOT_BE_UPDATED", "Payment concept can no longer be modified")
	ErrInvalidTransition       = shared.NewDomainError("INVALID_STATUS_TRANSITION", "Status transition is not allowed")
	ErrValidation              = shared.ErrValidation
)
