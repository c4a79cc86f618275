package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the user lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrentModification is used when a save lost an optimistic lock
	ErrCodeConcurrentModification = "ERR_CONCURRENT_MODIFICATION"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Payment concept error codes. These are the domain codes, passed through
// unchanged so clients can branch on them.
const (
	ErrCodeConceptNotFound         = "CONCEPT_NOT_FOUND"
	ErrCodeStudentProfileMissing   = "STUDENT_PROFILE_MISSING"
	ErrCodeRecipientsNotFound      = "RECIPIENTS_NOT_FOUND"
	ErrCodeRequiredForAppliesTo    = "REQUIRED_FOR_APPLIES_TO"
	ErrCodeConceptAlreadyActive    = "CONCEPT_ALREADY_ACTIVE"
	ErrCodeConceptAlreadyDisabled  = "CONCEPT_ALREADY_DISABLED"
	ErrCodeConceptAlreadyFinalized = "CONCEPT_ALREADY_FINALIZED"
	ErrCodeConceptCannotBeUpdated  = "CONCEPT_CANNOT_BE_UPDATED"
	ErrCodeInvalidTransition       = "INVALID_STATUS_TRANSITION"
	ErrCodeUserNotFound            = "USER_NOT_FOUND"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:               http.StatusNotFound,
	ErrCodeConflict:               http.StatusConflict,
	ErrCodeConcurrentModification: http.StatusConflict,

	ErrCodeInvalidState: http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	// Payment concepts
	ErrCodeConceptNotFound:         http.StatusNotFound,
	ErrCodeUserNotFound:            http.StatusNotFound,
	ErrCodeRequiredForAppliesTo:    http.StatusBadRequest,
	ErrCodeStudentProfileMissing:   http.StatusUnprocessableEntity,
	ErrCodeRecipientsNotFound:      http.StatusUnprocessableEntity,
	ErrCodeConceptCannotBeUpdated:  http.StatusUnprocessableEntity,
	ErrCodeInvalidTransition:       http.StatusUnprocessableEntity,
	ErrCodeConceptAlreadyActive:    http.StatusConflict,
	ErrCodeConceptAlreadyDisabled:  http.StatusConflict,
	ErrCodeConceptAlreadyFinalized: http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps the generic shared domain codes to the
// standardized API codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":        ErrCodeNotFound,
	"INVALID_INPUT":    ErrCodeInvalidInput,
	"INVALID_STATE":    ErrCodeInvalidState,
	"UNAUTHORIZED":     ErrCodeUnauthorized,
	"FORBIDDEN":        ErrCodeForbidden,
	"VALIDATION_ERROR": ErrCodeValidation,
	"BAD_REQUEST":      ErrCodeBadRequest,
	"INTERNAL_ERROR":   ErrCodeInternal,

	"OPTIMISTIC_LOCK_ERROR": ErrCodeConcurrentModification,
}

// NormalizeErrorCode converts a legacy error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
