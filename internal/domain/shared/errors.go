package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped or re-messaged errors
// still compare equal to their sentinel
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithMessage returns a copy of the error carrying a more specific message
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: message}
}

// Common domain errors
var (
	ErrNotFound     = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrValidation   = NewDomainError("VALIDATION_ERROR", "Validation failed")

	// ErrOptimisticLock is returned when a save races with another writer
	ErrOptimisticLock = NewDomainError("OPTIMISTIC_LOCK_ERROR", "The record has been modified by another transaction")
)
