package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeConceptNotFound, http.StatusNotFound},
		{ErrCodeRequiredForAppliesTo, http.StatusBadRequest},
		{ErrCodeRecipientsNotFound, http.StatusUnprocessableEntity},
		{ErrCodeStudentProfileMissing, http.StatusUnprocessableEntity},
		{ErrCodeConceptCannotBeUpdated, http.StatusUnprocessableEntity},
		{ErrCodeConceptAlreadyActive, http.StatusConflict},
		{ErrCodeConceptAlreadyFinalized, http.StatusConflict},
		{ErrCodeConcurrentModification, http.StatusConflict},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeValidation, NormalizeErrorCode("VALIDATION_ERROR"))
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode("NOT_FOUND"))
	assert.Equal(t, ErrCodeConcurrentModification, NormalizeErrorCode("OPTIMISTIC_LOCK_ERROR"))
	assert.Equal(t, ErrCodeConceptNotFound, NormalizeErrorCode(ErrCodeConceptNotFound))
	assert.Equal(t, "SOMETHING_NEW", NormalizeErrorCode("SOMETHING_NEW"))
}

func TestErrorResponses(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-1", []ValidationDetail{
		{Field: "amount", Message: "This field is required"},
	})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": false,
		"error": {
			"code": "ERR_VALIDATION",
			"message": "Request validation failed",
			"request_id": "req-1",
			"details": [{"field": "amount", "message": "This field is required"}]
		}
	}`, string(raw))

	raw, err = json.Marshal(NewErrorResponse(ErrCodeConceptNotFound, "Payment concept not found"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success": false, "error": {"code": "CONCEPT_NOT_FOUND", "message": "Payment concept not found"}}`, string(raw))
}
