package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/schoolpay/backend/internal/domain/finance"
	"github.com/schoolpay/backend/internal/interfaces/http/dto"
)

// SetupValidator configures gin's validator: field errors use JSON tag names
// and the payment concept enums get their own tags.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	_ = v.RegisterValidation("applies_to", func(fl validator.FieldLevel) bool {
		return finance.AppliesTo(fl.Field().String()).IsValid()
	})
	_ = v.RegisterValidation("concept_status", func(fl validator.FieldLevel) bool {
		return finance.ConceptStatus(fl.Field().String()).IsValid()
	})
}

// FormatValidationErrors formats validation errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	)
}

// HandleValidationError answers a failed bind. Field errors become a
// validation response, oversized bodies 413 and anything else a malformed
// request.
func HandleValidationError(c *gin.Context, err error) {
	requestID := GetRequestID(c)

	var validationErrors validator.ValidationErrors
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &validationErrors):
		c.JSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", requestID))
	default:
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInvalidJSON, "Malformed request: "+err.Error(), requestID))
	}
}

// getValidationMessage returns a human-readable validation message
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Type().Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "applies_to":
		return "Must be one of: TODOS ESTUDIANTES CARRERA SEMESTRE CARRERA_SEMESTRE TAG"
	case "concept_status":
		return "Must be one of: ACTIVO DESACTIVADO FINALIZADO ELIMINADO"
	default:
		return "Invalid value"
	}
}
