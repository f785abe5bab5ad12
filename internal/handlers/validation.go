package handlers

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ParseValidationErrors converts binding errors to user-friendly format. A
// body that is not valid JSON yields a single "body" entry.
func ParseValidationErrors(err error) []ValidationError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []ValidationError{{Field: "body", Message: "Malformed request body"}}
	}

	out := make([]ValidationError, 0, len(validationErrors))
	for _, fieldError := range validationErrors {
		out = append(out, ValidationError{
			Field:   jsonName(fieldError.Field()),
			Message: getErrorMessage(fieldError),
		})
	}
	return out
}

func getErrorMessage(fe validator.FieldError) string {
	field := jsonName(fe.Field())
	switch fe.Tag() {
	case "required", "required_if":
		return field + " is required"
	case "min":
		return field + " must have at least " + fe.Param() + " entries"
	case "max":
		return field + " must not exceed " + fe.Param()
	case "oneof":
		return field + " must be one of: " + fe.Param()
	default:
		return field + " is invalid"
	}
}

// jsonName lower-cases the first letter of a Go field name
func jsonName(field string) string {
	if field == "" {
		return field
	}
	if field == "StudentID" {
		return "studentId"
	}
	return strings.ToLower(field[:1]) + field[1:]
}
