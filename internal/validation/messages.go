package validation

import (
	"github.com/go-playground/validator/v10"
	"github.com/litschool/admissions-portal/internal/models"
)

const (
	msgSelectProgram  = "Please select a program"
	msgSelectCohort   = "Please select a cohort"
	msgCohortMismatch = "Selected cohort does not belong to the selected program"
	msgCohortClosed   = "Selected cohort is not open for applications"
)

// messageFor returns the user facing message for a failed rule
func messageFor(fe validator.FieldError) string {
	switch fe.Field() {
	case models.FieldFirstName:
		return "First name is required"
	case models.FieldLastName:
		return "Last name is required"
	case models.FieldEmail:
		return "Invalid email address"
	case models.FieldMobileNumber:
		return "Contact No. should be 10 digits"
	case models.FieldDateOfBirth:
		switch fe.Tag() {
		case "required":
			return "Date of birth is required"
		case "calendardate":
			return "Please enter a valid date"
		default:
			return "You must be at least 16 years old"
		}
	case models.FieldQualification:
		if fe.Tag() == "qualification" {
			return "Please select a valid qualification"
		}
		return "Qualification is required"
	case models.FieldProgramID:
		return msgSelectProgram
	case models.FieldCohortID:
		return msgSelectCohort
	}

	switch fe.Tag() {
	case "max":
		return fe.Field() + " must not exceed " + fe.Param() + " characters"
	case "url":
		return "Invalid URL format"
	default:
		return fe.Field() + " is invalid"
	}
}
