package models

import (
	"fmt"
	"strings"
)

// Qualification is the applicant's current occupation as offered by the sign-up form
type Qualification string

const (
	QualificationStudent             Qualification = "Student"
	QualificationCollegeGraduate     Qualification = "CollegeGraduate"
	QualificationWorkingProfessional Qualification = "WorkingProfessional"
	QualificationFreelancer          Qualification = "Freelancer"
	QualificationBusinessOwner       Qualification = "BusinessOwner"
	QualificationConsultant          Qualification = "Consultant"
	QualificationOther               Qualification = "Other"
)

// Qualifications lists the accepted values in display order
var Qualifications = []Qualification{
	QualificationStudent,
	QualificationCollegeGraduate,
	QualificationWorkingProfessional,
	QualificationFreelancer,
	QualificationBusinessOwner,
	QualificationConsultant,
	QualificationOther,
}

// Label returns the human readable name shown in the qualification picker
func (q Qualification) Label() string {
	switch q {
	case QualificationCollegeGraduate:
		return "College Graduate"
	case QualificationWorkingProfessional:
		return "Working Professional"
	case QualificationBusinessOwner:
		return "Business Owner"
	default:
		return string(q)
	}
}

// Field names of ApplicantRecord, as used in violation maps and field edits
const (
	FieldFirstName     = "firstName"
	FieldLastName      = "lastName"
	FieldEmail         = "email"
	FieldMobileNumber  = "mobileNumber"
	FieldDateOfBirth   = "dateOfBirth"
	FieldQualification = "qualification"
	FieldProgramID     = "programId"
	FieldCohortID      = "cohortId"
	FieldGender        = "gender"
	FieldLinkedInURL   = "linkedInUrl"
	FieldInstagramURL  = "instagramUrl"
)

// DateLayout is the calendar date format typed into the date of birth input
const DateLayout = "2006-01-02"

// ApplicantRecord is the sign-up form as the applicant fills it in.
// DateOfBirth keeps the raw typed value so that a malformed date is
// reported as a violation instead of failing to decode.
type ApplicantRecord struct {
	FirstName     string        `json:"firstName" validate:"notblank"`
	LastName      string        `json:"lastName" validate:"notblank"`
	Email         string        `json:"email" validate:"required,email"`
	MobileNumber  string        `json:"mobileNumber" validate:"mobile"`
	DateOfBirth   string        `json:"dateOfBirth" validate:"required,calendardate,adult"`
	Qualification Qualification `json:"qualification" validate:"required,qualification"`
	ProgramID     string        `json:"programId" validate:"required"`
	CohortID      string        `json:"cohortId" validate:"required"`

	Gender       string `json:"gender,omitempty" validate:"omitempty,max=32"`
	LinkedInURL  string `json:"linkedInUrl,omitempty" validate:"omitempty,url"`
	InstagramURL string `json:"instagramUrl,omitempty" validate:"omitempty,url"`
}

// Set updates a single field by its form name
func (r *ApplicantRecord) Set(field, value string) error {
	switch field {
	case FieldFirstName:
		r.FirstName = value
	case FieldLastName:
		r.LastName = value
	case FieldEmail:
		r.Email = strings.TrimSpace(value)
	case FieldMobileNumber:
		r.MobileNumber = value
	case FieldDateOfBirth:
		r.DateOfBirth = strings.TrimSpace(value)
	case FieldQualification:
		r.Qualification = Qualification(value)
	case FieldProgramID:
		// a different program invalidates the chosen cohort
		if r.ProgramID != value {
			r.CohortID = ""
		}
		r.ProgramID = value
	case FieldCohortID:
		r.CohortID = value
	case FieldGender:
		r.Gender = value
	case FieldLinkedInURL:
		r.LinkedInURL = strings.TrimSpace(value)
	case FieldInstagramURL:
		r.InstagramURL = strings.TrimSpace(value)
	default:
		return fmt.Errorf("unknown applicant field %q", field)
	}
	return nil
}

// Contact returns the address OTPs are sent to
func (r *ApplicantRecord) Contact() string {
	return r.Email
}
