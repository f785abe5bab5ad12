package portalapi

import (
	"strings"
	"time"

	"github.com/litschool/admissions-portal/internal/models"
)

// Wire shapes of the admissions API. Reference endpoints wrap payloads in
// {"data": ...} and use Mongo-style "_id" keys.

type envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type programWire struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Prefix      string `json:"prefix"`
	Status      bool   `json:"status"`
}

func (p programWire) toModel() models.Program {
	return models.Program{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		DurationMonths: p.Duration,
		Prefix:         p.Prefix,
		IsActive:       p.Status,
	}
}

type cohortWire struct {
	ID            string `json:"_id"`
	CohortID      string `json:"cohortId"`
	ProgramDetail string `json:"programDetail"`
	CenterDetail  string `json:"centerDetail"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	Schedule      string `json:"schedule"`
	TotalSeats    int    `json:"totalSeats"`
	TimeSlot      string `json:"timeSlot"`
	Filled        int    `json:"filled"`
	Status        string `json:"status"`
	BaseFee       string `json:"baseFee"`
	IsComplete    bool   `json:"isComplete"`
}

func (c cohortWire) toModel() models.Cohort {
	return models.Cohort{
		ID:          c.ID,
		Code:        c.CohortID,
		ProgramID:   c.ProgramDetail,
		CentreID:    c.CenterDetail,
		StartDate:   parseAPITime(c.StartDate),
		EndDate:     parseAPITime(c.EndDate),
		Schedule:    c.Schedule,
		TimeSlot:    c.TimeSlot,
		TotalSeats:  c.TotalSeats,
		FilledSeats: c.Filled,
		Status:      models.CohortStatus(c.Status),
		BaseFee:     c.BaseFee,
		IsComplete:  c.IsComplete,
	}
}

type centreWire struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type studentWire struct {
	ID                string `json:"_id"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Email             string `json:"email"`
	MobileNumber      string `json:"mobileNumber"`
	Program           string `json:"program"`
	Cohort            string `json:"cohort"`
	ApplicationStatus string `json:"applicationStatus"`
	IsVerified        bool   `json:"isVerified"`
}

func (s studentWire) toModel() *models.StudentStatus {
	return &models.StudentStatus{
		ID:                s.ID,
		FirstName:         s.FirstName,
		LastName:          s.LastName,
		Email:             s.Email,
		MobileNumber:      s.MobileNumber,
		ProgramID:         s.Program,
		CohortID:          s.Cohort,
		ApplicationStatus: s.ApplicationStatus,
		IsVerified:        s.IsVerified,
	}
}

// signUpRequest is the body of the sign-up call; dates travel as YYYY-MM-DD
type signUpRequest struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	MobileNumber  string `json:"mobileNumber"`
	DateOfBirth   string `json:"dateOfBirth"`
	Qualification string `json:"qualification"`
	Program       string `json:"program"`
	Cohort        string `json:"cohort"`
	Gender        string `json:"gender,omitempty"`
	LinkedInURL   string `json:"linkedInUrl,omitempty"`
	InstagramURL  string `json:"instagramUrl,omitempty"`
}

func newSignUpRequest(r *models.ApplicantRecord) signUpRequest {
	dob := r.DateOfBirth
	if t, err := time.Parse(models.DateLayout, dob); err == nil {
		dob = t.Format(models.DateLayout)
	}
	return signUpRequest{
		FirstName:     strings.TrimSpace(r.FirstName),
		LastName:      strings.TrimSpace(r.LastName),
		Email:         r.Email,
		MobileNumber:  r.MobileNumber,
		DateOfBirth:   dob,
		Qualification: string(r.Qualification),
		Program:       r.ProgramID,
		Cohort:        r.CohortID,
		Gender:        r.Gender,
		LinkedInURL:   r.LinkedInURL,
		InstagramURL:  r.InstagramURL,
	}
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp,omitempty"`
}

// SignUpResult is the accepted sign-up acknowledgement
type SignUpResult struct {
	StudentID string `json:"studentId"`
	Message   string `json:"message"`
}

type signUpResponse struct {
	Message string `json:"message"`
	Data    struct {
		ID string `json:"_id"`
	} `json:"data"`
}

// parseAPITime accepts full ISO timestamps and bare dates
func parseAPITime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, models.DateLayout} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
