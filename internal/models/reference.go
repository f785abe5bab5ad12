package models

import "time"

// Program is a course offered by the school
type Program struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	DurationMonths int    `json:"durationMonths"`
	Prefix         string `json:"prefix"`
	IsActive       bool   `json:"isActive"`
}

// CohortStatus is the enrollment state of a cohort
type CohortStatus string

const (
	CohortOpen   CohortStatus = "Open"
	CohortClosed CohortStatus = "Closed"
)

// Cohort is a scheduled offering of a Program at a Centre
type Cohort struct {
	ID          string       `json:"id"`
	Code        string       `json:"cohortId"`
	ProgramID   string       `json:"programId"`
	CentreID    string       `json:"centreId"`
	StartDate   time.Time    `json:"startDate"`
	EndDate     time.Time    `json:"endDate"`
	Schedule    string       `json:"schedule"`
	TimeSlot    string       `json:"timeSlot"`
	TotalSeats  int          `json:"totalSeats"`
	FilledSeats int          `json:"filledSeats"`
	Status      CohortStatus `json:"status"`
	BaseFee     string       `json:"baseFee"`
	IsComplete  bool         `json:"isComplete"`
}

// IsOpen reports whether applicants may still pick this cohort
func (c Cohort) IsOpen() bool {
	return c.Status == CohortOpen
}

// SeatsLeft returns the number of unfilled seats
func (c Cohort) SeatsLeft() int {
	return c.TotalSeats - c.FilledSeats
}

// Consistent reports whether the seat counters are sane
func (c Cohort) Consistent() bool {
	return c.FilledSeats >= 0 && c.FilledSeats <= c.TotalSeats
}

// Centre is a physical campus
type Centre struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StudentStatus is the dashboard view of an existing student record
type StudentStatus struct {
	ID                string `json:"id"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Email             string `json:"email"`
	MobileNumber      string `json:"mobileNumber"`
	ProgramID         string `json:"programId"`
	CohortID          string `json:"cohortId"`
	ApplicationStatus string `json:"applicationStatus"`
	IsVerified        bool   `json:"isVerified"`
}
