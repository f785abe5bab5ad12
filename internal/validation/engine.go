// Package validation checks an applicant record before it may be submitted.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/litschool/admissions-portal/internal/models"
)

// MinimumAge is the youngest an applicant may be on the day of submission
const MinimumAge = 16

// minMobileDigits is the length of a national mobile number
const minMobileDigits = 10

// Catalog is the reference data a record is checked against
type Catalog interface {
	Program(id string) (models.Program, bool)
	Cohort(id string) (models.Cohort, bool)
}

// Engine validates applicant records. It is safe for concurrent use.
type Engine struct {
	validate *validator.Validate
	now      func() time.Time
}

// NewEngine creates an engine that measures age against now.
// A nil now uses the wall clock.
func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)

	e := &Engine{validate: v, now: now}

	// Registration only fails for malformed tags, which are constants here
	mustRegister(v, "notblank", notBlank)
	mustRegister(v, "mobile", mobileNumber)
	mustRegister(v, "calendardate", calendarDate)
	mustRegister(v, "adult", e.adult)
	mustRegister(v, "qualification", knownQualification)

	return e
}

// Validate returns a message for every field of record that fails its rule.
// An empty map means the record can be submitted.
func (e *Engine) Validate(record models.ApplicantRecord, catalog Catalog) map[string]string {
	violations := make(map[string]string)

	if err := e.validate.Struct(record); err != nil {
		var fieldErrors validator.ValidationErrors
		if !errors.As(err, &fieldErrors) {
			// only reachable with a non-struct argument
			violations["record"] = err.Error()
			return violations
		}
		for _, fe := range fieldErrors {
			if _, seen := violations[fe.Field()]; !seen {
				violations[fe.Field()] = messageFor(fe)
			}
		}
	}

	e.checkReferences(record, catalog, violations)
	return violations
}

// checkReferences verifies the program and cohort ids against the catalog.
// Fields already in violation keep their first message.
func (e *Engine) checkReferences(record models.ApplicantRecord, catalog Catalog, violations map[string]string) {
	if _, bad := violations[models.FieldProgramID]; !bad {
		if catalog == nil {
			violations[models.FieldProgramID] = msgSelectProgram
		} else if _, ok := catalog.Program(record.ProgramID); !ok {
			violations[models.FieldProgramID] = msgSelectProgram
		}
	}

	if _, bad := violations[models.FieldCohortID]; bad {
		return
	}
	if catalog == nil {
		violations[models.FieldCohortID] = msgSelectCohort
		return
	}
	cohort, ok := catalog.Cohort(record.CohortID)
	switch {
	case !ok:
		violations[models.FieldCohortID] = msgSelectCohort
	case cohort.ProgramID != record.ProgramID:
		violations[models.FieldCohortID] = msgCohortMismatch
	case !cohort.IsOpen():
		violations[models.FieldCohortID] = msgCohortClosed
	}
}

// Age returns the completed years between dob and now
func Age(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}

// ParseDate parses a calendar date typed as YYYY-MM-DD
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(models.DateLayout, strings.TrimSpace(raw))
}

func (e *Engine) adult(fl validator.FieldLevel) bool {
	dob, err := ParseDate(fl.Field().String())
	if err != nil {
		return false
	}
	now := e.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if dob.After(today) {
		return false
	}
	return Age(dob, today) >= MinimumAge
}

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func calendarDate(fl validator.FieldLevel) bool {
	_, err := ParseDate(fl.Field().String())
	return err == nil
}

func knownQualification(fl validator.FieldLevel) bool {
	value := models.Qualification(fl.Field().String())
	for _, q := range models.Qualifications {
		if q == value {
			return true
		}
	}
	return false
}

func mobileNumber(fl validator.FieldLevel) bool {
	return NationalDigits(fl.Field().String()) >= minMobileDigits
}

// NationalDigits counts the digits of a phone number once an international
// prefix is removed. Returns 0 for input containing anything other than
// digits, spaces, dashes, dots and parentheses after the prefix.
func NationalDigits(raw string) int {
	raw = strings.TrimSpace(raw)
	international := strings.HasPrefix(raw, "+")
	if international {
		raw = raw[1:]
		// "+91 98765 43210": the first group is the country code
		if i := strings.IndexAny(raw, " -("); i > 0 && isDigits(raw[:i]) {
			return countDigits(raw[i:])
		}
	} else if strings.HasPrefix(raw, "00") {
		international = true
		raw = raw[2:]
	}

	digits := countDigits(raw)
	if digits < 0 || !international {
		return max(digits, 0)
	}

	// "+919876543210": the country code is whatever precedes the national
	// number, between one and three digits
	cc := min(max(digits-minMobileDigits, 1), 3)
	return digits - cc
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			n++
		case r == ' ', r == '-', r == '.', r == '(', r == ')':
		default:
			return -1
		}
	}
	return n
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}
