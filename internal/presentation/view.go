// Package presentation renders a workflow snapshot into the view model the
// browser draws. Rendering is pure: the same snapshot and catalog always give
// the same view.
package presentation

import (
	"github.com/litschool/admissions-portal/internal/models"
	"github.com/litschool/admissions-portal/internal/workflow"
)

// Catalog is the reference data needed to label form options
type Catalog interface {
	Programs() []models.Program
	OpenCohorts(programID string) []models.Cohort
	Centre(id string) (models.Centre, bool)
}

// BankDetails is the account shown for bank transfers
type BankDetails struct {
	AccountName   string `json:"accountName"`
	AccountNumber string `json:"accountNumber"`
	IFSC          string `json:"ifsc"`
	Branch        string `json:"branch"`
}

// Option is one entry of a picker
type Option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

// Instructions explain how to pay with the chosen mode
type Instructions struct {
	Mode    models.PaymentMode `json:"mode"`
	Heading string             `json:"heading"`
	Body    string             `json:"body"`
	Bank    *BankDetails       `json:"bank,omitempty"`
}

// Form is the sign-up form with its pickers
type Form struct {
	Record         models.ApplicantRecord `json:"record"`
	Editable       bool                   `json:"editable"`
	Qualifications []Option               `json:"qualifications"`
	Programs       []Option               `json:"programs"`
	Cohorts        []Option               `json:"cohorts"`
}

// OTPPrompt is the code entry shown after the application is accepted
type OTPPrompt struct {
	Contact   string `json:"contact"`
	Error     string `json:"error,omitempty"`
	CanResend bool   `json:"canResend"`
}

// Payment is the token fee dialog
type Payment struct {
	Modes        []Option              `json:"modes"`
	Instructions Instructions          `json:"instructions"`
	Receipt      *workflow.ReceiptInfo `json:"receipt,omitempty"`
}

// View is everything the browser needs to draw the current step
type View struct {
	Flow          workflow.Flow     `json:"flow"`
	Step          workflow.Step     `json:"step"`
	StepLabel     string            `json:"stepLabel,omitempty"`
	Title         string            `json:"title"`
	SubmitLabel   string            `json:"submitLabel,omitempty"`
	SubmitEnabled bool              `json:"submitEnabled"`
	Pending       bool              `json:"pending"`
	CanGoBack     bool              `json:"canGoBack"`
	FieldErrors   map[string]string `json:"fieldErrors,omitempty"`
	StepError     string            `json:"stepError,omitempty"`
	Retryable     bool              `json:"retryable"`
	Notice        string            `json:"notice,omitempty"`
	Form          *Form             `json:"form,omitempty"`
	OTP           *OTPPrompt        `json:"otp,omitempty"`
	Payment       *Payment          `json:"payment,omitempty"`
	Complete      bool              `json:"complete"`
}
