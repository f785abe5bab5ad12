package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/litschool/admissions-portal/internal/models"
	"github.com/litschool/admissions-portal/internal/portalapi"
	"github.com/litschool/admissions-portal/internal/validation"
)

// Step is the position of the applicant in the workflow
type Step int

const (
	Registering Step = iota
	AwaitingOTP
	SelectingPaymentMode
	UploadingReceipt
	Complete
)

func (s Step) String() string {
	switch s {
	case Registering:
		return "registering"
	case AwaitingOTP:
		return "awaiting_otp"
	case SelectingPaymentMode:
		return "selecting_payment_mode"
	case UploadingReceipt:
		return "uploading_receipt"
	case Complete:
		return "complete"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// MarshalText encodes the step by name
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Flow selects which steps a controller walks through
type Flow string

const (
	// FlowSignUp ends once the OTP is confirmed
	FlowSignUp Flow = "sign_up"
	// FlowSignUpWithPayment continues to the token fee after the OTP
	FlowSignUpWithPayment Flow = "sign_up_with_payment"
	// FlowTokenPayment is the token fee alone, for a registered student
	FlowTokenPayment Flow = "token_payment"
)

// ParseFlow accepts a flow name; empty means FlowSignUp
func ParseFlow(raw string) (Flow, error) {
	switch Flow(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FlowSignUp:
		return FlowSignUp, nil
	case FlowSignUpWithPayment:
		return FlowSignUpWithPayment, nil
	case FlowTokenPayment:
		return FlowTokenPayment, nil
	default:
		return "", fmt.Errorf("unknown flow %q", raw)
	}
}

// firstStep is where a controller of the flow starts
func (f Flow) firstStep() Step {
	if f == FlowTokenPayment {
		return SelectingPaymentMode
	}
	return Registering
}

// afterOTP is where a confirmed OTP leads
func (f Flow) afterOTP() Step {
	if f == FlowSignUpWithPayment {
		return SelectingPaymentMode
	}
	return Complete
}

// Outcome tells the caller what an intent did
type Outcome int

const (
	// OutcomeAdvanced means the step changed
	OutcomeAdvanced Outcome = iota
	// OutcomeAccepted means the state changed within the same step
	OutcomeAccepted
	// OutcomeRejected means an error was recorded and the step is unchanged
	OutcomeRejected
	// OutcomeIgnored means a remote operation was already pending
	OutcomeIgnored
	// OutcomeDropped means the response arrived after the controller left the step
	OutcomeDropped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdvanced:
		return "advanced"
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeDropped:
		return "dropped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MarshalText encodes the outcome by name
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

var (
	// ErrInvalidTransition is returned for an intent the current step does not accept
	ErrInvalidTransition = errors.New("intent not allowed in current step")
	// ErrUnknownField is returned when an edit names a field the form does not have
	ErrUnknownField = errors.New("unknown applicant field")
)

// Remote is the part of the admissions API the workflow drives
type Remote interface {
	SubmitApplication(ctx context.Context, record *models.ApplicantRecord) (*portalapi.SignUpResult, error)
	VerifyOTP(ctx context.Context, contact, code string) error
	ResendOTP(ctx context.Context, contact string) error
	SubmitReceipt(ctx context.Context, contact string, mode models.PaymentMode, receipt models.Receipt) error
}

// Validator checks an applicant record against the reference data
type Validator interface {
	Validate(record models.ApplicantRecord, catalog validation.Catalog) map[string]string
}

// ReceiptInfo describes the selected receipt without its payload
type ReceiptInfo struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
	Preview     string `json:"preview"`
}

// Snapshot is a copy of the workflow state. Changing it has no effect on
// the controller.
type Snapshot struct {
	Flow        Flow                   `json:"flow"`
	Step        Step                   `json:"step"`
	Record      models.ApplicantRecord `json:"record"`
	Frozen      bool                   `json:"frozen"`
	FieldErrors map[string]string      `json:"fieldErrors,omitempty"`
	StepError   string                 `json:"stepError,omitempty"`
	Retryable   bool                   `json:"retryable"`
	OTPError    string                 `json:"otpError,omitempty"`
	Pending     bool                   `json:"pending"`
	PaymentMode models.PaymentMode     `json:"paymentMode"`
	Receipt     *ReceiptInfo           `json:"receipt,omitempty"`
	StudentID   string                 `json:"studentId,omitempty"`
	Contact     string                 `json:"contact,omitempty"`
	Notice      string                 `json:"notice,omitempty"`
}

// CanGoBack reports whether Back is accepted
func (s Snapshot) CanGoBack() bool {
	return s.Step == UploadingReceipt
}

// CanResendOTP reports whether a new code may be requested now
func (s Snapshot) CanResendOTP() bool {
	return s.Step == AwaitingOTP && !s.Pending
}
