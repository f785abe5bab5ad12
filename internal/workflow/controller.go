// Package workflow sequences an applicant through registration, OTP
// verification and the token fee receipt.
package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/litschool/admissions-portal/internal/models"
	"github.com/litschool/admissions-portal/internal/upload"
	"github.com/litschool/admissions-portal/internal/validation"
	apperrors "github.com/litschool/admissions-portal/pkg/errors"
	"github.com/litschool/admissions-portal/pkg/logger"
	"github.com/litschool/admissions-portal/pkg/metrics"
	"go.uber.org/zap"
)

const (
	msgTryAgain        = "Something went wrong. Please try again."
	msgDuplicateEmail  = "An account with this email already exists"
	msgEnterOTP        = "Please enter the OTP sent to your email"
	msgOTPResent       = "A new OTP has been sent to your email"
	msgReceiptFailed   = "Error uploading receipt. Please try again."
	msgResendThrottled = "Too many requests. Please wait before requesting a new OTP."
)

// Options configures a controller
type Options struct {
	Flow Flow
	// Contact and StudentID identify an already registered student in
	// FlowTokenPayment. Sign-up flows learn them from the application.
	Contact   string
	StudentID string
	Upload    upload.Config
}

// Controller owns the workflow state of one applicant. Every method is safe
// for concurrent use. Remote calls run without holding the lock; at most one
// is in flight at a time.
type Controller struct {
	remote    Remote
	validator Validator
	catalog   validation.Catalog

	mu          sync.Mutex
	flow        Flow
	step        Step
	epoch       uint64
	record      models.ApplicantRecord
	frozen      bool
	fieldErrors map[string]string
	stepError   string
	retryable   bool
	otpError    string
	pending     bool
	paymentMode models.PaymentMode
	receipt     *upload.Adapter
	studentID   string
	contact     string
	notice      string
}

// New creates a controller at the first step of opts.Flow
func New(remote Remote, validator Validator, catalog validation.Catalog, opts Options) *Controller {
	flow := opts.Flow
	if flow == "" {
		flow = FlowSignUp
	}
	return &Controller{
		remote:      remote,
		validator:   validator,
		catalog:     catalog,
		flow:        flow,
		step:        flow.firstStep(),
		fieldErrors: map[string]string{},
		paymentMode: models.PaymentCash,
		receipt:     upload.NewAdapter(opts.Upload),
		studentID:   opts.StudentID,
		contact:     opts.Contact,
	}
}

// Flow returns the flow the controller was created for
func (c *Controller) Flow() Flow {
	return c.flow
}

// Catalog returns the reference data the controller validates against
func (c *Controller) Catalog() validation.Catalog {
	return c.catalog
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Flow:        c.flow,
		Step:        c.step,
		Record:      c.record,
		Frozen:      c.frozen,
		StepError:   c.stepError,
		Retryable:   c.retryable,
		OTPError:    c.otpError,
		Pending:     c.pending,
		PaymentMode: c.paymentMode,
		StudentID:   c.studentID,
		Contact:     c.contact,
		Notice:      c.notice,
	}
	if len(c.fieldErrors) > 0 {
		s.FieldErrors = make(map[string]string, len(c.fieldErrors))
		for k, v := range c.fieldErrors {
			s.FieldErrors[k] = v
		}
	}
	if sel, ok := c.receipt.Current(); ok {
		s.Receipt = &ReceiptInfo{
			FileName:    sel.FileName,
			ContentType: sel.ContentType,
			Size:        len(sel.Payload),
			Preview:     sel.Preview,
		}
	}
	return s
}

// SetField edits one field of the applicant record
func (c *Controller) SetField(field, value string) (Outcome, error) {
	return c.SetFields(map[string]string{field: value})
}

// SetFields edits several fields at once. Nothing is applied when any
// field name is unknown.
func (c *Controller) SetFields(values map[string]string) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != Registering || c.frozen {
		return c.finish("set_field", OutcomeRejected, ErrInvalidTransition)
	}
	if c.pending {
		return c.finish("set_field", OutcomeIgnored, nil)
	}

	next := c.record
	for _, field := range fieldOrder(values) {
		if err := next.Set(field, values[field]); err != nil {
			return c.finish("set_field", OutcomeRejected, fmt.Errorf("%w: %s", ErrUnknownField, field))
		}
	}

	// a different program invalidates the cohort error too
	if next.ProgramID != c.record.ProgramID {
		delete(c.fieldErrors, models.FieldCohortID)
	}
	c.record = next
	for field := range values {
		delete(c.fieldErrors, field)
	}
	c.stepError = ""
	c.retryable = false
	return c.finish("set_field", OutcomeAccepted, nil)
}

// SubmitApplication validates the record and sends it to the admissions API
func (c *Controller) SubmitApplication(ctx context.Context) (Outcome, error) {
	const intent = "submit_application"

	c.mu.Lock()
	if c.step != Registering {
		defer c.mu.Unlock()
		return c.finish(intent, OutcomeRejected, ErrInvalidTransition)
	}
	if c.pending {
		defer c.mu.Unlock()
		return c.finish(intent, OutcomeIgnored, nil)
	}

	violations := c.validator.Validate(c.record, c.catalog)
	if len(violations) > 0 {
		defer c.mu.Unlock()
		c.fieldErrors = violations
		c.stepError = ""
		c.retryable = false
		metrics.ApplicationSubmissions.WithLabelValues("invalid").Inc()
		return c.finish(intent, OutcomeRejected, nil)
	}

	record := c.record
	epoch := c.begin()
	c.mu.Unlock()

	result, err := c.remote.SubmitApplication(ctx, &record)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false

	if c.stale(epoch, Registering) {
		logger.Info("Dropping application response for a step already left",
			zap.String("step", c.step.String()))
		return c.finish(intent, OutcomeDropped, nil)
	}

	if err != nil {
		metrics.ApplicationSubmissions.WithLabelValues(string(kindLabel(err))).Inc()
		switch apperrors.KindOf(err) {
		case apperrors.KindDuplicateEmail:
			c.fieldErrors = map[string]string{models.FieldEmail: remoteMessage(err, msgDuplicateEmail)}
			c.stepError = ""
			c.retryable = false
		case apperrors.KindValidationRejected:
			c.fieldErrors = map[string]string{models.FieldEmail: remoteMessage(err, msgTryAgain)}
			c.stepError = ""
			c.retryable = false
		default:
			c.fieldErrors = map[string]string{}
			c.stepError = msgTryAgain
			c.retryable = true
		}
		logger.Warn("Application submission failed",
			zap.String("kind", string(apperrors.KindOf(err))),
			zap.Error(err))
		return c.finish(intent, OutcomeRejected, nil)
	}

	metrics.ApplicationSubmissions.WithLabelValues("success").Inc()
	c.frozen = true
	c.contact = record.Contact()
	if result != nil {
		c.studentID = result.StudentID
		c.notice = result.Message
	}
	c.clearErrors()
	c.moveTo(AwaitingOTP)
	return c.finish(intent, OutcomeAdvanced, nil)
}

// VerifyOTP confirms the code the applicant received
func (c *Controller) VerifyOTP(ctx context.Context, code string) (Outcome, error) {
	const intent = "verify_otp"

	c.mu.Lock()
	if c.step != AwaitingOTP {
		defer c.mu.Unlock()
		return c.finish(intent, OutcomeRejected, ErrInvalidTransition)
	}
	if c.pending {
		defer c.mu.Unlock()
		return c.finish(intent, OutcomeIgnored, nil)
	}

	code = strings.TrimSpace(code)
	if code == "" {
		defer c.mu.Unlock()
		c.otpError = msgEnterOTP
		return c.finish(intent, OutcomeRejected, nil)
	}

	contact := c.contact
	epoch := c.begin()
	c.mu.Unlock()

	err := c.remote.VerifyOTP(ctx, contact, code)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false

	if c.stale(epoch, AwaitingOTP) {
		return c.finish(intent, OutcomeDropped, nil)
	}

	if err != nil {
		metrics.OTPVerifications.WithLabelValues(string(kindLabel(err))).Inc()
		c.notice = ""
		if apperrors.IsTransient(err) || apperrors.KindOf(err) == "" {
			c.stepError = msgTryAgain
			c.retryable = true
		} else {
			c.otpError = remoteMessage(err, "Invalid OTP")
			c.stepError = ""
			c.retryable = false
		}
		return c.finish(intent, OutcomeRejected, nil)
	}

	metrics.OTPVerifications.WithLabelValues("success").Inc()
	c.clearErrors()
	c.notice = ""
	c.moveTo(c.flow.afterOTP())
	return c.finish(intent, OutcomeAdvanced, nil)
}

// ResendOTP asks for a fresh code without leaving the step
func (c *Controller) ResendOTP(ctx context.Context) (Outcome, error) {
	const intent = "resend_otp"

	c.mu.Lock()
	if c.step != AwaitingOTP {
		defer c.mu.Unlock()
		return c.finish(intent, OutcomeRejected, ErrInvalidTransition)
	}
	if c.pending {
		defer c.mu.Unlock()
		return c.finish(intent, OutcomeIgnored, nil)
	}

	contact := c.contact
	epoch := c.begin()
	c.mu.Unlock()

	err := c.remote.ResendOTP(ctx, contact)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false

	if c.stale(epoch, AwaitingOTP) {
		return c.finish(intent, OutcomeDropped, nil)
	}

	if err != nil {
		c.notice = ""
		if apperrors.KindOf(err) == apperrors.KindRateLimited {
			c.stepError = remoteMessage(err, msgResendThrottled)
		} else {
			c.stepError = msgTryAgain
		}
		c.retryable = true
		return c.finish(intent, OutcomeRejected, nil)
	}

	c.otpError = ""
	c.stepError = ""
	c.retryable = false
	c.notice = msgOTPResent
	return c.finish(intent, OutcomeAccepted, nil)
}

// SelectPaymentMode records the chosen mode
func (c *Controller) SelectPaymentMode(mode models.PaymentMode) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != SelectingPaymentMode {
		return c.finish("select_payment_mode", OutcomeRejected, ErrInvalidTransition)
	}
	if _, err := models.ParsePaymentMode(string(mode)); err != nil {
		return c.finish("select_payment_mode", OutcomeRejected, fmt.Errorf("%w: %v", ErrInvalidTransition, err))
	}
	c.paymentMode = mode
	return c.finish("select_payment_mode", OutcomeAccepted, nil)
}

// ConfirmPaymentMode moves on to the receipt upload
func (c *Controller) ConfirmPaymentMode() (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != SelectingPaymentMode {
		return c.finish("confirm_payment_mode", OutcomeRejected, ErrInvalidTransition)
	}
	c.clearErrors()
	c.moveTo(UploadingReceipt)
	return c.finish("confirm_payment_mode", OutcomeAdvanced, nil)
}

// Back returns from the receipt upload to the payment mode choice. The mode
// and the selected file are kept. A pending upload is not cancelled; its
// response will be dropped.
func (c *Controller) Back() (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != UploadingReceipt {
		return c.finish("back", OutcomeRejected, ErrInvalidTransition)
	}
	c.clearErrors()
	c.moveTo(SelectingPaymentMode)
	return c.finish("back", OutcomeAdvanced, nil)
}

// SelectReceipt sets or replaces the receipt file. A rejected file leaves
// the previous one selected.
func (c *Controller) SelectReceipt(fileName string, data []byte) (Outcome, error) {
	c.mu.Lock()
	if c.step != UploadingReceipt {
		defer c.mu.Unlock()
		return c.finish("select_receipt", OutcomeRejected, ErrInvalidTransition)
	}
	if c.pending {
		defer c.mu.Unlock()
		return c.finish("select_receipt", OutcomeIgnored, nil)
	}
	adapter := c.receipt
	c.mu.Unlock()

	// decoding the preview is slow; keep it outside the lock
	sel, err := adapter.Prepare(fileName, data)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != UploadingReceipt {
		return c.finish("select_receipt", OutcomeDropped, nil)
	}
	// a submission started while the file was decoding
	if c.pending {
		return c.finish("select_receipt", OutcomeIgnored, nil)
	}
	if err != nil {
		metrics.ReceiptUploads.WithLabelValues(string(c.paymentMode), "rejected_file").Inc()
		c.stepError = upload.MessageOf(err)
		c.retryable = false
		return c.finish("select_receipt", OutcomeRejected, nil)
	}

	c.receipt.Set(sel)
	c.stepError = ""
	c.retryable = false
	return c.finish("select_receipt", OutcomeAccepted, nil)
}

// RemoveReceipt clears the selected file
func (c *Controller) RemoveReceipt() (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step != UploadingReceipt {
		return c.finish("remove_receipt", OutcomeRejected, ErrInvalidTransition)
	}
	if c.pending {
		return c.finish("remove_receipt", OutcomeIgnored, nil)
	}
	c.receipt.Remove()
	c.stepError = ""
	c.retryable = false
	return c.finish("remove_receipt", OutcomeAccepted, nil)
}

// SubmitReceipt sends the selected receipt with the chosen payment mode
func (c *Controller) SubmitReceipt(ctx context.Context) (Outcome, error) {
	const intent = "submit_receipt"

	c.mu.Lock()
	if c.step != UploadingReceipt {
		defer c.mu.Unlock()
		return c.finish(intent, OutcomeRejected, ErrInvalidTransition)
	}
	if c.pending {
		defer c.mu.Unlock()
		return c.finish(intent, OutcomeIgnored, nil)
	}

	sel, ok := c.receipt.Current()
	if !ok {
		defer c.mu.Unlock()
		c.stepError = upload.ErrNoFile.Message
		c.retryable = false
		metrics.ReceiptUploads.WithLabelValues(string(c.paymentMode), "missing_file").Inc()
		return c.finish(intent, OutcomeRejected, nil)
	}

	mode := c.paymentMode
	contact := c.contact
	epoch := c.begin()
	c.mu.Unlock()

	err := c.remote.SubmitReceipt(ctx, contact, mode, sel.Receipt())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false

	if c.stale(epoch, UploadingReceipt) {
		logger.Info("Dropping receipt response for a step already left",
			zap.String("step", c.step.String()))
		return c.finish(intent, OutcomeDropped, nil)
	}

	if err != nil {
		metrics.ReceiptUploads.WithLabelValues(string(mode), "error").Inc()
		logger.Warn("Receipt upload failed",
			zap.String("payment_mode", string(mode)),
			zap.String("kind", string(apperrors.KindOf(err))),
			zap.Error(err))
		c.stepError = msgReceiptFailed
		c.retryable = true
		return c.finish(intent, OutcomeRejected, nil)
	}

	metrics.ReceiptUploads.WithLabelValues(string(mode), "success").Inc()
	c.clearErrors()
	c.moveTo(Complete)
	return c.finish(intent, OutcomeAdvanced, nil)
}

// begin marks a remote operation in flight and returns the epoch it belongs to
func (c *Controller) begin() uint64 {
	c.pending = true
	c.stepError = ""
	c.retryable = false
	return c.epoch
}

// stale reports whether the controller left the step that dispatched a call
func (c *Controller) stale(epoch uint64, step Step) bool {
	return c.epoch != epoch || c.step != step
}

func (c *Controller) moveTo(next Step) {
	metrics.WorkflowTransitions.WithLabelValues(c.step.String(), next.String()).Inc()
	logger.Debug("Workflow transition",
		zap.String("flow", string(c.flow)),
		zap.String("from", c.step.String()),
		zap.String("to", next.String()))
	c.step = next
	c.epoch++
}

func (c *Controller) clearErrors() {
	c.fieldErrors = map[string]string{}
	c.stepError = ""
	c.retryable = false
	c.otpError = ""
}

func (c *Controller) finish(intent string, outcome Outcome, err error) (Outcome, error) {
	metrics.WorkflowOutcomes.WithLabelValues(intent, outcome.String()).Inc()
	return outcome, err
}

// remoteMessage prefers the message supplied by the admissions API
func remoteMessage(err error, fallback string) string {
	if msg := apperrors.MessageOf(err); msg != "" {
		return msg
	}
	return fallback
}

func kindLabel(err error) apperrors.Kind {
	if kind := apperrors.KindOf(err); kind != "" {
		return kind
	}
	return "error"
}

// fieldOrder lists the edited fields with programId first, since changing
// the program clears the cohort.
func fieldOrder(values map[string]string) []string {
	fields := make([]string, 0, len(values))
	for field := range values {
		fields = append(fields, field)
	}
	sort.Slice(fields, func(i, j int) bool {
		if (fields[i] == models.FieldProgramID) != (fields[j] == models.FieldProgramID) {
			return fields[i] == models.FieldProgramID
		}
		return fields[i] < fields[j]
	})
	return fields
}
