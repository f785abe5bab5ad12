package presentation

import (
	"fmt"
	"time"

	"github.com/litschool/admissions-portal/internal/models"
	"github.com/litschool/admissions-portal/internal/workflow"
)

const unknownCentre = "--"

// Render builds the view of snap. catalog may be nil before reference data
// is loaded; pickers are then empty.
func Render(snap workflow.Snapshot, catalog Catalog, bank BankDetails) View {
	v := View{
		Flow:        snap.Flow,
		Step:        snap.Step,
		Pending:     snap.Pending,
		CanGoBack:   snap.CanGoBack(),
		FieldErrors: snap.FieldErrors,
		StepError:   snap.StepError,
		Retryable:   snap.Retryable,
		Notice:      snap.Notice,
	}

	switch snap.Step {
	case workflow.Registering:
		v.Title = "Sign Up"
		v.SubmitLabel = pendingLabel(snap.Pending, "Sending OTP...", "Verify Account")
		v.SubmitEnabled = !snap.Pending
		v.Form = renderForm(snap, catalog)

	case workflow.AwaitingOTP:
		v.Title = "Verify your email"
		v.SubmitLabel = pendingLabel(snap.Pending, "Verifying...", "Verify OTP")
		v.SubmitEnabled = !snap.Pending
		v.OTP = &OTPPrompt{
			Contact:   snap.Contact,
			Error:     snap.OTPError,
			CanResend: snap.CanResendOTP(),
		}

	case workflow.SelectingPaymentMode:
		v.StepLabel = "STEP 01"
		v.Title = "Select Payment Mode"
		v.SubmitLabel = "Continue"
		v.SubmitEnabled = true
		v.Payment = renderPayment(snap, bank)

	case workflow.UploadingReceipt:
		v.StepLabel = "STEP 02"
		v.Title = "Upload your Payment Receipt"
		v.SubmitLabel = pendingLabel(snap.Pending, "Submitting...", "Submit")
		v.SubmitEnabled = !snap.Pending
		v.Payment = renderPayment(snap, bank)

	case workflow.Complete:
		v.Complete = true
		v.Title = completeTitle(snap.Flow)
	}

	return v
}

// PaymentInstructions returns the guidance for a payment mode. Bank details
// are only disclosed for bank transfers.
func PaymentInstructions(mode models.PaymentMode, step workflow.Step, bank BankDetails) Instructions {
	switch mode {
	case models.PaymentBankTransfer:
		in := Instructions{
			Mode:    mode,
			Heading: mode.Label(),
			Body: "You will be provided LIT School's bank account details. You may make a NEFT " +
				"transaction to the same account. Once you have made a transaction please upload " +
				"an acknowledgement receipt.",
			Bank: &bank,
		}
		if step == workflow.UploadingReceipt {
			in.Body = "Upload a soft copy of the acknowledgement receipt of your transfer to access your dashboard."
		}
		return in
	default:
		in := Instructions{
			Mode:    models.PaymentCash,
			Heading: models.PaymentCash.Label(),
			Body: "You may make a cash payment in person, following which you will receive a receipt. " +
				"On uploading a soft copy of the receipt on the portal you will be able to access your dashboard.",
		}
		if step == workflow.UploadingReceipt {
			in.Body = "Upload a soft copy of the acknowledgement receipt issued to you by our fee manager to access your dashboard."
		}
		return in
	}
}

// CohortLabel formats a cohort as "January, 2025 (Morning), Centre"
func CohortLabel(cohort models.Cohort, centreName string) string {
	if centreName == "" {
		centreName = unknownCentre
	}
	start := "--"
	if !cohort.StartDate.IsZero() {
		start = MonthYear(cohort.StartDate)
	}
	if cohort.TimeSlot == "" {
		return fmt.Sprintf("%s, %s", start, centreName)
	}
	return fmt.Sprintf("%s (%s), %s", start, cohort.TimeSlot, centreName)
}

// MonthYear formats t as "January, 2025"
func MonthYear(t time.Time) string {
	return t.Format("January, 2006")
}

func renderForm(snap workflow.Snapshot, catalog Catalog) *Form {
	f := &Form{
		Record:         snap.Record,
		Editable:       !snap.Frozen && !snap.Pending,
		Qualifications: make([]Option, 0, len(models.Qualifications)),
	}

	for _, q := range models.Qualifications {
		f.Qualifications = append(f.Qualifications, Option{
			Value:    string(q),
			Label:    q.Label(),
			Selected: q == snap.Record.Qualification,
		})
	}

	if catalog == nil {
		return f
	}

	for _, p := range catalog.Programs() {
		f.Programs = append(f.Programs, Option{
			Value:    p.ID,
			Label:    p.Name,
			Selected: p.ID == snap.Record.ProgramID,
		})
	}

	// cohorts follow the selected program
	for _, c := range catalog.OpenCohorts(snap.Record.ProgramID) {
		centreName := unknownCentre
		if centre, ok := catalog.Centre(c.CentreID); ok {
			centreName = centre.Name
		}
		f.Cohorts = append(f.Cohorts, Option{
			Value:    c.ID,
			Label:    CohortLabel(c, centreName),
			Selected: c.ID == snap.Record.CohortID,
		})
	}

	return f
}

func renderPayment(snap workflow.Snapshot, bank BankDetails) *Payment {
	p := &Payment{
		Instructions: PaymentInstructions(snap.PaymentMode, snap.Step, bank),
		Receipt:      snap.Receipt,
	}
	for _, mode := range []models.PaymentMode{models.PaymentCash, models.PaymentBankTransfer} {
		// once on the upload step only the chosen mode is shown
		if snap.Step == workflow.UploadingReceipt && mode != snap.PaymentMode {
			continue
		}
		p.Modes = append(p.Modes, Option{
			Value:    string(mode),
			Label:    mode.Label(),
			Selected: mode == snap.PaymentMode,
		})
	}
	return p
}

func completeTitle(flow workflow.Flow) string {
	if flow == workflow.FlowSignUp {
		return "Your account is verified"
	}
	return "Payment receipt submitted"
}

func pendingLabel(pending bool, busy, idle string) string {
	if pending {
		return busy
	}
	return idle
}
