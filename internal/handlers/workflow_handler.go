package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/litschool/admissions-portal/internal/middleware"
	"github.com/litschool/admissions-portal/internal/models"
	"github.com/litschool/admissions-portal/internal/presentation"
	"github.com/litschool/admissions-portal/internal/services"
	"github.com/litschool/admissions-portal/internal/upload"
	"github.com/litschool/admissions-portal/internal/workflow"
	"github.com/litschool/admissions-portal/pkg/logger"
	"go.uber.org/zap"
)

// receiptFormField is the multipart field carrying the receipt image
const receiptFormField = "receipt"

// WorkflowResponse is returned by every workflow intent
type WorkflowResponse struct {
	Outcome workflow.Outcome  `json:"outcome"`
	View    presentation.View `json:"view"`
}

// StartSessionResponse carries the bearer token of a new session
type StartSessionResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expiresAt"`
	View      presentation.View `json:"view"`
}

// WorkflowHandler drives a session's workflow controller over HTTP
type WorkflowHandler struct {
	sessions     services.SessionServiceInterface
	bank         presentation.BankDetails
	maxReceiptSz int64
}

func NewWorkflowHandler(sessions services.SessionServiceInterface, bank presentation.BankDetails, uploadCfg upload.Config) *WorkflowHandler {
	return &WorkflowHandler{
		sessions:     sessions,
		bank:         bank,
		maxReceiptSz: uploadCfg.MaxBytes,
	}
}

// StartSession handles POST /api/v1/sessions
func (h *WorkflowHandler) StartSession(c *gin.Context) {
	var req models.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondErrorWithDetails(c, http.StatusBadRequest, "Validation failed", ParseValidationErrors(err), err)
		return
	}

	session, token, err := h.sessions.Start(c.Request.Context(), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, StartSessionResponse{
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		View:      h.render(session),
	})
}

// GetSession handles GET /api/v1/session
func (h *WorkflowHandler) GetSession(c *gin.Context) {
	h.withSession(c, func(_ context.Context, _ *workflow.Controller) (workflow.Outcome, error) {
		return workflow.OutcomeAccepted, nil
	})
}

// EndSession handles DELETE /api/v1/session
func (h *WorkflowHandler) EndSession(c *gin.Context) {
	session, err := middleware.GetSession(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}
	h.sessions.End(session.ID)
	c.Status(http.StatusNoContent)
}

// UpdateApplicant handles PATCH /api/v1/session/applicant
func (h *WorkflowHandler) UpdateApplicant(c *gin.Context) {
	var req models.UpdateApplicantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithDetails(c, http.StatusBadRequest, "Validation failed", ParseValidationErrors(err), err)
		return
	}
	h.withSession(c, func(_ context.Context, ctrl *workflow.Controller) (workflow.Outcome, error) {
		return ctrl.SetFields(req.Fields)
	})
}

// SubmitApplication handles POST /api/v1/session/application
func (h *WorkflowHandler) SubmitApplication(c *gin.Context) {
	h.withSession(c, func(ctx context.Context, ctrl *workflow.Controller) (workflow.Outcome, error) {
		return ctrl.SubmitApplication(ctx)
	})
}

// VerifyOTP handles POST /api/v1/session/otp/verify
func (h *WorkflowHandler) VerifyOTP(c *gin.Context) {
	var req models.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithDetails(c, http.StatusBadRequest, "Validation failed", ParseValidationErrors(err), err)
		return
	}
	h.withSession(c, func(ctx context.Context, ctrl *workflow.Controller) (workflow.Outcome, error) {
		return ctrl.VerifyOTP(ctx, req.Code)
	})
}

// ResendOTP handles POST /api/v1/session/otp/resend
func (h *WorkflowHandler) ResendOTP(c *gin.Context) {
	h.withSession(c, func(ctx context.Context, ctrl *workflow.Controller) (workflow.Outcome, error) {
		return ctrl.ResendOTP(ctx)
	})
}

// SelectPaymentMode handles POST /api/v1/session/payment-mode
func (h *WorkflowHandler) SelectPaymentMode(c *gin.Context) {
	var req models.PaymentModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondErrorWithDetails(c, http.StatusBadRequest, "Validation failed", ParseValidationErrors(err), err)
		return
	}
	mode, err := models.ParsePaymentMode(req.Mode)
	if err != nil {
		respondErrorWithDetails(c, http.StatusBadRequest, "Validation failed",
			[]ValidationError{{Field: "mode", Message: "mode must be cash or bank_transfer"}}, err)
		return
	}
	h.withSession(c, func(_ context.Context, ctrl *workflow.Controller) (workflow.Outcome, error) {
		return ctrl.SelectPaymentMode(mode)
	})
}

// ConfirmPaymentMode handles POST /api/v1/session/payment-mode/confirm
func (h *WorkflowHandler) ConfirmPaymentMode(c *gin.Context) {
	h.withSession(c, func(_ context.Context, ctrl *workflow.Controller) (workflow.Outcome, error) {
		return ctrl.ConfirmPaymentMode()
	})
}

// Back handles POST /api/v1/session/back
func (h *WorkflowHandler) Back(c *gin.Context) {
	h.withSession(c, func(_ context.Context, ctrl *workflow.Controller) (workflow.Outcome, error) {
		return ctrl.Back()
	})
}

// SelectReceipt handles PUT /api/v1/session/receipt
// Expects a multipart form with the image in the "receipt" field.
func (h *WorkflowHandler) SelectReceipt(c *gin.Context) {
	fileName, data, err := h.readReceipt(c)
	if err != nil {
		switch {
		case middleware.IsBodyTooLarge(err):
			respondError(c, http.StatusRequestEntityTooLarge, upload.ErrTooLarge.Message, err)
		case errors.Is(err, http.ErrMissingFile):
			respondError(c, http.StatusBadRequest, upload.ErrNoFile.Message, err)
		default:
			respondError(c, http.StatusBadRequest, "Invalid upload", err)
		}
		return
	}
	h.withSession(c, func(_ context.Context, ctrl *workflow.Controller) (workflow.Outcome, error) {
		return ctrl.SelectReceipt(fileName, data)
	})
}

// RemoveReceipt handles DELETE /api/v1/session/receipt
func (h *WorkflowHandler) RemoveReceipt(c *gin.Context) {
	h.withSession(c, func(_ context.Context, ctrl *workflow.Controller) (workflow.Outcome, error) {
		return ctrl.RemoveReceipt()
	})
}

// SubmitReceipt handles POST /api/v1/session/receipt/submit
func (h *WorkflowHandler) SubmitReceipt(c *gin.Context) {
	h.withSession(c, func(ctx context.Context, ctrl *workflow.Controller) (workflow.Outcome, error) {
		return ctrl.SubmitReceipt(ctx)
	})
}

// withSession runs intent against the request's session and writes the
// resulting view. Remote calls outlive a disconnected client so the
// controller always settles.
func (h *WorkflowHandler) withSession(c *gin.Context, intent func(context.Context, *workflow.Controller) (workflow.Outcome, error)) {
	session, err := middleware.GetSession(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	outcome, err := intent(context.WithoutCancel(c.Request.Context()), session.Controller)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if outcome == workflow.OutcomeDropped {
		logger.Debug("Workflow response dropped",
			zap.String("session_id", session.ID),
			zap.String("step", session.Controller.Snapshot().Step.String()))
	}

	c.JSON(outcomeStatus(outcome), WorkflowResponse{
		Outcome: outcome,
		View:    h.render(session),
	})
}

func (h *WorkflowHandler) render(session *services.Session) presentation.View {
	var catalog presentation.Catalog
	if session.Catalog != nil {
		catalog = session.Catalog
	}
	return presentation.Render(session.Controller.Snapshot(), catalog, h.bank)
}

func (h *WorkflowHandler) readReceipt(c *gin.Context) (string, []byte, error) {
	header, err := c.FormFile(receiptFormField)
	if err != nil {
		return "", nil, err
	}
	file, err := header.Open()
	if err != nil {
		return "", nil, fmt.Errorf("open receipt: %w", err)
	}
	defer file.Close()

	// one byte past the cap lets the adapter report the size
	data, err := io.ReadAll(io.LimitReader(file, h.maxReceiptSz+1))
	if err != nil {
		return "", nil, fmt.Errorf("read receipt: %w", err)
	}
	return header.Filename, data, nil
}

// outcomeStatus maps an intent outcome to an HTTP status
func outcomeStatus(outcome workflow.Outcome) int {
	switch outcome {
	case workflow.OutcomeRejected:
		return http.StatusUnprocessableEntity
	case workflow.OutcomeIgnored:
		return http.StatusAccepted
	default:
		return http.StatusOK
	}
}
