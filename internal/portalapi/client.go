package portalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/litschool/admissions-portal/internal/models"
	"github.com/litschool/admissions-portal/pkg/circuitbreaker"
	apperrors "github.com/litschool/admissions-portal/pkg/errors"
	"github.com/litschool/admissions-portal/pkg/httpclient"
	"github.com/litschool/admissions-portal/pkg/logger"
	"github.com/litschool/admissions-portal/pkg/metrics"
	"github.com/litschool/admissions-portal/pkg/retry"
	"github.com/litschool/admissions-portal/pkg/tracing"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	serviceName     = "portal_api"
	maxResponseBody = 4 << 20
)

// Client is the admissions API as seen by the workflow
type Client interface {
	ListPrograms(ctx context.Context) ([]models.Program, error)
	ListCohorts(ctx context.Context) ([]models.Cohort, error)
	ListCentres(ctx context.Context) ([]models.Centre, error)
	GetStudent(ctx context.Context, id string) (*models.StudentStatus, error)
	SubmitApplication(ctx context.Context, record *models.ApplicantRecord) (*SignUpResult, error)
	VerifyOTP(ctx context.Context, contact, code string) error
	ResendOTP(ctx context.Context, contact string) error
	SubmitReceipt(ctx context.Context, contact string, mode models.PaymentMode, receipt models.Receipt) error
}

// HTTPClient talks to the admissions API over HTTP.
// Reads retry on transient failures; submissions run once.
type HTTPClient struct {
	baseURL   string
	http      httpclient.Client
	breaker   *gobreaker.CircuitBreaker
	readRetry retry.Config
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the API rooted at baseURL
func NewHTTPClient(baseURL string, httpClient httpclient.Client, maxRetries int) *HTTPClient {
	return &HTTPClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      httpClient,
		breaker:   circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig("portal-api")),
		readRetry: retry.PortalReadConfig(maxRetries),
	}
}

// WithReadRetry overrides the retry policy used for reads
func (c *HTTPClient) WithReadRetry(cfg retry.Config) *HTTPClient {
	c.readRetry = cfg
	return c
}

type operation string

const (
	opListPrograms      operation = "listPrograms"
	opListCohorts       operation = "listCohorts"
	opListCentres       operation = "listCentres"
	opGetStudent        operation = "getStudent"
	opSubmitApplication operation = "submitApplication"
	opVerifyOTP         operation = "verifyOtp"
	opResendOTP         operation = "resendOtp"
	opSubmitReceipt     operation = "submitReceipt"
)

// ListPrograms fetches all programs
func (c *HTTPClient) ListPrograms(ctx context.Context) ([]models.Program, error) {
	var env envelope[[]programWire]
	if err := c.call(ctx, opListPrograms, c.readRetry, c.getRequest("/admin/program"), &env); err != nil {
		return nil, err
	}
	programs := make([]models.Program, 0, len(env.Data))
	for _, p := range env.Data {
		programs = append(programs, p.toModel())
	}
	return programs, nil
}

// ListCohorts fetches all cohorts, open or not
func (c *HTTPClient) ListCohorts(ctx context.Context) ([]models.Cohort, error) {
	var env envelope[[]cohortWire]
	if err := c.call(ctx, opListCohorts, c.readRetry, c.getRequest("/admin/cohort"), &env); err != nil {
		return nil, err
	}
	cohorts := make([]models.Cohort, 0, len(env.Data))
	for _, w := range env.Data {
		cohorts = append(cohorts, w.toModel())
	}
	return cohorts, nil
}

// ListCentres fetches all centres
func (c *HTTPClient) ListCentres(ctx context.Context) ([]models.Centre, error) {
	var env envelope[[]centreWire]
	if err := c.call(ctx, opListCentres, c.readRetry, c.getRequest("/admin/center"), &env); err != nil {
		return nil, err
	}
	centres := make([]models.Centre, 0, len(env.Data))
	for _, w := range env.Data {
		centres = append(centres, models.Centre{ID: w.ID, Name: w.Name})
	}
	return centres, nil
}

// GetStudent fetches the record of a registered student
func (c *HTTPClient) GetStudent(ctx context.Context, id string) (*models.StudentStatus, error) {
	var env envelope[studentWire]
	path := "/admin/student/" + url.PathEscape(id)
	if err := c.call(ctx, opGetStudent, c.readRetry, c.getRequest(path), &env); err != nil {
		return nil, err
	}
	return env.Data.toModel(), nil
}

// SubmitApplication sends the sign-up form; the API answers by dispatching an OTP
func (c *HTTPClient) SubmitApplication(ctx context.Context, record *models.ApplicantRecord) (*SignUpResult, error) {
	var resp signUpResponse
	err := c.call(ctx, opSubmitApplication, retry.NoRetry(), c.jsonRequest("/auth/signup", newSignUpRequest(record)), &resp)
	if err != nil {
		return nil, err
	}
	return &SignUpResult{StudentID: resp.Data.ID, Message: resp.Message}, nil
}

// VerifyOTP confirms the code sent to contact
func (c *HTTPClient) VerifyOTP(ctx context.Context, contact, code string) error {
	return c.call(ctx, opVerifyOTP, retry.NoRetry(), c.jsonRequest("/auth/verify-otp", otpRequest{Email: contact, OTP: code}), nil)
}

// ResendOTP asks the API to dispatch a fresh code
func (c *HTTPClient) ResendOTP(ctx context.Context, contact string) error {
	return c.call(ctx, opResendOTP, retry.NoRetry(), c.jsonRequest("/auth/resend-otp", otpRequest{Email: contact}), nil)
}

// SubmitReceipt uploads the proof of payment as multipart form data
func (c *HTTPClient) SubmitReceipt(ctx context.Context, contact string, mode models.PaymentMode, receipt models.Receipt) error {
	build := func(ctx context.Context) (*http.Request, error) {
		var body bytes.Buffer
		w := multipart.NewWriter(&body)

		if err := w.WriteField("paymentType", string(mode)); err != nil {
			return nil, err
		}
		if contact != "" {
			if err := w.WriteField("email", contact); err != nil {
				return nil, err
			}
		}

		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="receipt"; filename=%q`, receipt.FileName))
		header.Set("Content-Type", receipt.ContentType)
		part, err := w.CreatePart(header)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(receipt.Payload); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/student/token-receipt", &body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", w.FormDataContentType())
		return req, nil
	}

	return c.call(ctx, opSubmitReceipt, retry.NoRetry(), build, nil)
}

type requestBuilder func(ctx context.Context) (*http.Request, error)

func (c *HTTPClient) getRequest(path string) requestBuilder {
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}
}

func (c *HTTPClient) jsonRequest(path string, payload any) requestBuilder {
	return func(ctx context.Context) (*http.Request, error) {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		return req, nil
	}
}

// call runs one logical API operation with tracing, metrics, retry and the circuit breaker
func (c *HTTPClient) call(ctx context.Context, op operation, policy retry.Config, build requestBuilder, out any) error {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "portalapi."+string(op), attribute.String("portal.operation", string(op)))

	err := retry.Do(ctx, policy, string(op), func() error {
		_, err := circuitbreaker.Execute(c.breaker, func() (struct{}, error) {
			return struct{}{}, c.once(ctx, op, build, out)
		})
		return err
	})

	duration := metrics.MeasureDuration(start)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.PortalAPIRequestDuration.WithLabelValues(string(op), status).Observe(duration)
	metrics.PortalAPIRequestTotal.WithLabelValues(string(op), status).Inc()
	if err != nil {
		logger.LogAPICall(ctx, serviceName, string(op), status, duration,
			zap.String("kind", string(apperrors.KindOf(err))),
			zap.Error(err))
	} else {
		logger.LogAPICall(ctx, serviceName, string(op), status, duration)
	}

	tracing.EndSpan(span, err)
	return err
}

func (c *HTTPClient) once(ctx context.Context, op operation, build requestBuilder, out any) error {
	req, err := build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Unavailable(fmt.Errorf("%s: %w", op, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return apperrors.Unavailable(fmt.Errorf("%s: failed to read response: %w", op, err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(bytes.TrimSpace(body)) == 0 {
			return nil
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", op, err)
		}
		return nil
	}

	return classify(op, resp.StatusCode, extractMessage(body))
}

// classify maps an HTTP failure to the typed failure of the operation
func classify(op operation, status int, message string) *apperrors.RemoteError {
	if message == "" {
		message = defaultMessage(op)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return apperrors.NewRemoteError(apperrors.KindRateLimited, status, message)
	case status >= 500:
		return apperrors.NewRemoteError(apperrors.KindServiceUnavailable, status, message)
	case status == http.StatusNotFound && op == opGetStudent:
		return apperrors.NewRemoteError(apperrors.KindNotFound, status, message)
	}

	switch op {
	case opSubmitApplication:
		if status == http.StatusConflict || strings.Contains(strings.ToLower(message), "already") {
			return apperrors.NewRemoteError(apperrors.KindDuplicateEmail, status, message)
		}
		return apperrors.NewRemoteError(apperrors.KindValidationRejected, status, message)
	case opVerifyOTP:
		if status == http.StatusGone || strings.Contains(strings.ToLower(message), "expired") {
			return apperrors.NewRemoteError(apperrors.KindExpired, status, message)
		}
		return apperrors.NewRemoteError(apperrors.KindIncorrectCode, status, message)
	case opSubmitReceipt:
		return apperrors.NewRemoteError(apperrors.KindUploadRejected, status, message)
	case opListPrograms, opListCohorts, opListCentres:
		// reference reads have no user-fixable failure
		return apperrors.NewRemoteError(apperrors.KindServiceUnavailable, status, message)
	default:
		return apperrors.NewRemoteError(apperrors.KindValidationRejected, status, message)
	}
}

func defaultMessage(op operation) string {
	switch op {
	case opListPrograms:
		return "Failed to fetch programs"
	case opListCohorts:
		return "Failed to fetch cohorts"
	case opListCentres:
		return "Failed to fetch centres"
	case opGetStudent:
		return "Failed to fetch student"
	case opSubmitApplication:
		return "An unexpected error occurred"
	case opVerifyOTP:
		return "Invalid OTP"
	case opResendOTP:
		return "Failed to resend OTP"
	case opSubmitReceipt:
		return "Failed to upload receipt"
	default:
		return "Request failed"
	}
}

// extractMessage pulls a human readable message out of an error body
func extractMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		return payload.Error
	}

	if body[0] == '<' {
		return ""
	}
	msg := string(body)
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
