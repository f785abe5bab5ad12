package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/litschool/admissions-portal/internal/cache"
	"github.com/litschool/admissions-portal/internal/middleware"
	"github.com/litschool/admissions-portal/internal/models"
	"github.com/litschool/admissions-portal/internal/portalapi"
	"github.com/litschool/admissions-portal/internal/presentation"
	"github.com/litschool/admissions-portal/internal/services"
	"github.com/litschool/admissions-portal/internal/upload"
	"github.com/litschool/admissions-portal/internal/validation"
	"github.com/litschool/admissions-portal/pkg/jwt"
	"github.com/litschool/admissions-portal/pkg/logger"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)

	if err := logger.Initialize(logger.Config{Level: "debug", Environment: "development"}); err != nil {
		panic(err)
	}
}

// MockPortalClient is a mock implementation of portalapi.Client
type MockPortalClient struct {
	mock.Mock
}

var _ portalapi.Client = (*MockPortalClient)(nil)

func (m *MockPortalClient) ListPrograms(ctx context.Context) ([]models.Program, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Program), args.Error(1)
}

func (m *MockPortalClient) ListCohorts(ctx context.Context) ([]models.Cohort, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Cohort), args.Error(1)
}

func (m *MockPortalClient) ListCentres(ctx context.Context) ([]models.Centre, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Centre), args.Error(1)
}

func (m *MockPortalClient) GetStudent(ctx context.Context, id string) (*models.StudentStatus, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StudentStatus), args.Error(1)
}

func (m *MockPortalClient) SubmitApplication(ctx context.Context, record *models.ApplicantRecord) (*portalapi.SignUpResult, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portalapi.SignUpResult), args.Error(1)
}

func (m *MockPortalClient) VerifyOTP(ctx context.Context, contact, code string) error {
	return m.Called(ctx, contact, code).Error(0)
}

func (m *MockPortalClient) ResendOTP(ctx context.Context, contact string) error {
	return m.Called(ctx, contact).Error(0)
}

func (m *MockPortalClient) SubmitReceipt(ctx context.Context, contact string, mode models.PaymentMode, receipt models.Receipt) error {
	return m.Called(ctx, contact, mode, receipt).Error(0)
}

type staticCatalogs struct {
	catalog *cache.Catalog
	err     error
}

func (s staticCatalogs) Catalog() (*cache.Catalog, error) {
	return s.catalog, s.err
}

func testCatalog() *cache.Catalog {
	return cache.NewCatalog(
		[]models.Program{{ID: "P1", Name: "Creator Marketer"}, {ID: "P2", Name: "Creative Technologist"}},
		[]models.Cohort{
			{
				ID: "C1", ProgramID: "P1", CentreID: "K1",
				StartDate: time.Date(2025, time.January, 6, 0, 0, 0, 0, time.UTC),
				TimeSlot:  "Morning", TotalSeats: 30, FilledSeats: 3, Status: models.CohortOpen,
			},
			{ID: "C2", ProgramID: "P1", CentreID: "K1", TotalSeats: 30, Status: models.CohortClosed},
			{ID: "C3", ProgramID: "P2", CentreID: "K9", TotalSeats: 20, Status: models.CohortOpen},
		},
		[]models.Centre{{ID: "K1", Name: "Sadashivnagar"}},
	)
}

var testBank = presentation.BankDetails{
	AccountName:   "LITschool",
	AccountNumber: "000123456789",
	IFSC:          "HDFC0000001",
	Branch:        "Bengaluru",
}

// newTestRouter wires the handlers the way the server does
func newTestRouter(client *MockPortalClient, catalogs services.CatalogProvider) (*gin.Engine, *services.SessionService) {
	uploadCfg := upload.DefaultConfig()
	sessions := services.NewSessionService(
		catalogs,
		client,
		validation.NewEngine(nil),
		jwt.NewTokenManager("test-secret", "admissions-portal", time.Hour),
		uploadCfg,
	)

	workflowHandler := NewWorkflowHandler(sessions, testBank, uploadCfg)
	referenceHandler := NewReferenceHandler(catalogs)
	studentHandler := NewStudentHandler(sessions)

	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.GET("/programs", referenceHandler.GetPrograms)
	v1.GET("/cohorts", referenceHandler.GetCohorts)
	v1.GET("/centres", referenceHandler.GetCentres)
	v1.GET("/students/:id", studentHandler.GetStudent)
	v1.POST("/sessions", workflowHandler.StartSession)

	session := v1.Group("/session", middleware.SessionMiddleware(sessions))
	session.GET("", workflowHandler.GetSession)
	session.DELETE("", workflowHandler.EndSession)
	session.PATCH("/applicant", workflowHandler.UpdateApplicant)
	session.POST("/application", workflowHandler.SubmitApplication)
	session.POST("/otp/verify", workflowHandler.VerifyOTP)
	session.POST("/otp/resend", workflowHandler.ResendOTP)
	session.POST("/payment-mode", workflowHandler.SelectPaymentMode)
	session.POST("/payment-mode/confirm", workflowHandler.ConfirmPaymentMode)
	session.POST("/back", workflowHandler.Back)
	session.PUT("/receipt", workflowHandler.SelectReceipt)
	session.DELETE("/receipt", workflowHandler.RemoveReceipt)
	session.POST("/receipt/submit", workflowHandler.SubmitReceipt)

	return router, sessions
}

func doJSON(router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doUpload(t *testing.T, router http.Handler, token, fileName string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if data != nil {
		part, err := mw.CreateFormFile(receiptFormField, fileName)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/api/v1/session/receipt", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// testResponse is the subset of a workflow response the tests look at
type testResponse struct {
	Token   string `json:"token"`
	Outcome string `json:"outcome"`
	Error   string `json:"error"`
	View    struct {
		Flow        string            `json:"flow"`
		Step        string            `json:"step"`
		Title       string            `json:"title"`
		SubmitLabel string            `json:"submitLabel"`
		FieldErrors map[string]string `json:"fieldErrors"`
		StepError   string            `json:"stepError"`
		Retryable   bool              `json:"retryable"`
		Complete    bool              `json:"complete"`
		Form        *struct {
			Cohorts []struct {
				Value string `json:"value"`
				Label string `json:"label"`
			} `json:"cohorts"`
		} `json:"form"`
		OTP *struct {
			Contact string `json:"contact"`
			Error   string `json:"error"`
		} `json:"otp"`
		Payment *struct {
			Instructions struct {
				Mode string                    `json:"mode"`
				Bank *presentation.BankDetails `json:"bank"`
			} `json:"instructions"`
			Receipt *struct {
				FileName    string `json:"fileName"`
				ContentType string `json:"contentType"`
			} `json:"receipt"`
		} `json:"payment"`
	} `json:"view"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) testResponse {
	t.Helper()
	var resp testResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func validFields() map[string]string {
	return map[string]string{
		models.FieldFirstName:     "John",
		models.FieldLastName:      "Doe",
		models.FieldEmail:         "john@x.com",
		models.FieldMobileNumber:  "98765 43210",
		models.FieldDateOfBirth:   "2000-01-15",
		models.FieldQualification: string(models.QualificationStudent),
		models.FieldProgramID:     "P1",
		models.FieldCohortID:      "C1",
	}
}

func receiptPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		img.Set(x, 15-x, color.RGBA{B: 220, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func startSession(t *testing.T, router http.Handler, body any) string {
	t.Helper()
	w := doJSON(router, http.MethodPost, "/api/v1/sessions", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := decode(t, w).Token
	require.NotEmpty(t, token)
	return token
}
