package portalapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/litschool/admissions-portal/internal/models"
	apperrors "github.com/litschool/admissions-portal/pkg/errors"
	"github.com/litschool/admissions-portal/pkg/httpclient"
	"github.com/litschool/admissions-portal/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	policy := retry.PortalReadConfig(2)
	policy.InitialDelay = time.Millisecond
	policy.MaxDelay = 2 * time.Millisecond
	policy.Jitter = false

	return NewHTTPClient(srv.URL+"/", httpclient.NewClientWithTimeout(2*time.Second), 2).WithReadRetry(policy)
}

func TestListPrograms_DecodesEnvelope(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/program", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = io.WriteString(w, `{"data":[{"_id":"P1","name":"Creator Marketer","description":"d","duration":6,"prefix":"CM","status":true}]}`)
	}))

	programs, err := client.ListPrograms(context.Background())

	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, models.Program{
		ID: "P1", Name: "Creator Marketer", Description: "d", DurationMonths: 6, Prefix: "CM", IsActive: true,
	}, programs[0])
}

func TestListCohorts_MapsWireFields(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/cohort", r.URL.Path)
		_, _ = io.WriteString(w, `{"data":[{"_id":"C1","cohortId":"CM01JY25","programDetail":"P1","centerDetail":"K1",
			"startDate":"2025-01-15T00:00:00.000Z","endDate":"2025-07-15","schedule":"Weekdays","totalSeats":30,
			"timeSlot":"Morning","filled":12,"status":"Open","baseFee":"50000","isComplete":false}]}`)
	}))

	cohorts, err := client.ListCohorts(context.Background())

	require.NoError(t, err)
	require.Len(t, cohorts, 1)
	c := cohorts[0]
	assert.Equal(t, "C1", c.ID)
	assert.Equal(t, "CM01JY25", c.Code)
	assert.Equal(t, "P1", c.ProgramID)
	assert.Equal(t, "K1", c.CentreID)
	assert.Equal(t, 2025, c.StartDate.Year())
	assert.Equal(t, time.July, c.EndDate.Month())
	assert.Equal(t, 12, c.FilledSeats)
	assert.True(t, c.IsOpen())
}

func TestListCentres_RetriesTransientFailures(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"data":[{"_id":"K1","name":"Sadashivnagar"}]}`)
	}))

	centres, err := client.ListCentres(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []models.Centre{{ID: "K1", Name: "Sadashivnagar"}}, centres)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSubmitApplication_SendsFormAndDoesNotRetry(t *testing.T) {
	var calls int32
	var got map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/auth/signup", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.SubmitApplication(context.Background(), &models.ApplicantRecord{
		FirstName:     " John ",
		LastName:      "Doe",
		Email:         "john@x.com",
		MobileNumber:  "+91 9876543210",
		DateOfBirth:   "2004-05-06",
		Qualification: models.QualificationStudent,
		ProgramID:     "P1",
		CohortID:      "C1",
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.KindServiceUnavailable, apperrors.KindOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "John", got["firstName"])
	assert.Equal(t, "P1", got["program"])
	assert.Equal(t, "C1", got["cohort"])
	assert.Equal(t, "2004-05-06", got["dateOfBirth"])
}

func TestSubmitApplication_Success(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":"OTP sent","data":{"_id":"S1"}}`)
	}))

	res, err := client.SubmitApplication(context.Background(), &models.ApplicantRecord{Email: "john@x.com"})

	require.NoError(t, err)
	assert.Equal(t, "S1", res.StudentID)
	assert.Equal(t, "OTP sent", res.Message)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		op      operation
		status  int
		message string
		want    apperrors.Kind
	}{
		{"duplicate email by status", opSubmitApplication, 409, "", apperrors.KindDuplicateEmail},
		{"duplicate email by message", opSubmitApplication, 400, "User already exists", apperrors.KindDuplicateEmail},
		{"rejected application", opSubmitApplication, 422, "bad cohort", apperrors.KindValidationRejected},
		{"server error", opSubmitApplication, 500, "", apperrors.KindServiceUnavailable},
		{"wrong otp", opVerifyOTP, 400, "Invalid OTP", apperrors.KindIncorrectCode},
		{"expired otp", opVerifyOTP, 410, "", apperrors.KindExpired},
		{"expired otp by message", opVerifyOTP, 400, "OTP expired", apperrors.KindExpired},
		{"resend throttled", opResendOTP, 429, "", apperrors.KindRateLimited},
		{"receipt too large", opSubmitReceipt, 413, "", apperrors.KindUploadRejected},
		{"unknown student", opGetStudent, 404, "", apperrors.KindNotFound},
		{"reference read 400", opListCohorts, 400, "", apperrors.KindServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.op, tt.status, tt.message)
			assert.Equal(t, tt.want, err.Kind)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestVerifyOTP_SurfacesServerMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body otpRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "john@x.com", body.Email)
		assert.Equal(t, "123456", body.OTP)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"message":"Incorrect OTP"}`)
	}))

	err := client.VerifyOTP(context.Background(), "john@x.com", "123456")

	require.Error(t, err)
	assert.Equal(t, apperrors.KindIncorrectCode, apperrors.KindOf(err))
	assert.Equal(t, "Incorrect OTP", apperrors.MessageOf(err))
}

func TestSubmitReceipt_SendsMultipart(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/student/token-receipt", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "bank_transfer", r.FormValue("paymentType"))
		assert.Equal(t, "john@x.com", r.FormValue("email"))

		file, header, err := r.FormFile("receipt")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "receipt.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, []byte("png-bytes"), data)

		_, _ = io.WriteString(w, `{"message":"ok"}`)
	}))

	err := client.SubmitReceipt(context.Background(), "john@x.com", models.PaymentBankTransfer, models.Receipt{
		FileName:    "receipt.png",
		ContentType: "image/png",
		Payload:     []byte("png-bytes"),
	})

	assert.NoError(t, err)
}

func TestGetStudent_NotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/student/S%2F1", r.URL.EscapedPath())
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.GetStudent(context.Background(), "S/1")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestExtractMessage(t *testing.T) {
	assert.Equal(t, "boom", extractMessage([]byte(`{"message":"boom"}`)))
	assert.Equal(t, "nope", extractMessage([]byte(`{"error":"nope"}`)))
	assert.Equal(t, "plain text", extractMessage([]byte("plain text\n")))
	assert.Equal(t, "", extractMessage([]byte("<html>502</html>")))
	assert.Equal(t, "", extractMessage(nil))
}
