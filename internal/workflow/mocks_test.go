package workflow

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/litschool/admissions-portal/internal/cache"
	"github.com/litschool/admissions-portal/internal/models"
	"github.com/litschool/admissions-portal/internal/portalapi"
	"github.com/litschool/admissions-portal/internal/upload"
	"github.com/litschool/admissions-portal/internal/validation"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRemote is a mock implementation of Remote
type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) SubmitApplication(ctx context.Context, record *models.ApplicantRecord) (*portalapi.SignUpResult, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*portalapi.SignUpResult), args.Error(1)
}

func (m *MockRemote) VerifyOTP(ctx context.Context, contact, code string) error {
	args := m.Called(ctx, contact, code)
	return args.Error(0)
}

func (m *MockRemote) ResendOTP(ctx context.Context, contact string) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

func (m *MockRemote) SubmitReceipt(ctx context.Context, contact string, mode models.PaymentMode, receipt models.Receipt) error {
	args := m.Called(ctx, contact, mode, receipt)
	return args.Error(0)
}

var testNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func testCatalog() *cache.Catalog {
	return cache.NewCatalog(
		[]models.Program{{ID: "P1", Name: "Creator Marketer"}, {ID: "P2", Name: "Creative Technologist"}},
		[]models.Cohort{
			{ID: "C1", ProgramID: "P1", CentreID: "K1", TotalSeats: 30, FilledSeats: 3, Status: models.CohortOpen},
			{ID: "C2", ProgramID: "P2", CentreID: "K1", TotalSeats: 30, FilledSeats: 3, Status: models.CohortOpen},
		},
		[]models.Centre{{ID: "K1", Name: "Sadashivnagar"}},
	)
}

func validFields() map[string]string {
	return map[string]string{
		models.FieldFirstName:     "John",
		models.FieldLastName:      "Doe",
		models.FieldEmail:         "john@x.com",
		models.FieldMobileNumber:  "9876543210",
		models.FieldDateOfBirth:   testNow.AddDate(-20, 0, 0).Format(models.DateLayout),
		models.FieldQualification: string(models.QualificationStudent),
		models.FieldProgramID:     "P1",
		models.FieldCohortID:      "C1",
	}
}

func newController(remote Remote, flow Flow) *Controller {
	engine := validation.NewEngine(func() time.Time { return testNow })
	return New(remote, engine, testCatalog(), Options{Flow: flow, Upload: upload.DefaultConfig()})
}

// filledController returns a controller with a valid record ready to submit
func filledController(t *testing.T, remote Remote, flow Flow) *Controller {
	t.Helper()
	c := newController(remote, flow)
	_, err := c.SetFields(validFields())
	require.NoError(t, err)
	return c
}

func receiptPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 12, 12))
	for x := 0; x < 12; x++ {
		img.Set(x, x, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// blockUntil makes a mocked call wait for release and signals started first
func blockUntil(started chan<- struct{}, release <-chan struct{}) func(mock.Arguments) {
	return func(mock.Arguments) {
		started <- struct{}{}
		select {
		case <-release:
		case <-time.After(5 * time.Second):
		}
	}
}

// waitFor fails the test when ch does not fire within a second
func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}
