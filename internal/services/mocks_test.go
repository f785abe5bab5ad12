package services_test

import (
	"context"

	"github.com/litschool/admissions-portal/internal/cache"
	"github.com/litschool/admissions-portal/internal/models"
	"github.com/litschool/admissions-portal/internal/portalapi"
	"github.com/stretchr/testify/mock"
)

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
	args := m.Called(ctx, contact, code)
	return args.Error(0)
}

func (m *MockPortalClient) ResendOTP(ctx context.Context, contact string) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}

func (m *MockPortalClient) SubmitReceipt(ctx context.Context, contact string, mode models.PaymentMode, receipt models.Receipt) error {
	args := m.Called(ctx, contact, mode, receipt)
	return args.Error(0)
}

// MockCatalogProvider is a mock implementation of CatalogProvider
type MockCatalogProvider struct {
	mock.Mock
}

func (m *MockCatalogProvider) Catalog() (*cache.Catalog, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cache.Catalog), args.Error(1)
}
