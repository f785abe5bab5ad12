package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/litschool/admissions-portal/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReferenceSource struct {
	mock.Mock
}

func (m *MockReferenceSource) ListPrograms(ctx context.Context) ([]models.Program, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Program), args.Error(1)
}

func (m *MockReferenceSource) ListCohorts(ctx context.Context) ([]models.Cohort, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Cohort), args.Error(1)
}

func (m *MockReferenceSource) ListCentres(ctx context.Context) ([]models.Centre, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Centre), args.Error(1)
}

func testPrograms() []models.Program {
	return []models.Program{
		{ID: "P1", Name: "Creator Marketer", IsActive: true},
		{ID: "P2", Name: "Creative Technologist", IsActive: true},
	}
}

func testCohorts() []models.Cohort {
	jan := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	return []models.Cohort{
		{ID: "C2", ProgramID: "P1", CentreID: "K1", StartDate: jan.AddDate(0, 3, 0), TotalSeats: 30, FilledSeats: 5, Status: models.CohortOpen},
		{ID: "C1", ProgramID: "P1", CentreID: "K1", StartDate: jan, TotalSeats: 30, FilledSeats: 12, Status: models.CohortOpen},
		{ID: "C3", ProgramID: "P1", CentreID: "K1", StartDate: jan, TotalSeats: 30, FilledSeats: 30, Status: models.CohortClosed},
		{ID: "C4", ProgramID: "P2", CentreID: "K1", StartDate: jan, TotalSeats: 20, FilledSeats: 1, Status: models.CohortOpen},
		{ID: "BAD", ProgramID: "P1", CentreID: "K1", StartDate: jan, TotalSeats: 10, FilledSeats: 11, Status: models.CohortOpen},
	}
}

func testCentres() []models.Centre {
	return []models.Centre{{ID: "K1", Name: "Sadashivnagar"}}
}

func TestCatalog_OpenCohortsForProgram(t *testing.T) {
	catalog := NewCatalog(testPrograms(), testCohorts(), testCentres())

	open := catalog.OpenCohorts("P1")

	require.Len(t, open, 2)
	assert.Equal(t, "C1", open[0].ID, "ordered by start date")
	assert.Equal(t, "C2", open[1].ID)
	assert.Empty(t, catalog.OpenCohorts(""))
	assert.Empty(t, catalog.OpenCohorts("P9"))
}

func TestCatalog_DropsInconsistentCohorts(t *testing.T) {
	catalog := NewCatalog(testPrograms(), testCohorts(), testCentres())

	_, found := catalog.Cohort("BAD")
	assert.False(t, found)
	assert.Equal(t, []string{"BAD"}, catalog.Dropped())
	assert.Len(t, catalog.Cohorts(), 4)
}

func TestCatalog_Lookups(t *testing.T) {
	catalog := NewCatalog(testPrograms(), testCohorts(), testCentres())

	p, ok := catalog.Program("P2")
	require.True(t, ok)
	assert.Equal(t, "Creative Technologist", p.Name)

	_, ok = catalog.Program("missing")
	assert.False(t, ok)

	centre, ok := catalog.Centre("K1")
	require.True(t, ok)
	assert.Equal(t, "Sadashivnagar", centre.Name)

	_, ok = catalog.Centre("K9")
	assert.False(t, ok)
}

func TestCatalog_ReturnsCopies(t *testing.T) {
	catalog := NewCatalog(testPrograms(), testCohorts(), testCentres())

	programs := catalog.Programs()
	programs[0].Name = "changed"

	p, _ := catalog.Program("P1")
	assert.Equal(t, "Creator Marketer", p.Name)
	assert.Equal(t, "Creator Marketer", catalog.Programs()[0].Name)
}

func TestReferenceCache_NotReadyBeforeInitialize(t *testing.T) {
	rc := NewReferenceCache(new(MockReferenceSource), 0)

	_, err := rc.Catalog()

	assert.Error(t, err)
	assert.False(t, rc.IsReady())
}

func TestReferenceCache_Initialize(t *testing.T) {
	source := new(MockReferenceSource)
	source.On("ListPrograms", mock.Anything).Return(testPrograms(), nil).Once()
	source.On("ListCohorts", mock.Anything).Return(testCohorts(), nil).Once()
	source.On("ListCentres", mock.Anything).Return(testCentres(), nil).Once()

	rc := NewReferenceCache(source, 0)
	require.NoError(t, rc.Initialize(context.Background()))

	catalog, err := rc.Catalog()
	require.NoError(t, err)
	assert.True(t, rc.IsReady())
	assert.Len(t, catalog.Programs(), 2)
	source.AssertExpectations(t)
}

func TestReferenceCache_InitializeRetries(t *testing.T) {
	source := new(MockReferenceSource)
	source.On("ListPrograms", mock.Anything).Return(nil, errors.New("boom")).Once()
	source.On("ListPrograms", mock.Anything).Return(testPrograms(), nil).Once()
	source.On("ListCohorts", mock.Anything).Return(testCohorts(), nil).Once()
	source.On("ListCentres", mock.Anything).Return(testCentres(), nil).Once()

	rc := NewReferenceCache(source, 0)
	rc.retryWait = time.Millisecond

	require.NoError(t, rc.Initialize(context.Background()))
	source.AssertExpectations(t)
}

func TestReferenceCache_InitializeFails(t *testing.T) {
	source := new(MockReferenceSource)
	source.On("ListPrograms", mock.Anything).Return(testPrograms(), nil)
	source.On("ListCohorts", mock.Anything).Return(nil, errors.New("down"))

	rc := NewReferenceCache(source, 0)
	rc.retryWait = time.Millisecond

	err := rc.Initialize(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch cohorts")
	assert.False(t, rc.IsReady())
	source.AssertNumberOfCalls(t, "ListCohorts", maxRetries)
}

func TestReferenceCache_FailedRefreshKeepsSnapshot(t *testing.T) {
	source := new(MockReferenceSource)
	source.On("ListPrograms", mock.Anything).Return(testPrograms(), nil).Once()
	source.On("ListCohorts", mock.Anything).Return(testCohorts(), nil).Once()
	source.On("ListCentres", mock.Anything).Return(testCentres(), nil).Once()
	source.On("ListPrograms", mock.Anything).Return(nil, errors.New("down")).Once()

	rc := NewReferenceCache(source, 0)
	require.NoError(t, rc.Initialize(context.Background()))
	before, _ := rc.Catalog()

	require.Error(t, rc.Refresh(context.Background()))

	after, err := rc.Catalog()
	require.NoError(t, err)
	assert.Same(t, before, after)
}
