package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/litschool/admissions-portal/internal/cache"
	"github.com/litschool/admissions-portal/internal/models"
	"github.com/litschool/admissions-portal/internal/portalapi"
	"github.com/litschool/admissions-portal/internal/upload"
	"github.com/litschool/admissions-portal/internal/workflow"
	apperrors "github.com/litschool/admissions-portal/pkg/errors"
	"github.com/litschool/admissions-portal/pkg/jwt"
	"github.com/litschool/admissions-portal/pkg/logger"
	"github.com/litschool/admissions-portal/pkg/metrics"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound    = errors.New("session not found or expired")
	ErrCatalogUnavailable = errors.New("reference data not loaded")
	ErrStudentNotFound    = errors.New("student not found")
	ErrStudentRequired    = errors.New("studentId is required for token payment")
)

// CatalogProvider hands out the current reference data snapshot
type CatalogProvider interface {
	Catalog() (*cache.Catalog, error)
}

// Session is one applicant's workflow
type Session struct {
	ID         string
	Flow       workflow.Flow
	Controller *workflow.Controller
	Catalog    *cache.Catalog
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// SessionService creates and resolves workflow sessions. Sessions live in
// memory and expire with their token.
type SessionService struct {
	store     *gocache.Cache
	catalogs  CatalogProvider
	client    portalapi.Client
	validator workflow.Validator
	tokens    *jwt.TokenManager
	upload    upload.Config
}

// NewSessionService creates a new SessionService
func NewSessionService(
	catalogs CatalogProvider,
	client portalapi.Client,
	validator workflow.Validator,
	tokens *jwt.TokenManager,
	uploadCfg upload.Config,
) *SessionService {
	store := gocache.New(tokens.TTL(), time.Minute)
	store.OnEvicted(func(string, interface{}) {
		metrics.ActiveSessions.Set(float64(store.ItemCount()))
	})

	return &SessionService{
		store:     store,
		catalogs:  catalogs,
		client:    client,
		validator: validator,
		tokens:    tokens,
		upload:    uploadCfg,
	}
}

// Start opens a session and returns it with its bearer token
func (s *SessionService) Start(ctx context.Context, req *models.StartSessionRequest) (*Session, string, error) {
	flow, err := workflow.ParseFlow(req.Flow)
	if err != nil {
		return nil, "", apperrors.ValidationError("flow", err.Error())
	}

	catalog, err := s.catalogs.Catalog()
	if err != nil {
		logger.Error("Cannot start session without reference data", zap.Error(err))
		return nil, "", fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	opts := workflow.Options{Flow: flow, Upload: s.upload}
	if flow == workflow.FlowTokenPayment {
		student, err := s.lookupStudent(ctx, req.StudentID)
		if err != nil {
			return nil, "", err
		}
		opts.Contact = student.Email
		opts.StudentID = student.ID
	}

	now := time.Now()
	session := &Session{
		ID:         uuid.NewString(),
		Flow:       flow,
		Controller: workflow.New(s.client, s.validator, catalog, opts),
		Catalog:    catalog,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.tokens.TTL()),
	}

	token, err := s.tokens.GenerateToken(session.ID, string(flow))
	if err != nil {
		return nil, "", err
	}

	s.store.Set(session.ID, session, gocache.DefaultExpiration)
	metrics.ActiveSessions.Set(float64(s.store.ItemCount()))

	logger.Info("Workflow session started",
		zap.String("session_id", session.ID),
		zap.String("flow", string(flow)))

	return session, token, nil
}

// Get returns a live session by id
func (s *SessionService) Get(sessionID string) (*Session, error) {
	data, found := s.store.Get(sessionID)
	if !found {
		return nil, ErrSessionNotFound
	}
	session, ok := data.(*Session)
	if !ok {
		s.store.Delete(sessionID)
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Resolve validates a bearer token and returns its session
func (s *SessionService) Resolve(token string) (*Session, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return s.Get(claims.SessionID)
}

// End discards a session
func (s *SessionService) End(sessionID string) {
	s.store.Delete(sessionID)
}

// Count returns the number of live sessions
func (s *SessionService) Count() int {
	return s.store.ItemCount()
}

// GetStudent fetches the status of a registered student
func (s *SessionService) GetStudent(ctx context.Context, studentID string) (*models.StudentStatus, error) {
	return s.lookupStudent(ctx, studentID)
}

func (s *SessionService) lookupStudent(ctx context.Context, studentID string) (*models.StudentStatus, error) {
	if studentID == "" {
		return nil, ErrStudentRequired
	}
	student, err := s.client.GetStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return student, nil
}
