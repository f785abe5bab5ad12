package services

import (
	"context"

	"github.com/litschool/admissions-portal/internal/models"
)

// SessionServiceInterface defines the interface for workflow session operations
type SessionServiceInterface interface {
	Start(ctx context.Context, req *models.StartSessionRequest) (*Session, string, error)
	Get(sessionID string) (*Session, error)
	Resolve(token string) (*Session, error)
	End(sessionID string)
	Count() int
	GetStudent(ctx context.Context, studentID string) (*models.StudentStatus, error)
}

var _ SessionServiceInterface = (*SessionService)(nil)
