package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/litschool/admissions-portal/internal/services"
	"github.com/litschool/admissions-portal/internal/workflow"
	apperrors "github.com/litschool/admissions-portal/pkg/errors"
)

// attachError attaches err to the gin context so the observability middleware
// can include the reason in the request log. c.Error() returns *gin.Error (not
// the error interface), so we suppress errcheck here intentionally.
func attachError(c *gin.Context, err error) {
	if err != nil {
		_ = c.Error(err) //nolint:errcheck
	}
}

// respondError sends an error JSON response and attaches the error to the gin context
// so the observability middleware can include the reason in the request log.
func respondError(c *gin.Context, status int, message string, err error) {
	attachError(c, err)
	c.JSON(status, gin.H{"error": message})
}

// respondErrorWithDetails sends an error response with an additional details field.
func respondErrorWithDetails(c *gin.Context, status int, message string, details any, err error) {
	attachError(c, err)
	c.JSON(status, gin.H{"error": message, "details": details})
}

// respondServiceError maps service and workflow errors to HTTP responses
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, workflow.ErrUnknownField):
		respondError(c, http.StatusBadRequest, "Unknown form field", err)
	case errors.Is(err, workflow.ErrInvalidTransition):
		respondError(c, http.StatusConflict, "This action is not available at the current step", err)
	case errors.Is(err, apperrors.ErrValidation):
		respondError(c, http.StatusBadRequest, "Invalid request", err)
	case errors.Is(err, services.ErrStudentRequired):
		respondError(c, http.StatusBadRequest, "studentId is required", err)
	case errors.Is(err, services.ErrStudentNotFound):
		respondError(c, http.StatusNotFound, "Student not found", err)
	case errors.Is(err, services.ErrSessionNotFound):
		respondError(c, http.StatusUnauthorized, "Session expired", err)
	case errors.Is(err, services.ErrCatalogUnavailable), errors.Is(err, apperrors.ErrTransient):
		respondError(c, http.StatusServiceUnavailable, "Service temporarily unavailable", err)
	default:
		respondError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
