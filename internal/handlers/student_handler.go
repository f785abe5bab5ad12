package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/litschool/admissions-portal/internal/services"
)

// StudentHandler exposes the status of registered students
type StudentHandler struct {
	sessions services.SessionServiceInterface
}

func NewStudentHandler(sessions services.SessionServiceInterface) *StudentHandler {
	return &StudentHandler{sessions: sessions}
}

// GetStudent handles GET /api/v1/students/:id
func (h *StudentHandler) GetStudent(c *gin.Context) {
	student, err := h.sessions.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"student": student})
}
