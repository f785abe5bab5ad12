package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	referenceReady func() bool
}

func NewHealthHandler(referenceReady func() bool) *HealthHandler {
	return &HealthHandler{
		referenceReady: referenceReady,
	}
}

func (h *HealthHandler) Healthcheck(c *gin.Context) {
	c.Header("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")

	// programs and cohorts are needed for every sign-up
	if !h.referenceReady() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"reason": "reference data not loaded",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}
