package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/litschool/admissions-portal/internal/models"
	"github.com/litschool/admissions-portal/internal/presentation"
	"github.com/litschool/admissions-portal/internal/services"
)

// CohortResponse is an open cohort with its picker label
type CohortResponse struct {
	models.Cohort
	Label     string `json:"label"`
	SeatsLeft int    `json:"seatsLeft"`
}

// ReferenceHandler serves the cached programs, cohorts and centres
type ReferenceHandler struct {
	catalogs services.CatalogProvider
}

func NewReferenceHandler(catalogs services.CatalogProvider) *ReferenceHandler {
	return &ReferenceHandler{catalogs: catalogs}
}

// GetPrograms handles GET /api/v1/programs
func (h *ReferenceHandler) GetPrograms(c *gin.Context) {
	catalog, err := h.catalogs.Catalog()
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "Programs are not available right now", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"programs": catalog.Programs()})
}

// GetCohorts handles GET /api/v1/cohorts?programId=
// Only cohorts open for applications are listed.
func (h *ReferenceHandler) GetCohorts(c *gin.Context) {
	programID := c.Query("programId")
	if programID == "" {
		respondErrorWithDetails(c, http.StatusBadRequest, "Validation failed",
			[]ValidationError{{Field: "programId", Message: "programId is required"}}, nil)
		return
	}

	catalog, err := h.catalogs.Catalog()
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "Cohorts are not available right now", err)
		return
	}

	if _, ok := catalog.Program(programID); !ok {
		respondError(c, http.StatusNotFound, "Program not found", nil)
		return
	}

	open := catalog.OpenCohorts(programID)
	cohorts := make([]CohortResponse, 0, len(open))
	for _, cohort := range open {
		centre, _ := catalog.Centre(cohort.CentreID)
		cohorts = append(cohorts, CohortResponse{
			Cohort:    cohort,
			Label:     presentation.CohortLabel(cohort, centre.Name),
			SeatsLeft: cohort.SeatsLeft(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"cohorts": cohorts})
}

// GetCentres handles GET /api/v1/centres
func (h *ReferenceHandler) GetCentres(c *gin.Context) {
	catalog, err := h.catalogs.Catalog()
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "Centres are not available right now", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"centres": catalog.Centres()})
}
