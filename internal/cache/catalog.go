package cache

import (
	"sort"
	"time"

	"github.com/litschool/admissions-portal/internal/models"
)

// Catalog is an immutable snapshot of the reference data.
// A session keeps the snapshot it started with.
type Catalog struct {
	programs []models.Program
	cohorts  []models.Cohort
	centres  []models.Centre

	programByID map[string]models.Program
	cohortByID  map[string]models.Cohort
	centreByID  map[string]models.Centre

	dropped  []string
	loadedAt time.Time
}

// NewCatalog indexes the reference data. Cohorts with impossible seat
// counters are left out and reported by Dropped.
func NewCatalog(programs []models.Program, cohorts []models.Cohort, centres []models.Centre) *Catalog {
	c := &Catalog{
		programs:    make([]models.Program, 0, len(programs)),
		cohorts:     make([]models.Cohort, 0, len(cohorts)),
		centres:     make([]models.Centre, 0, len(centres)),
		programByID: make(map[string]models.Program, len(programs)),
		cohortByID:  make(map[string]models.Cohort, len(cohorts)),
		centreByID:  make(map[string]models.Centre, len(centres)),
		loadedAt:    time.Now(),
	}

	for _, p := range programs {
		if p.ID == "" {
			continue
		}
		c.programs = append(c.programs, p)
		c.programByID[p.ID] = p
	}
	for _, cohort := range cohorts {
		if cohort.ID == "" || !cohort.Consistent() {
			c.dropped = append(c.dropped, cohort.ID)
			continue
		}
		c.cohorts = append(c.cohorts, cohort)
		c.cohortByID[cohort.ID] = cohort
	}
	for _, centre := range centres {
		if centre.ID == "" {
			continue
		}
		c.centres = append(c.centres, centre)
		c.centreByID[centre.ID] = centre
	}

	sort.SliceStable(c.cohorts, func(i, j int) bool {
		return c.cohorts[i].StartDate.Before(c.cohorts[j].StartDate)
	})

	return c
}

// Programs returns all programs
func (c *Catalog) Programs() []models.Program {
	return append([]models.Program(nil), c.programs...)
}

// Cohorts returns all consistent cohorts ordered by start date
func (c *Catalog) Cohorts() []models.Cohort {
	return append([]models.Cohort(nil), c.cohorts...)
}

// Centres returns all centres
func (c *Catalog) Centres() []models.Centre {
	return append([]models.Centre(nil), c.centres...)
}

// Program looks up a program by id
func (c *Catalog) Program(id string) (models.Program, bool) {
	p, ok := c.programByID[id]
	return p, ok
}

// Cohort looks up a cohort by id
func (c *Catalog) Cohort(id string) (models.Cohort, bool) {
	cohort, ok := c.cohortByID[id]
	return cohort, ok
}

// Centre looks up a centre by id
func (c *Catalog) Centre(id string) (models.Centre, bool) {
	centre, ok := c.centreByID[id]
	return centre, ok
}

// OpenCohorts returns the cohorts of a program that accept applicants
func (c *Catalog) OpenCohorts(programID string) []models.Cohort {
	if programID == "" {
		return nil
	}
	var out []models.Cohort
	for _, cohort := range c.cohorts {
		if cohort.ProgramID == programID && cohort.IsOpen() {
			out = append(out, cohort)
		}
	}
	return out
}

// Dropped lists the ids of cohorts rejected at load
func (c *Catalog) Dropped() []string {
	return append([]string(nil), c.dropped...)
}

// LoadedAt is when the snapshot was built
func (c *Catalog) LoadedAt() time.Time {
	return c.loadedAt
}
