package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eduplat/timetable-api/internal/models"
	"github.com/eduplat/timetable-api/internal/repository"
	"github.com/eduplat/timetable-api/pkg/response"
)

// CatalogHandler serves the read-only resource directory. Mutations happen
// in the upstream administration system, so these endpoints stay thin over
// the repository.
type CatalogHandler struct {
	catalog  *repository.CatalogRepository
	calendar *repository.CalendarRepository
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(catalog *repository.CatalogRepository, calendar *repository.CalendarRepository) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, calendar: calendar}
}

// Subjects godoc
// @Summary List subjects
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *CatalogHandler) Subjects(c *gin.Context) {
	subjects, err := h.catalog.ListSubjects(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}

// Classrooms godoc
// @Summary List classrooms
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /classrooms [get]
func (h *CatalogHandler) Classrooms(c *gin.Context) {
	classrooms, err := h.catalog.ListClassrooms(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classrooms, nil)
}

// Groups godoc
// @Summary List student groups with member counts
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /groups [get]
func (h *CatalogHandler) Groups(c *gin.Context) {
	groups, err := h.catalog.ListGroups(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// Teachers godoc
// @Summary List teachers
// @Tags Catalog
// @Produce json
// @Param active query bool false "Only active teachers"
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *CatalogHandler) Teachers(c *gin.Context) {
	teachers, err := h.catalog.ListTeachers(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, nil)
}

// AcademicYears godoc
// @Summary List academic years
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /academic-years [get]
func (h *CatalogHandler) AcademicYears(c *gin.Context) {
	years, err := h.calendar.ListAcademicYears(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, years, nil)
}

// StudyPeriods godoc
// @Summary List study periods
// @Tags Catalog
// @Produce json
// @Param academicYearId query string false "Academic year ID"
// @Success 200 {object} response.Envelope
// @Router /study-periods [get]
func (h *CatalogHandler) StudyPeriods(c *gin.Context) {
	periods, err := h.calendar.ListStudyPeriods(c.Request.Context(), models.StudyPeriodFilter{
		AcademicYearID: c.Query("academicYearId"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, periods, nil)
}
