package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/eduplat/timetable-api/internal/dto"
	"github.com/eduplat/timetable-api/internal/middleware"
	"github.com/eduplat/timetable-api/internal/models"
	"github.com/eduplat/timetable-api/internal/service"
	appErrors "github.com/eduplat/timetable-api/pkg/errors"
	"github.com/eduplat/timetable-api/pkg/response"
)

// LessonHandler exposes booking endpoints.
type LessonHandler struct {
	service  *service.LessonService
	validate *validator.Validate
}

// NewLessonHandler constructs the handler.
func NewLessonHandler(svc *service.LessonService, validate *validator.Validate) *LessonHandler {
	return &LessonHandler{service: svc, validate: validate}
}

// Create godoc
// @Summary Book a single lesson
// @Description Runs the full rule set and either books the lesson or returns every violation at once.
// @Tags Lessons
// @Accept json
// @Produce json
// @Param payload body dto.CreateLessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /lessons [post]
func (h *LessonHandler) Create(c *gin.Context) {
	var req dto.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lesson payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lesson payload"))
		return
	}

	var createdBy string
	if claims := middleware.CurrentUser(c); claims != nil {
		createdBy = claims.UserID
	}

	lesson, violations, err := h.service.Create(c.Request.Context(), req, createdBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(violations) > 0 {
		response.Violations(c, violations)
		return
	}
	response.Created(c, lesson)
}

// Update godoc
// @Summary Rebook an existing lesson
// @Tags Lessons
// @Accept json
// @Produce json
// @Param id path string true "Lesson ID"
// @Param payload body dto.UpdateLessonRequest true "Lesson payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Security BearerAuth
// @Router /lessons/{id} [put]
func (h *LessonHandler) Update(c *gin.Context) {
	var req dto.UpdateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lesson payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lesson payload"))
		return
	}

	lesson, violations, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(violations) > 0 {
		response.Violations(c, violations)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// Delete godoc
// @Summary Retract a booking
// @Tags Lessons
// @Param id path string true "Lesson ID"
// @Success 204
// @Security BearerAuth
// @Router /lessons/{id} [delete]
func (h *LessonHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Get godoc
// @Summary Get one booking
// @Tags Lessons
// @Produce json
// @Param id path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Router /lessons/{id} [get]
func (h *LessonHandler) Get(c *gin.Context) {
	lesson, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lesson, nil)
}

// List godoc
// @Summary List bookings
// @Tags Lessons
// @Produce json
// @Param groupId query string false "Student group ID"
// @Param teacherId query string false "Teacher ID"
// @Param periodId query string false "Study period ID"
// @Success 200 {object} response.Envelope
// @Router /lessons [get]
func (h *LessonHandler) List(c *gin.Context) {
	filter := models.LessonFilter{
		StudyPeriodID:  c.Query("periodId"),
		StudentGroupID: c.Query("groupId"),
		TeacherID:      c.Query("teacherId"),
		ClassroomID:    c.Query("classroomId"),
		SubjectID:      c.Query("subjectId"),
		SortBy:         c.DefaultQuery("sortBy", "start_time"),
		SortOrder:      c.DefaultQuery("sortOrder", "asc"),
	}
	filter.Page, filter.PageSize = paginationParams(c)

	lessons, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}
