package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/eduplat/timetable-api/internal/dto"
	"github.com/eduplat/timetable-api/internal/middleware"
	"github.com/eduplat/timetable-api/internal/models"
	"github.com/eduplat/timetable-api/internal/service"
	appErrors "github.com/eduplat/timetable-api/pkg/errors"
	"github.com/eduplat/timetable-api/pkg/response"
)

// ScheduleImportHandler exposes the bulk template import endpoint.
type ScheduleImportHandler struct {
	generator *service.GeneratorService
	validate  *validator.Validate
}

// NewScheduleImportHandler constructs the handler.
func NewScheduleImportHandler(generator *service.GeneratorService, validate *validator.Validate) *ScheduleImportHandler {
	return &ScheduleImportHandler{generator: generator, validate: validate}
}

// Import godoc
// @Summary Import a weekly schedule template for a group
// @Description Projects the template over the date range and books the result. By default any conflict aborts the whole import; pass onConflict=SKIP to book the clean slots and report the rest.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param onConflict query string false "Conflict policy: ABORT or SKIP" default(ABORT)
// @Param payload body dto.ScheduleImportRequest true "Import payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /schedules/import [post]
func (h *ScheduleImportHandler) Import(c *gin.Context) {
	var req dto.ScheduleImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid import payload"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid import payload"))
		return
	}

	rangeStart, err := time.Parse("2006-01-02", req.PeriodStartDate)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrMalformedDateRange, "invalid periodStartDate"))
		return
	}
	rangeEnd, err := time.Parse("2006-01-02", req.PeriodEndDate)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrMalformedDateRange, "invalid periodEndDate"))
		return
	}

	template := make([]dto.TemplateSlot, 0, len(req.Items))
	for _, item := range req.Items {
		slot, err := item.Slot()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid template item"))
			return
		}
		template = append(template, slot)
	}

	policy := models.ConflictPolicy(c.DefaultQuery("onConflict", string(models.PolicyAbort)))

	genReq := dto.GenerateScheduleRequest{
		StudentGroupID: req.StudentGroupID,
		AcademicYearID: req.AcademicYearID,
		RangeStart:     rangeStart,
		RangeEnd:       rangeEnd,
		Template:       template,
		OnConflict:     policy,
		ClearExisting:  req.ClearExistingSchedule,
	}
	if claims := middleware.CurrentUser(c); claims != nil {
		genReq.CreatedBy = &claims.UserID
	}

	result, err := h.generator.GenerateFromTemplate(c.Request.Context(), genReq)
	if err != nil {
		var conflictErr *models.ConflictError
		if errors.As(err, &conflictErr) {
			response.Conflicts(c, conflictErr.Message, conflictErr.Conflicts)
			return
		}
		response.Error(c, err)
		return
	}

	payload := dto.ScheduleImportResponse{
		Created:      len(result.Booked),
		SkippedDates: result.SkippedDates,
	}
	meta := map[string]interface{}{}
	if len(result.Conflicts) > 0 {
		meta["conflicts"] = result.Conflicts
	}
	if len(meta) > 0 {
		response.JSON(c, http.StatusCreated, payload, nil, meta)
		return
	}
	response.Created(c, payload)
}
