package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eduplat/timetable-api/internal/models"
	"github.com/eduplat/timetable-api/internal/service"
)

type stubGeneratorCalendar struct{}

func (stubGeneratorCalendar) FindAcademicYearByID(_ context.Context, id string) (*models.AcademicYear, error) {
	return &models.AcademicYear{
		ID:        id,
		Name:      "2025-2026",
		StartDate: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
	}, nil
}

func (stubGeneratorCalendar) FindAcademicYearForDate(context.Context, time.Time) (*models.AcademicYear, error) {
	return nil, nil
}

func (stubGeneratorCalendar) ListStudyPeriods(context.Context, models.StudyPeriodFilter) ([]models.StudyPeriod, error) {
	return []models.StudyPeriod{{
		ID:             "p1",
		AcademicYearID: "y1",
		Name:           "Autumn term",
		StartDate:      time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC),
	}}, nil
}

func newImportRouter(t *testing.T, ledger *stubLedger) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	detector := service.NewConflictDetector(ledger, zap.NewNop())
	generator := service.NewGeneratorService(ledger, stubGeneratorCalendar{}, detector, noopInvalidator{}, noopRecorder{}, zap.NewNop())
	h := NewScheduleImportHandler(generator, validator.New())

	router := gin.New()
	router.POST("/schedules/import", h.Import)
	return router
}

const importPayload = `{
	"studentGroupId": "g1",
	"periodStartDate": "2025-09-01",
	"periodEndDate": "2025-09-14",
	"academicYearId": "y1",
	"items": [
		{"dayOfWeek": 0, "startTime": "09:00", "endTime": "09:45", "subjectId": "math", "teacherId": "t1", "lessonType": "LECTURE"}
	]
}`

func TestScheduleImportEndpointCreates(t *testing.T) {
	ledger, mock, cleanup := newStubLedger(t)
	defer cleanup()
	router := newImportRouter(t, ledger)

	mock.ExpectBegin()
	mock.ExpectCommit()

	req, _ := http.NewRequest(http.MethodPost, "/schedules/import", bytes.NewBufferString(importPayload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)

	var body struct {
		Data struct {
			Created      int      `json:"created"`
			SkippedDates []string `json:"skippedDates"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Data.Created)
	assert.Empty(t, body.Data.SkippedDates)
	require.Len(t, ledger.created, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleImportEndpointAbortsOnConflict(t *testing.T) {
	ledger, mock, cleanup := newStubLedger(t)
	defer cleanup()
	ledger.existing = []models.Lesson{{
		ID:             "busy",
		StudentGroupID: "g1",
		SubjectID:      "bio",
		TeacherID:      "t9",
		LessonType:     models.LessonTypeLecture,
		StartTime:      time.Date(2025, 9, 8, 9, 0, 0, 0, time.UTC),
		EndTime:        time.Date(2025, 9, 8, 10, 0, 0, 0, time.UTC),
	}}
	router := newImportRouter(t, ledger)

	mock.ExpectBegin()
	mock.ExpectRollback()

	req, _ := http.NewRequest(http.MethodPost, "/schedules/import", bytes.NewBufferString(importPayload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusConflict, resp.Code)

	var body struct {
		Meta struct {
			Conflicts []models.Conflict `json:"conflicts"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Len(t, body.Meta.Conflicts, 1)
	assert.Equal(t, models.DimensionGroup, body.Meta.Conflicts[0].Dimension)
	assert.Equal(t, "busy", body.Meta.Conflicts[0].ExistingLessonID)
	assert.Empty(t, ledger.created)
}

func TestScheduleImportEndpointMalformedDates(t *testing.T) {
	ledger, _, cleanup := newStubLedger(t)
	defer cleanup()
	router := newImportRouter(t, ledger)

	payload := `{
		"studentGroupId": "g1",
		"periodStartDate": "01.09.2025",
		"periodEndDate": "2025-09-14",
		"items": [{"dayOfWeek": 0, "startTime": "09:00", "endTime": "09:45", "subjectId": "math", "teacherId": "t1", "lessonType": "LECTURE"}]
	}`
	req, _ := http.NewRequest(http.MethodPost, "/schedules/import", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "MALFORMED_DATE_RANGE")
}
