package dto

import (
	"fmt"
	"time"

	"github.com/eduplat/timetable-api/internal/models"
)

// LessonTemplateItem is one weekly recurrence row of a schedule template.
// Times are local time-of-day strings ("08:30"); day_of_week runs 0 for
// Monday through 6 for Sunday.
type LessonTemplateItem struct {
	DayOfWeek         int     `json:"dayOfWeek" validate:"min=0,max=6"`
	StartTime         string  `json:"startTime" validate:"required"`
	EndTime           string  `json:"endTime" validate:"required"`
	SubjectID         string  `json:"subjectId" validate:"required"`
	TeacherID         string  `json:"teacherId" validate:"required"`
	ClassroomID       *string `json:"classroomId,omitempty"`
	LessonType        string  `json:"lessonType" validate:"required"`
	CurriculumEntryID *string `json:"curriculumEntryId,omitempty"`
}

// ScheduleImportRequest is the bulk template import payload: a weekly
// template plus the context it is projected into.
type ScheduleImportRequest struct {
	StudentGroupID        string               `json:"studentGroupId" validate:"required"`
	PeriodStartDate       string               `json:"periodStartDate" validate:"required"`
	PeriodEndDate         string               `json:"periodEndDate" validate:"required"`
	AcademicYearID        string               `json:"academicYearId"`
	ClearExistingSchedule bool                 `json:"clearExistingSchedule"`
	Items                 []LessonTemplateItem `json:"items" validate:"required,min=1,dive"`
}

// TemplateSlot is a template item with its times parsed, ready for
// projection onto calendar dates.
type TemplateSlot struct {
	DayOfWeek         int
	StartHour         int
	StartMinute       int
	EndHour           int
	EndMinute         int
	SubjectID         string
	TeacherID         string
	ClassroomID       *string
	LessonType        models.LessonType
	CurriculumEntryID *string
}

// At materialises the slot's window on a concrete date in the given location.
func (s TemplateSlot) At(date time.Time, loc *time.Location) models.TimeInterval {
	y, m, d := date.Date()
	return models.TimeInterval{
		Start: time.Date(y, m, d, s.StartHour, s.StartMinute, 0, 0, loc),
		End:   time.Date(y, m, d, s.EndHour, s.EndMinute, 0, 0, loc),
	}
}

// Slot parses the item's times into a TemplateSlot. The end-before-start
// check happens later in validation; only parse failures are reported here.
func (i LessonTemplateItem) Slot() (TemplateSlot, error) {
	sh, sm, err := parseClock(i.StartTime)
	if err != nil {
		return TemplateSlot{}, fmt.Errorf("startTime: %w", err)
	}
	eh, em, err := parseClock(i.EndTime)
	if err != nil {
		return TemplateSlot{}, fmt.Errorf("endTime: %w", err)
	}
	return TemplateSlot{
		DayOfWeek:         i.DayOfWeek,
		StartHour:         sh,
		StartMinute:       sm,
		EndHour:           eh,
		EndMinute:         em,
		SubjectID:         i.SubjectID,
		TeacherID:         i.TeacherID,
		ClassroomID:       i.ClassroomID,
		LessonType:        models.LessonType(i.LessonType),
		CurriculumEntryID: i.CurriculumEntryID,
	}, nil
}

func parseClock(raw string) (int, int, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", raw)
	}
	return t.Hour(), t.Minute(), nil
}

// GenerateScheduleRequest is the engine-level generation request shared by
// the import API and the seed job.
type GenerateScheduleRequest struct {
	StudentGroupID string `validate:"required"`
	AcademicYearID string
	RangeStart     time.Time             `validate:"required"`
	RangeEnd       time.Time             `validate:"required"`
	Template       []TemplateSlot        `validate:"required,min=1"`
	OnConflict     models.ConflictPolicy `validate:"required"`
	ClearExisting  bool
	CreatedBy      *string
	Location       *time.Location
}

// GenerateScheduleResult reports the outcome of one generation run.
type GenerateScheduleResult struct {
	Booked       []models.Lesson   `json:"booked"`
	Conflicts    []models.Conflict `json:"conflicts"`
	SkippedDates []string          `json:"skippedDates,omitempty"`
}

// ScheduleImportResponse is the success body of the import endpoint.
type ScheduleImportResponse struct {
	Created      int      `json:"created"`
	SkippedDates []string `json:"skippedDates,omitempty"`
}
