package dto

import "time"

// CreateLessonRequest books a single lesson after full validation.
type CreateLessonRequest struct {
	SubjectID         string    `json:"subjectId" validate:"required"`
	TeacherID         string    `json:"teacherId" validate:"required"`
	StudentGroupID    string    `json:"studentGroupId" validate:"required"`
	ClassroomID       *string   `json:"classroomId,omitempty"`
	LessonType        string    `json:"lessonType" validate:"required"`
	StudyPeriodID     string    `json:"studyPeriodId" validate:"required"`
	StartTime         time.Time `json:"startTime" validate:"required"`
	EndTime           time.Time `json:"endTime" validate:"required"`
	CurriculumEntryID *string   `json:"curriculumEntryId,omitempty"`
}

// UpdateLessonRequest replaces a booking. The full field set is required:
// updates are modelled as retract-validate-rebook, not as partial patches.
type UpdateLessonRequest struct {
	SubjectID         string    `json:"subjectId" validate:"required"`
	TeacherID         string    `json:"teacherId" validate:"required"`
	StudentGroupID    string    `json:"studentGroupId" validate:"required"`
	ClassroomID       *string   `json:"classroomId,omitempty"`
	LessonType        string    `json:"lessonType" validate:"required"`
	StudyPeriodID     string    `json:"studyPeriodId" validate:"required"`
	StartTime         time.Time `json:"startTime" validate:"required"`
	EndTime           time.Time `json:"endTime" validate:"required"`
	CurriculumEntryID *string   `json:"curriculumEntryId,omitempty"`
}

// TimetableQuery narrows timetable reads to one group or teacher and an
// optional date window.
type TimetableQuery struct {
	StudentGroupID string `form:"groupId"`
	TeacherID      string `form:"teacherId"`
	From           string `form:"from"`
	To             string `form:"to"`
}
