package models

import "time"

// LessonType mirrors the kinds of sessions a school schedules.
type LessonType string

const (
	LessonTypeLecture      LessonType = "LECTURE"
	LessonTypePractice     LessonType = "PRACTICE"
	LessonTypeLab          LessonType = "LAB"
	LessonTypeSeminar      LessonType = "SEMINAR"
	LessonTypeConsultation LessonType = "CONSULTATION"
	LessonTypeExam         LessonType = "EXAM"
	LessonTypeEvent        LessonType = "EVENT"
	LessonTypeOther        LessonType = "OTHER"
)

// Valid reports whether the lesson type is one of the known values.
func (t LessonType) Valid() bool {
	switch t {
	case LessonTypeLecture, LessonTypePractice, LessonTypeLab, LessonTypeSeminar,
		LessonTypeConsultation, LessonTypeExam, LessonTypeEvent, LessonTypeOther:
		return true
	}
	return false
}

// Lesson is a committed booking in the ledger. Resource and interval fields
// are immutable once booked: edits go through retract-validate-rebook, never
// through in-place mutation that bypasses conflict checks.
type Lesson struct {
	ID                string     `db:"id" json:"id"`
	StudyPeriodID     string     `db:"study_period_id" json:"study_period_id"`
	StudentGroupID    string     `db:"student_group_id" json:"student_group_id"`
	SubjectID         string     `db:"subject_id" json:"subject_id"`
	TeacherID         string     `db:"teacher_id" json:"teacher_id"`
	ClassroomID       *string    `db:"classroom_id" json:"classroom_id,omitempty"`
	LessonType        LessonType `db:"lesson_type" json:"lesson_type"`
	StartTime         time.Time  `db:"start_time" json:"start_time"`
	EndTime           time.Time  `db:"end_time" json:"end_time"`
	CurriculumEntryID *string    `db:"curriculum_entry_id" json:"curriculum_entry_id,omitempty"`
	CreatedBy         *string    `db:"created_by" json:"created_by,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Interval returns the lesson's booked window.
func (l Lesson) Interval() TimeInterval {
	return TimeInterval{Start: l.StartTime, End: l.EndTime}
}

// LessonCandidate is a transient booking request. It only becomes a Lesson
// after passing the full validation path.
type LessonCandidate struct {
	SubjectID         string     `json:"subject_id"`
	TeacherID         string     `json:"teacher_id"`
	StudentGroupID    string     `json:"student_group_id"`
	ClassroomID       *string    `json:"classroom_id,omitempty"`
	LessonType        LessonType `json:"lesson_type"`
	StudyPeriodID     string     `json:"study_period_id"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           time.Time  `json:"end_time"`
	CurriculumEntryID *string    `json:"curriculum_entry_id,omitempty"`
	CreatedBy         *string    `json:"-"`

	// ExcludeLessonID names the candidate's own prior booking so that
	// re-validation on update does not report a self-conflict.
	ExcludeLessonID string `json:"-"`
}

// Interval returns the candidate's requested window.
func (c LessonCandidate) Interval() TimeInterval {
	return TimeInterval{Start: c.StartTime, End: c.EndTime}
}

// ToLesson materialises the candidate as an unbooked ledger record.
func (c LessonCandidate) ToLesson() Lesson {
	return Lesson{
		ID:                c.ExcludeLessonID,
		StudyPeriodID:     c.StudyPeriodID,
		StudentGroupID:    c.StudentGroupID,
		SubjectID:         c.SubjectID,
		TeacherID:         c.TeacherID,
		ClassroomID:       c.ClassroomID,
		LessonType:        c.LessonType,
		StartTime:         c.StartTime,
		EndTime:           c.EndTime,
		CurriculumEntryID: c.CurriculumEntryID,
		CreatedBy:         c.CreatedBy,
	}
}

// TemplateWeekday converts a calendar date to the template weekday
// convention: 0 for Monday through 6 for Sunday.
func TemplateWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// LessonFilter describes query params for listing booked lessons.
type LessonFilter struct {
	StudyPeriodID  string
	StudentGroupID string
	TeacherID      string
	ClassroomID    string
	SubjectID      string
	From           *time.Time
	To             *time.Time
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
