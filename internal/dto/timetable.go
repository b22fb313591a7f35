package dto

import "time"

// TimetableEntry is one booked lesson enriched with catalog names for
// display and export.
type TimetableEntry struct {
	LessonID   string    `json:"lessonId"`
	Date       string    `json:"date"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	Subject    string    `json:"subject"`
	Teacher    string    `json:"teacher"`
	Group      string    `json:"group"`
	Classroom  string    `json:"classroom,omitempty"`
	LessonType string    `json:"lessonType"`
}

// TimetableView is the assembled timetable payload. It is what gets cached.
type TimetableView struct {
	GroupID     string           `json:"groupId,omitempty"`
	TeacherID   string           `json:"teacherId,omitempty"`
	From        string           `json:"from,omitempty"`
	To          string           `json:"to,omitempty"`
	Entries     []TimetableEntry `json:"entries"`
	GeneratedAt time.Time        `json:"generatedAt"`
}
