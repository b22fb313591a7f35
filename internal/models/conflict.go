package models

import (
	"fmt"
	"time"
)

// ConflictDimension names the resource axis on which two lessons clash.
type ConflictDimension string

const (
	DimensionClassroom ConflictDimension = "CLASSROOM"
	DimensionGroup     ConflictDimension = "GROUP"
	DimensionTeacher   ConflictDimension = "TEACHER"
)

// ConflictPolicy selects what the generator does when conflicts surface.
type ConflictPolicy string

const (
	// PolicyAbort commits nothing if any conflict exists and reports all of
	// them. Used by bulk import, where partial application is worse than none.
	PolicyAbort ConflictPolicy = "ABORT"
	// PolicySkip commits every clean candidate and reports the rest. Used by
	// best-effort seed generation.
	PolicySkip ConflictPolicy = "SKIP"
)

// Valid reports whether the policy is a known value.
func (p ConflictPolicy) Valid() bool {
	return p == PolicyAbort || p == PolicySkip
}

// Conflict describes one detected double-booking. Exactly one of
// ExistingLessonID or BatchIndex is set: the former when the clash is with a
// ledger row, the latter when two candidates in the same batch collide.
type Conflict struct {
	CandidateIndex   int               `json:"candidate_index"`
	SubjectID        string            `json:"subject_id"`
	StudentGroupID   string            `json:"student_group_id"`
	StartTime        time.Time         `json:"start_time"`
	EndTime          time.Time         `json:"end_time"`
	Dimension        ConflictDimension `json:"dimension"`
	ResourceID       string            `json:"resource_id"`
	ExistingLessonID string            `json:"existing_lesson_id,omitempty"`
	BatchIndex       *int              `json:"batch_index,omitempty"`
}

// Interval returns the candidate window the conflict was reported for.
func (c Conflict) Interval() TimeInterval {
	return TimeInterval{Start: c.StartTime, End: c.EndTime}
}

// Signature identifies near-identical reports so a pre-existing clash seen
// from several angles collapses into one entry per resource and dimension.
func (c Conflict) Signature() string {
	return fmt.Sprintf("%s|%s|%s|%s|%s",
		c.StartTime.UTC().Format(time.RFC3339),
		c.EndTime.UTC().Format(time.RFC3339),
		c.SubjectID,
		c.ResourceID,
		c.Dimension,
	)
}

// ConflictError carries the full conflict set out of an aborted batch commit.
type ConflictError struct {
	Message   string     `json:"message"`
	Conflicts []Conflict `json:"conflicts"`
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s (%d conflicts)", e.Message, len(e.Conflicts))
}
