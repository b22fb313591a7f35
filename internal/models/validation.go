package models

// Validation codes for lesson rule violations. These are data, not control
// flow: callers receive every applicable violation in one response.
const (
	CodeInvalidInterval    = "INVALID_INTERVAL"
	CodeOutsideStudyPeriod = "OUTSIDE_STUDY_PERIOD"
	CodeResourceConflict   = "RESOURCE_CONFLICT"
	CodeCapacityExceeded   = "CAPACITY_EXCEEDED"
	CodeUnresolvablePeriod = "UNRESOLVABLE_STUDY_PERIOD"
)

// ValidationError is one lesson rule violation.
type ValidationError struct {
	Code                string            `json:"code"`
	Field               string            `json:"field,omitempty"`
	Message             string            `json:"message"`
	Dimension           ConflictDimension `json:"dimension,omitempty"`
	ConflictingLessonID string            `json:"conflicting_lesson_id,omitempty"`
}
