package models

import "time"

// AcademicYear bounds a school year, e.g. "2024-2025".
type AcademicYear struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	IsCurrent bool      `db:"is_current" json:"is_current"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ContainsDate reports whether d falls inside the year (inclusive bounds,
// date granularity).
func (y AcademicYear) ContainsDate(d time.Time) bool {
	day := DateOnly(d)
	return !day.Before(DateOnly(y.StartDate)) && !day.After(DateOnly(y.EndDate))
}

// StudyPeriod is a bounded date range inside an academic year (term,
// quarter, semester). Every booked lesson must fall inside one. The catalog
// guarantees that periods of one academic year never overlap.
type StudyPeriod struct {
	ID             string    `db:"id" json:"id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	Name           string    `db:"name" json:"name"`
	StartDate      time.Time `db:"start_date" json:"start_date"`
	EndDate        time.Time `db:"end_date" json:"end_date"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ContainsDate reports whether d falls inside the period. Bounds are
// inclusive on both ends, matching date-granularity storage.
func (p StudyPeriod) ContainsDate(d time.Time) bool {
	day := DateOnly(d)
	return !day.Before(DateOnly(p.StartDate)) && !day.After(DateOnly(p.EndDate))
}

// ContainsInterval reports whether both interval endpoints fall on dates
// covered by the period.
func (p StudyPeriod) ContainsInterval(i TimeInterval) bool {
	return p.ContainsDate(i.Start) && p.ContainsDate(i.End)
}

// StudyPeriodFilter narrows study period listings. ContainsDate restricts
// the result to periods whose date range covers the given day.
type StudyPeriodFilter struct {
	AcademicYearID string
	ContainsDate   *time.Time
	Page           int
	PageSize       int
}
