package models

import "time"

// TimeInterval is a half-open [Start, End) instant pair. The end instant is
// excluded, so back-to-back lessons on the same resource never clash.
type TimeInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsValid reports whether the interval has positive length.
func (i TimeInterval) IsValid() bool {
	return i.Start.Before(i.End)
}

// Overlaps applies the half-open overlap rule: two intervals overlap iff
// a.Start < b.End && b.Start < a.End.
func (i TimeInterval) Overlaps(other TimeInterval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Contains reports whether t lies inside the interval.
func (i TimeInterval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Duration returns the interval length.
func (i TimeInterval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// DateOnly truncates an instant to its civil date at UTC midnight. Study
// period bounds are stored as dates, so containment checks compare at date
// granularity.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
