package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func interval(t *testing.T, start, end string) TimeInterval {
	t.Helper()
	s, err := time.Parse(time.RFC3339, start)
	assert.NoError(t, err)
	e, err := time.Parse(time.RFC3339, end)
	assert.NoError(t, err)
	return TimeInterval{Start: s, End: e}
}

func TestTimeIntervalOverlaps(t *testing.T) {
	a := interval(t, "2025-09-01T08:30:00Z", "2025-09-01T09:15:00Z")

	assert.True(t, a.Overlaps(interval(t, "2025-09-01T09:00:00Z", "2025-09-01T10:00:00Z")))
	assert.True(t, a.Overlaps(interval(t, "2025-09-01T08:00:00Z", "2025-09-01T08:31:00Z")))
	assert.True(t, a.Overlaps(interval(t, "2025-09-01T08:00:00Z", "2025-09-01T10:00:00Z")))
	assert.False(t, a.Overlaps(interval(t, "2025-09-01T10:00:00Z", "2025-09-01T11:00:00Z")))
}

func TestTimeIntervalHalfOpenBoundary(t *testing.T) {
	first := interval(t, "2025-09-01T08:30:00Z", "2025-09-01T09:15:00Z")
	second := interval(t, "2025-09-01T09:15:00Z", "2025-09-01T10:00:00Z")

	assert.False(t, first.Overlaps(second), "back-to-back lessons must not conflict")
	assert.False(t, second.Overlaps(first))
}

func TestTimeIntervalIsValid(t *testing.T) {
	assert.True(t, interval(t, "2025-09-01T08:30:00Z", "2025-09-01T09:15:00Z").IsValid())
	assert.False(t, interval(t, "2025-09-01T09:15:00Z", "2025-09-01T08:30:00Z").IsValid())

	point := interval(t, "2025-09-01T08:30:00Z", "2025-09-01T08:30:00Z")
	assert.False(t, point.IsValid(), "zero-length interval is invalid")
}

func TestTemplateWeekday(t *testing.T) {
	monday := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2025, 9, 7, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, TemplateWeekday(monday))
	assert.Equal(t, 6, TemplateWeekday(sunday))
}

func TestStudyPeriodContainsInterval(t *testing.T) {
	period := StudyPeriod{
		StartDate: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC),
	}

	inside := interval(t, "2025-09-15T08:30:00Z", "2025-09-15T09:15:00Z")
	assert.True(t, period.ContainsInterval(inside))

	lastDay := interval(t, "2025-10-31T23:00:00Z", "2025-10-31T23:45:00Z")
	assert.True(t, period.ContainsInterval(lastDay), "end date is inclusive")

	dayAfter := interval(t, "2025-10-31T23:30:00Z", "2025-11-01T00:15:00Z")
	assert.False(t, period.ContainsInterval(dayAfter), "end spilling past the period fails containment")

	before := interval(t, "2025-08-31T23:59:59Z", "2025-09-01T00:45:00Z")
	assert.False(t, period.ContainsInterval(before), "one second before the period start is outside")
}
