package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/eduplat/timetable-api/internal/dto"
	"github.com/eduplat/timetable-api/internal/models"
	appErrors "github.com/eduplat/timetable-api/pkg/errors"
)

// GeneratorLedger covers the ledger operations schedule generation needs.
type GeneratorLedger interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	BulkCreate(ctx context.Context, exec sqlx.ExtContext, lessons []models.Lesson) error
	DeleteForGroupRange(ctx context.Context, exec sqlx.ExtContext, groupID, academicYearID string, from, to time.Time) (int64, error)
}

// GeneratorCalendar resolves the academic year and its study periods for a
// generation run.
type GeneratorCalendar interface {
	FindAcademicYearByID(ctx context.Context, id string) (*models.AcademicYear, error)
	FindAcademicYearForDate(ctx context.Context, date time.Time) (*models.AcademicYear, error)
	ListStudyPeriods(ctx context.Context, filter models.StudyPeriodFilter) ([]models.StudyPeriod, error)
}

// GeneratorService projects a weekly lesson template over a date range and
// books the result. Bulk import and the seed job both run through here; they
// differ only in conflict policy.
type GeneratorService struct {
	ledger   GeneratorLedger
	calendar GeneratorCalendar
	detector *ConflictDetector
	cache    TimetableInvalidator
	metrics  BookingRecorder
	logger   *zap.Logger
}

// NewGeneratorService wires the generator.
func NewGeneratorService(ledger GeneratorLedger, calendar GeneratorCalendar, detector *ConflictDetector, cache TimetableInvalidator, metrics BookingRecorder, logger *zap.Logger) *GeneratorService {
	return &GeneratorService{
		ledger:   ledger,
		calendar: calendar,
		detector: detector,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

// GenerateFromTemplate walks every date in the range, projects the matching
// template slots onto it, and commits the batch under the request's conflict
// policy. Dates not covered by any study period are skipped and reported,
// never guessed at.
//
// The whole run, including the optional wipe of the group's existing
// lessons, happens in one serializable transaction: either the range is
// regenerated or nothing changed.
func (s *GeneratorService) GenerateFromTemplate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResult, error) {
	if req.RangeStart.IsZero() || req.RangeEnd.IsZero() || req.RangeEnd.Before(req.RangeStart) {
		return nil, appErrors.Clone(appErrors.ErrMalformedDateRange, "range end must not precede range start")
	}
	policy := req.OnConflict
	if policy == "" {
		policy = models.PolicyAbort
	}
	if !policy.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown conflict policy %q", req.OnConflict))
	}
	if len(req.Template) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "template must contain at least one slot")
	}
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}

	year, err := s.resolveYear(ctx, req.AcademicYearID, req.RangeStart)
	if err != nil {
		return nil, err
	}
	periods, err := s.calendar.ListStudyPeriods(ctx, models.StudyPeriodFilter{AcademicYearID: year.ID})
	if err != nil {
		return nil, err
	}

	candidates, skippedDates, err := s.projectTemplate(ctx, req, periods, loc)
	if err != nil {
		return nil, err
	}

	result := &dto.GenerateScheduleResult{SkippedDates: skippedDates}
	if len(candidates) == 0 {
		return result, nil
	}

	tx, err := s.ledger.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, fmt.Errorf("begin generation tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if req.ClearExisting {
		removed, err := s.ledger.DeleteForGroupRange(ctx, tx, req.StudentGroupID, year.ID, dayStart(req.RangeStart, loc), dayStart(req.RangeEnd, loc).AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		if s.logger != nil {
			s.logger.Info("cleared existing lessons before regeneration",
				zap.String("group_id", req.StudentGroupID),
				zap.Int64("removed", removed))
		}
	}

	conflicts, err := s.detector.Detect(ctx, tx, candidates)
	if err != nil {
		return nil, err
	}
	result.Conflicts = conflicts
	if s.metrics != nil {
		s.metrics.RecordConflicts(conflicts)
	}

	toBook := candidates
	if len(conflicts) > 0 {
		switch policy {
		case models.PolicyAbort:
			return nil, &models.ConflictError{
				Message:   "schedule generation aborted, conflicts detected",
				Conflicts: conflicts,
			}
		case models.PolicySkip:
			toBook = dropConflicting(candidates, conflicts)
		}
	}

	lessons := make([]models.Lesson, 0, len(toBook))
	for _, cand := range toBook {
		lesson := cand.ToLesson()
		lesson.ID = ""
		lesson.CreatedBy = req.CreatedBy
		lessons = append(lessons, lesson)
	}
	if len(lessons) > 0 {
		if err := s.ledger.BulkCreate(ctx, tx, lessons); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit generation tx: %w", err)
	}

	result.Booked = lessons
	if s.metrics != nil {
		s.metrics.RecordLessonsBooked(len(lessons))
	}
	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, timetableCachePattern); err != nil && s.logger != nil {
			s.logger.Warn("timetable cache invalidation failed", zap.Error(err))
		}
	}
	if s.logger != nil {
		s.logger.Info("schedule generated",
			zap.String("group_id", req.StudentGroupID),
			zap.String("policy", string(policy)),
			zap.Int("booked", len(lessons)),
			zap.Int("conflicts", len(conflicts)),
			zap.Int("skipped_dates", len(skippedDates)))
	}
	return result, nil
}

// projectTemplate turns the weekly template into dated candidates. The date
// walk honours context cancellation between days, so an aborted request does
// not keep materialising a long range.
func (s *GeneratorService) projectTemplate(ctx context.Context, req dto.GenerateScheduleRequest, periods []models.StudyPeriod, loc *time.Location) ([]models.LessonCandidate, []string, error) {
	slotsByDay := make(map[int][]dto.TemplateSlot)
	for _, slot := range req.Template {
		if slot.DayOfWeek < 0 || slot.DayOfWeek > 6 {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day_of_week %d out of range", slot.DayOfWeek))
		}
		if !slot.LessonType.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown lesson type %q", slot.LessonType))
		}
		slotsByDay[slot.DayOfWeek] = append(slotsByDay[slot.DayOfWeek], slot)
	}

	var candidates []models.LessonCandidate
	var skippedDates []string

	for date := dayStart(req.RangeStart, loc); !date.After(dayStart(req.RangeEnd, loc)); date = date.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		slots := slotsByDay[models.TemplateWeekday(date)]
		if len(slots) == 0 {
			continue
		}
		period := resolvePeriod(periods, date)
		if period == nil {
			skippedDates = append(skippedDates, date.Format("2006-01-02"))
			continue
		}
		for _, slot := range slots {
			interval := slot.At(date, loc)
			if !interval.IsValid() {
				return nil, nil, appErrors.Clone(appErrors.ErrValidation,
					fmt.Sprintf("template slot on day %d ends before it starts", slot.DayOfWeek))
			}
			candidates = append(candidates, models.LessonCandidate{
				SubjectID:         slot.SubjectID,
				TeacherID:         slot.TeacherID,
				StudentGroupID:    req.StudentGroupID,
				ClassroomID:       slot.ClassroomID,
				LessonType:        slot.LessonType,
				StudyPeriodID:     period.ID,
				StartTime:         interval.Start,
				EndTime:           interval.End,
				CurriculumEntryID: slot.CurriculumEntryID,
			})
		}
	}
	return candidates, skippedDates, nil
}

// resolveYear prefers the explicit id; without one it falls back to the year
// covering the range start date.
func (s *GeneratorService) resolveYear(ctx context.Context, id string, rangeStart time.Time) (*models.AcademicYear, error) {
	if id != "" {
		year, err := s.calendar.FindAcademicYearByID(ctx, id)
		if err != nil {
			return nil, notFoundOr(err, fmt.Sprintf("academic year %s not found", id))
		}
		return year, nil
	}
	year, err := s.calendar.FindAcademicYearForDate(ctx, rangeStart)
	if err != nil {
		return nil, err
	}
	if year == nil {
		return nil, appErrors.Clone(appErrors.ErrUnprocessable,
			fmt.Sprintf("no academic year covers %s", rangeStart.Format("2006-01-02")))
	}
	return year, nil
}

// resolvePeriod picks the first period covering the date. Periods arrive
// ordered by start date, so the choice is stable run to run.
func resolvePeriod(periods []models.StudyPeriod, date time.Time) *models.StudyPeriod {
	for i := range periods {
		if periods[i].ContainsDate(date) {
			return &periods[i]
		}
	}
	return nil
}

// dropConflicting removes every candidate named in the conflict list. Under
// the skip policy a clashing slot is left unbooked; it shows up in the
// conflict report instead.
func dropConflicting(candidates []models.LessonCandidate, conflicts []models.Conflict) []models.LessonCandidate {
	bad := make(map[int]bool, len(conflicts))
	for _, c := range conflicts {
		bad[c.CandidateIndex] = true
	}
	kept := make([]models.LessonCandidate, 0, len(candidates))
	for i, cand := range candidates {
		if !bad[i] {
			kept = append(kept, cand)
		}
	}
	return kept
}

func dayStart(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
