package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/eduplat/timetable-api/internal/dto"
	"github.com/eduplat/timetable-api/internal/models"
	appErrors "github.com/eduplat/timetable-api/pkg/errors"
)

// LessonLedger covers the booking-ledger operations the lesson service uses.
type LessonLedger interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, int, error)
	FindByID(ctx context.Context, id string) (*models.Lesson, error)
	Create(ctx context.Context, exec sqlx.ExtContext, lesson *models.Lesson) error
	Update(ctx context.Context, exec sqlx.ExtContext, lesson *models.Lesson) error
	Delete(ctx context.Context, id string) error
}

// LessonCatalog resolves the referenced resources of a candidate.
type LessonCatalog interface {
	FindSubjectByID(ctx context.Context, id string) (*models.Subject, error)
	FindTeacherByID(ctx context.Context, id string) (*models.Teacher, error)
	FindGroupByID(ctx context.Context, id string) (*models.StudentGroup, error)
	FindClassroomByID(ctx context.Context, id string) (*models.Classroom, error)
}

// LessonCalendar resolves study periods.
type LessonCalendar interface {
	FindStudyPeriodByID(ctx context.Context, id string) (*models.StudyPeriod, error)
}

// TimetableInvalidator drops cached timetable payloads after a mutation.
type TimetableInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// BookingRecorder feeds the booking counters.
type BookingRecorder interface {
	RecordLessonsBooked(n int)
	RecordConflicts(conflicts []models.Conflict)
}

// LessonService books, rebooks, and retracts single lessons. Every write
// path runs the full rule set and reports all violations at once rather than
// stopping at the first.
type LessonService struct {
	ledger   LessonLedger
	catalog  LessonCatalog
	calendar LessonCalendar
	detector *ConflictDetector
	cache    TimetableInvalidator
	metrics  BookingRecorder
	logger   *zap.Logger
}

// NewLessonService wires the lesson service.
func NewLessonService(ledger LessonLedger, catalog LessonCatalog, calendar LessonCalendar, detector *ConflictDetector, cache TimetableInvalidator, metrics BookingRecorder, logger *zap.Logger) *LessonService {
	return &LessonService{
		ledger:   ledger,
		catalog:  catalog,
		calendar: calendar,
		detector: detector,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

// ValidateCandidate runs every booking rule against one candidate and
// returns the full violation list. An empty list means the candidate is
// bookable. Unknown resource references are hard errors, not violations:
// they indicate a broken request rather than a scheduling problem.
//
// Rules never short-circuit each other. A lesson outside its study period is
// still checked for conflicts and capacity, so the caller can fix everything
// in one pass.
func (s *LessonService) ValidateCandidate(ctx context.Context, exec sqlx.ExtContext, cand models.LessonCandidate) ([]models.ValidationError, error) {
	period, err := s.calendar.FindStudyPeriodByID(ctx, cand.StudyPeriodID)
	if err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("study period %s not found", cand.StudyPeriodID))
	}
	if _, err := s.catalog.FindSubjectByID(ctx, cand.SubjectID); err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("subject %s not found", cand.SubjectID))
	}
	if _, err := s.catalog.FindTeacherByID(ctx, cand.TeacherID); err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("teacher %s not found", cand.TeacherID))
	}
	group, err := s.catalog.FindGroupByID(ctx, cand.StudentGroupID)
	if err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("student group %s not found", cand.StudentGroupID))
	}

	var violations []models.ValidationError

	interval := cand.Interval()
	if !interval.IsValid() {
		violations = append(violations, models.ValidationError{
			Code:    models.CodeInvalidInterval,
			Field:   "endTime",
			Message: "end time must be strictly after start time",
		})
	}

	if interval.IsValid() && !period.ContainsInterval(interval) {
		violations = append(violations, models.ValidationError{
			Code:    models.CodeOutsideStudyPeriod,
			Field:   "startTime",
			Message: fmt.Sprintf("lesson falls outside study period %q (%s to %s)", period.Name, period.StartDate.Format("2006-01-02"), period.EndDate.Format("2006-01-02")),
		})
	}

	if interval.IsValid() {
		conflicts, err := s.detector.Detect(ctx, exec, []models.LessonCandidate{cand})
		if err != nil {
			return nil, err
		}
		for _, c := range conflicts {
			violations = append(violations, models.ValidationError{
				Code:                models.CodeResourceConflict,
				Message:             fmt.Sprintf("%s %s is already booked from %s to %s", c.Dimension, c.ResourceID, c.StartTime.Format("15:04"), c.EndTime.Format("15:04")),
				Dimension:           c.Dimension,
				ConflictingLessonID: c.ExistingLessonID,
			})
		}
		if s.metrics != nil {
			s.metrics.RecordConflicts(conflicts)
		}
	}

	if cand.ClassroomID != nil && *cand.ClassroomID != "" {
		classroom, err := s.catalog.FindClassroomByID(ctx, *cand.ClassroomID)
		if err != nil {
			return nil, notFoundOr(err, fmt.Sprintf("classroom %s not found", *cand.ClassroomID))
		}
		// A zero member count means group membership has not been resolved
		// yet; the size rule only applies once both numbers are known.
		if group.MemberCount > 0 && classroom.Capacity > 0 && group.MemberCount > classroom.Capacity {
			violations = append(violations, models.ValidationError{
				Code:    models.CodeCapacityExceeded,
				Field:   "classroomId",
				Message: fmt.Sprintf("group of %d exceeds classroom %s capacity %d", group.MemberCount, classroom.Identifier, classroom.Capacity),
			})
		}
	}

	return violations, nil
}

// Create validates and books one lesson. Validation and insert share a
// serializable transaction so a concurrent booking cannot slip between the
// conflict check and the commit.
func (s *LessonService) Create(ctx context.Context, req dto.CreateLessonRequest, createdBy string) (*models.Lesson, []models.ValidationError, error) {
	cand, err := candidateFromRequest(req.SubjectID, req.TeacherID, req.StudentGroupID, req.ClassroomID, req.LessonType, req.StudyPeriodID, req.StartTime, req.EndTime, req.CurriculumEntryID)
	if err != nil {
		return nil, nil, err
	}
	if createdBy != "" {
		cand.CreatedBy = &createdBy
	}

	tx, err := s.ledger.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	violations, err := s.ValidateCandidate(ctx, tx, cand)
	if err != nil {
		return nil, nil, err
	}
	if len(violations) > 0 {
		return nil, violations, nil
	}

	lesson := cand.ToLesson()
	lesson.ID = ""
	if err := s.ledger.Create(ctx, tx, &lesson); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit booking tx: %w", err)
	}

	s.recordBooked(ctx, 1)
	return &lesson, nil, nil
}

// Update rebooks an existing lesson with a new field set. The prior booking
// is excluded from conflict detection so the lesson never conflicts with
// itself.
func (s *LessonService) Update(ctx context.Context, id string, req dto.UpdateLessonRequest) (*models.Lesson, []models.ValidationError, error) {
	existing, err := s.ledger.FindByID(ctx, id)
	if err != nil {
		return nil, nil, notFoundOr(err, fmt.Sprintf("lesson %s not found", id))
	}

	cand, err := candidateFromRequest(req.SubjectID, req.TeacherID, req.StudentGroupID, req.ClassroomID, req.LessonType, req.StudyPeriodID, req.StartTime, req.EndTime, req.CurriculumEntryID)
	if err != nil {
		return nil, nil, err
	}
	cand.ExcludeLessonID = existing.ID
	cand.CreatedBy = existing.CreatedBy

	tx, err := s.ledger.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, nil, fmt.Errorf("begin rebooking tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	violations, err := s.ValidateCandidate(ctx, tx, cand)
	if err != nil {
		return nil, nil, err
	}
	if len(violations) > 0 {
		return nil, violations, nil
	}

	lesson := cand.ToLesson()
	lesson.CreatedAt = existing.CreatedAt
	if err := s.ledger.Update(ctx, tx, &lesson); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit rebooking tx: %w", err)
	}

	s.invalidateTimetables(ctx)
	return &lesson, nil, nil
}

// Delete retracts a booking.
func (s *LessonService) Delete(ctx context.Context, id string) error {
	if _, err := s.ledger.FindByID(ctx, id); err != nil {
		return notFoundOr(err, fmt.Sprintf("lesson %s not found", id))
	}
	if err := s.ledger.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateTimetables(ctx)
	return nil
}

// Get loads one booking.
func (s *LessonService) Get(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, err := s.ledger.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, fmt.Sprintf("lesson %s not found", id))
	}
	return lesson, nil
}

// List returns booked lessons plus a total for pagination.
func (s *LessonService) List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, int, error) {
	return s.ledger.List(ctx, filter)
}

func (s *LessonService) recordBooked(ctx context.Context, n int) {
	if s.metrics != nil {
		s.metrics.RecordLessonsBooked(n)
	}
	s.invalidateTimetables(ctx)
}

func (s *LessonService) invalidateTimetables(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, timetableCachePattern); err != nil && s.logger != nil {
		s.logger.Warn("timetable cache invalidation failed", zap.Error(err))
	}
}

func candidateFromRequest(subjectID, teacherID, groupID string, classroomID *string, lessonType, periodID string, start, end time.Time, curriculumEntryID *string) (models.LessonCandidate, error) {
	typ := models.LessonType(lessonType)
	if !typ.Valid() {
		return models.LessonCandidate{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown lesson type %q", lessonType))
	}
	return models.LessonCandidate{
		SubjectID:         subjectID,
		TeacherID:         teacherID,
		StudentGroupID:    groupID,
		ClassroomID:       classroomID,
		LessonType:        typ,
		StudyPeriodID:     periodID,
		StartTime:         start,
		EndTime:           end,
		CurriculumEntryID: curriculumEntryID,
	}, nil
}

// notFoundOr maps missing-row lookups to a 404 and keeps everything else
// intact.
func notFoundOr(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, message)
	}
	return err
}
