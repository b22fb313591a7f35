package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eduplat/timetable-api/internal/dto"
	"github.com/eduplat/timetable-api/internal/models"
	appErrors "github.com/eduplat/timetable-api/pkg/errors"
)

type fakeGeneratorLedger struct {
	db           *sqlx.DB
	bulkCreated  [][]models.Lesson
	clearedCalls int
	clearedFrom  time.Time
	clearedTo    time.Time
}

func (f *fakeGeneratorLedger) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return f.db.BeginTxx(ctx, opts)
}

func (f *fakeGeneratorLedger) BulkCreate(_ context.Context, _ sqlx.ExtContext, lessons []models.Lesson) error {
	batch := make([]models.Lesson, len(lessons))
	copy(batch, lessons)
	f.bulkCreated = append(f.bulkCreated, batch)
	return nil
}

func (f *fakeGeneratorLedger) DeleteForGroupRange(_ context.Context, _ sqlx.ExtContext, _, _ string, from, to time.Time) (int64, error) {
	f.clearedCalls++
	f.clearedFrom = from
	f.clearedTo = to
	return 3, nil
}

type fakeGeneratorCalendar struct {
	years   map[string]models.AcademicYear
	periods []models.StudyPeriod
}

func (f *fakeGeneratorCalendar) FindAcademicYearByID(_ context.Context, id string) (*models.AcademicYear, error) {
	y, ok := f.years[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &y, nil
}

func (f *fakeGeneratorCalendar) FindAcademicYearForDate(_ context.Context, date time.Time) (*models.AcademicYear, error) {
	for _, y := range f.years {
		if y.ContainsDate(date) {
			y := y
			return &y, nil
		}
	}
	return nil, nil
}

func (f *fakeGeneratorCalendar) ListStudyPeriods(_ context.Context, filter models.StudyPeriodFilter) ([]models.StudyPeriod, error) {
	var out []models.StudyPeriod
	for _, p := range f.periods {
		if filter.AcademicYearID == "" || p.AcademicYearID == filter.AcademicYearID {
			out = append(out, p)
		}
	}
	return out, nil
}

type generatorFixture struct {
	svc      *GeneratorService
	ledger   *fakeGeneratorLedger
	calendar *fakeGeneratorCalendar
	overlaps *fakeOverlapLister
	cache    *fakeInvalidator
	metrics  *fakeRecorder
	mock     sqlmock.Sqlmock
	cleanup  func()
}

func newGeneratorFixture(t *testing.T) *generatorFixture {
	rawDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	db := sqlx.NewDb(rawDB, "sqlmock")

	ledger := &fakeGeneratorLedger{db: db}
	calendar := &fakeGeneratorCalendar{
		years: map[string]models.AcademicYear{
			"y1": {
				ID:        "y1",
				Name:      "2025-2026",
				StartDate: time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC),
			},
		},
		periods: []models.StudyPeriod{
			{
				ID:             "p1",
				AcademicYearID: "y1",
				Name:           "Autumn term",
				StartDate:      time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
				EndDate:        time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC),
			},
		},
	}
	overlaps := &fakeOverlapLister{}
	cache := &fakeInvalidator{}
	metrics := &fakeRecorder{}

	detector := NewConflictDetector(overlaps, zap.NewNop())
	svc := NewGeneratorService(ledger, calendar, detector, cache, metrics, zap.NewNop())

	return &generatorFixture{
		svc:      svc,
		ledger:   ledger,
		calendar: calendar,
		overlaps: overlaps,
		cache:    cache,
		metrics:  metrics,
		mock:     mock,
		cleanup:  func() { rawDB.Close() },
	}
}

func mondaySlot(startHour, endHour int) dto.TemplateSlot {
	return dto.TemplateSlot{
		DayOfWeek:  0,
		StartHour:  startHour,
		EndHour:    endHour,
		SubjectID:  "math",
		TeacherID:  "t1",
		LessonType: models.LessonTypeLecture,
	}
}

func generateRequest(template []dto.TemplateSlot, policy models.ConflictPolicy) dto.GenerateScheduleRequest {
	// 2025-09-01 is a Monday; a two week range holds exactly two Mondays.
	return dto.GenerateScheduleRequest{
		StudentGroupID: "g1",
		AcademicYearID: "y1",
		RangeStart:     time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:       time.Date(2025, 9, 14, 0, 0, 0, 0, time.UTC),
		Template:       template,
		OnConflict:     policy,
	}
}

func TestGenerateProjectsTemplateOverMondays(t *testing.T) {
	fx := newGeneratorFixture(t)
	defer fx.cleanup()

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	result, err := fx.svc.GenerateFromTemplate(context.Background(),
		generateRequest([]dto.TemplateSlot{mondaySlot(9, 10)}, models.PolicyAbort))
	require.NoError(t, err)
	require.Len(t, result.Booked, 2)
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.SkippedDates)

	assert.Equal(t, time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC), result.Booked[0].StartTime)
	assert.Equal(t, time.Date(2025, 9, 8, 9, 0, 0, 0, time.UTC), result.Booked[1].StartTime)
	for _, lesson := range result.Booked {
		assert.Equal(t, "p1", lesson.StudyPeriodID)
		assert.Equal(t, "g1", lesson.StudentGroupID)
	}
	assert.Equal(t, 2, fx.metrics.booked)
	assert.Contains(t, fx.cache.patterns, "timetable:*")
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestGenerateSkipsUncoveredDates(t *testing.T) {
	fx := newGeneratorFixture(t)
	defer fx.cleanup()

	// Shrink the term so the second Monday falls in a gap.
	fx.calendar.periods[0].EndDate = time.Date(2025, 9, 5, 0, 0, 0, 0, time.UTC)

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	result, err := fx.svc.GenerateFromTemplate(context.Background(),
		generateRequest([]dto.TemplateSlot{mondaySlot(9, 10)}, models.PolicyAbort))
	require.NoError(t, err)
	require.Len(t, result.Booked, 1)
	assert.Equal(t, []string{"2025-09-08"}, result.SkippedDates)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestGenerateAbortsOnConflict(t *testing.T) {
	fx := newGeneratorFixture(t)
	defer fx.cleanup()

	fx.overlaps.lessons = []models.Lesson{
		bookedLesson("busy", "t1", "other", nil,
			time.Date(2025, 9, 8, 9, 0, 0, 0, time.UTC), time.Date(2025, 9, 8, 10, 0, 0, 0, time.UTC)),
	}

	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()

	_, err := fx.svc.GenerateFromTemplate(context.Background(),
		generateRequest([]dto.TemplateSlot{mondaySlot(9, 10)}, models.PolicyAbort))
	require.Error(t, err)

	var conflictErr *models.ConflictError
	require.True(t, errors.As(err, &conflictErr))
	require.Len(t, conflictErr.Conflicts, 1)
	assert.Equal(t, "busy", conflictErr.Conflicts[0].ExistingLessonID)
	assert.Empty(t, fx.ledger.bulkCreated)
	assert.Zero(t, fx.metrics.booked)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestGenerateSkipPolicyBooksCleanSlots(t *testing.T) {
	fx := newGeneratorFixture(t)
	defer fx.cleanup()

	fx.overlaps.lessons = []models.Lesson{
		bookedLesson("busy", "t1", "other", nil,
			time.Date(2025, 9, 8, 9, 0, 0, 0, time.UTC), time.Date(2025, 9, 8, 10, 0, 0, 0, time.UTC)),
	}

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	result, err := fx.svc.GenerateFromTemplate(context.Background(),
		generateRequest([]dto.TemplateSlot{mondaySlot(9, 10)}, models.PolicySkip))
	require.NoError(t, err)
	require.Len(t, result.Booked, 1)
	assert.Equal(t, time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC), result.Booked[0].StartTime)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, 1, fx.metrics.booked)
	assert.Equal(t, 1, fx.metrics.conflicts)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestGenerateClearExistingRunsInsideTx(t *testing.T) {
	fx := newGeneratorFixture(t)
	defer fx.cleanup()

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	req := generateRequest([]dto.TemplateSlot{mondaySlot(9, 10)}, models.PolicyAbort)
	req.ClearExisting = true
	_, err := fx.svc.GenerateFromTemplate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 1, fx.ledger.clearedCalls)
	// Through end of the last day, half-open.
	assert.Equal(t, time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC), fx.ledger.clearedTo)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestGenerateMalformedRange(t *testing.T) {
	fx := newGeneratorFixture(t)
	defer fx.cleanup()

	req := generateRequest([]dto.TemplateSlot{mondaySlot(9, 10)}, models.PolicyAbort)
	req.RangeEnd = req.RangeStart.AddDate(0, 0, -1)
	_, err := fx.svc.GenerateFromTemplate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMalformedDateRange.Code, appErrors.FromError(err).Code)
}

func TestGenerateUnknownAcademicYear(t *testing.T) {
	fx := newGeneratorFixture(t)
	defer fx.cleanup()

	req := generateRequest([]dto.TemplateSlot{mondaySlot(9, 10)}, models.PolicyAbort)
	req.AcademicYearID = "ghost"
	_, err := fx.svc.GenerateFromTemplate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGenerateRerunReportsOneConflictPerOccurrence(t *testing.T) {
	fx := newGeneratorFixture(t)
	defer fx.cleanup()

	// A previous run booked the same Monday slot on both Mondays. Rerunning
	// the template books nothing and reports exactly one conflict per
	// occurrence, even though each pair clashes on teacher and group alike.
	fx.overlaps.lessons = []models.Lesson{
		bookedLesson("w1", "t1", "g1", nil,
			time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC), time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)),
		bookedLesson("w2", "t1", "g1", nil,
			time.Date(2025, 9, 8, 9, 0, 0, 0, time.UTC), time.Date(2025, 9, 8, 10, 0, 0, 0, time.UTC)),
	}

	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()

	_, err := fx.svc.GenerateFromTemplate(context.Background(),
		generateRequest([]dto.TemplateSlot{mondaySlot(9, 10)}, models.PolicyAbort))

	var conflictErr *models.ConflictError
	require.True(t, errors.As(err, &conflictErr))
	require.Len(t, conflictErr.Conflicts, 2)
	for _, c := range conflictErr.Conflicts {
		assert.Equal(t, models.DimensionTeacher, c.Dimension)
	}
	assert.Empty(t, fx.ledger.bulkCreated)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestGenerateResolvesYearByRangeStart(t *testing.T) {
	fx := newGeneratorFixture(t)
	defer fx.cleanup()

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	req := generateRequest([]dto.TemplateSlot{mondaySlot(9, 10)}, models.PolicyAbort)
	req.AcademicYearID = ""
	result, err := fx.svc.GenerateFromTemplate(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, result.Booked, 2)
}

func TestGenerateFailsWhenNoYearCoversRange(t *testing.T) {
	fx := newGeneratorFixture(t)
	defer fx.cleanup()

	req := generateRequest([]dto.TemplateSlot{mondaySlot(9, 10)}, models.PolicyAbort)
	req.AcademicYearID = ""
	req.RangeStart = time.Date(2030, 7, 1, 0, 0, 0, 0, time.UTC)
	req.RangeEnd = time.Date(2030, 7, 14, 0, 0, 0, 0, time.UTC)
	_, err := fx.svc.GenerateFromTemplate(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnprocessable.Code, appErrors.FromError(err).Code)
}

func TestGenerateHonoursCancellation(t *testing.T) {
	fx := newGeneratorFixture(t)
	defer fx.cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fx.svc.GenerateFromTemplate(ctx,
		generateRequest([]dto.TemplateSlot{mondaySlot(9, 10)}, models.PolicyAbort))
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fx.ledger.bulkCreated)
}

func TestGenerateDefaultsToAbortPolicy(t *testing.T) {
	fx := newGeneratorFixture(t)
	defer fx.cleanup()

	fx.overlaps.lessons = []models.Lesson{
		bookedLesson("busy", "t1", "other", nil,
			time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC), time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)),
	}

	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()

	req := generateRequest([]dto.TemplateSlot{mondaySlot(9, 10)}, "")
	_, err := fx.svc.GenerateFromTemplate(context.Background(), req)

	var conflictErr *models.ConflictError
	require.True(t, errors.As(err, &conflictErr))
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}
