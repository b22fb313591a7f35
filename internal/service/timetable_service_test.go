package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eduplat/timetable-api/internal/dto"
	"github.com/eduplat/timetable-api/internal/models"
	appErrors "github.com/eduplat/timetable-api/pkg/errors"
)

type fakeTimetableLedger struct {
	lessons []models.Lesson
	calls   int
}

func (f *fakeTimetableLedger) List(context.Context, models.LessonFilter) ([]models.Lesson, int, error) {
	f.calls++
	return f.lessons, len(f.lessons), nil
}

type fakeTimetableNames struct{}

func (fakeTimetableNames) ListSubjects(context.Context) ([]models.Subject, error) {
	return []models.Subject{{ID: "math", Name: "Mathematics"}}, nil
}

func (fakeTimetableNames) ListTeachers(context.Context, bool) ([]models.Teacher, error) {
	return []models.Teacher{{ID: "t1", FullName: "Ada Lovelace"}}, nil
}

func (fakeTimetableNames) ListClassrooms(context.Context) ([]models.Classroom, error) {
	return []models.Classroom{{ID: "r1", Identifier: "101"}}, nil
}

func (fakeTimetableNames) ListGroups(context.Context) ([]models.StudentGroup, error) {
	return []models.StudentGroup{{ID: "g1", Name: "9A"}}, nil
}

type fakeViewCache struct {
	data map[string][]byte
}

func (f *fakeViewCache) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := f.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeViewCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if f.data == nil {
		f.data = make(map[string][]byte)
	}
	f.data[key] = raw
	return nil
}

type fakeReadMetrics struct {
	hits    int
	misses  int
	queries []string
}

func (f *fakeReadMetrics) RecordCacheOperation(hit bool) {
	if hit {
		f.hits++
	} else {
		f.misses++
	}
}

func (f *fakeReadMetrics) ObserveDBQuery(label string, _ time.Duration) {
	f.queries = append(f.queries, label)
}

func timetableLesson() models.Lesson {
	room := "r1"
	return models.Lesson{
		ID:             "l1",
		StudyPeriodID:  "p1",
		StudentGroupID: "g1",
		SubjectID:      "math",
		TeacherID:      "t1",
		ClassroomID:    &room,
		LessonType:     models.LessonTypeLecture,
		StartTime:      time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC),
		EndTime:        time.Date(2025, 9, 1, 9, 45, 0, 0, time.UTC),
	}
}

func TestTimetableGetRequiresExactlyOneSubject(t *testing.T) {
	svc := NewTimetableService(&fakeTimetableLedger{}, fakeTimetableNames{}, nil, nil, TimetableConfig{}, zap.NewNop())

	_, err := svc.Get(context.Background(), dto.TimetableQuery{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Get(context.Background(), dto.TimetableQuery{StudentGroupID: "g1", TeacherID: "t1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableExportCSVRendersRows(t *testing.T) {
	ledger := &fakeTimetableLedger{lessons: []models.Lesson{timetableLesson()}}
	svc := NewTimetableService(ledger, fakeTimetableNames{}, nil, nil, TimetableConfig{}, zap.NewNop())

	out, err := svc.ExportCSV(context.Background(), dto.TimetableQuery{StudentGroupID: "g1"})
	require.NoError(t, err)

	assert.Equal(t,
		"Date,Start,End,Subject,Teacher,Group,Classroom,Type\n"+
			"2025-09-01,09:00,09:45,Mathematics,Ada Lovelace,9A,101,LECTURE\n",
		string(out))
}

func TestTimetableExportPDFProducesDocument(t *testing.T) {
	ledger := &fakeTimetableLedger{lessons: []models.Lesson{timetableLesson()}}
	svc := NewTimetableService(ledger, fakeTimetableNames{}, nil, nil, TimetableConfig{}, zap.NewNop())

	out, err := svc.ExportPDF(context.Background(), dto.TimetableQuery{StudentGroupID: "g1"})
	require.NoError(t, err)
	assert.True(t, len(out) > 0)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestTimetableGetCachesAssembledView(t *testing.T) {
	ledger := &fakeTimetableLedger{lessons: []models.Lesson{timetableLesson()}}
	metrics := &fakeReadMetrics{}
	svc := NewTimetableService(ledger, fakeTimetableNames{}, &fakeViewCache{}, metrics,
		TimetableConfig{CacheEnabled: true, CacheTTL: time.Minute}, zap.NewNop())

	q := dto.TimetableQuery{StudentGroupID: "g1"}
	first, err := svc.Get(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, first.Entries, 1)

	second, err := svc.Get(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, second.Entries, 1)

	assert.Equal(t, 1, ledger.calls)
	assert.Equal(t, 1, metrics.misses)
	assert.Equal(t, 1, metrics.hits)
}

func TestTimetableGetObservesLedgerTiming(t *testing.T) {
	ledger := &fakeTimetableLedger{lessons: []models.Lesson{timetableLesson()}}
	metrics := &fakeReadMetrics{}
	svc := NewTimetableService(ledger, fakeTimetableNames{}, nil, metrics, TimetableConfig{}, zap.NewNop())

	_, err := svc.Get(context.Background(), dto.TimetableQuery{TeacherID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"timetable_lessons"}, metrics.queries)
}

func TestTimetableGetRejectsInvertedWindow(t *testing.T) {
	svc := NewTimetableService(&fakeTimetableLedger{}, fakeTimetableNames{}, nil, nil, TimetableConfig{}, zap.NewNop())

	_, err := svc.Get(context.Background(), dto.TimetableQuery{
		StudentGroupID: "g1",
		From:           "2025-09-14",
		To:             "2025-09-01",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMalformedDateRange.Code, appErrors.FromError(err).Code)
}
