package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eduplat/timetable-api/internal/dto"
	"github.com/eduplat/timetable-api/internal/models"
	appErrors "github.com/eduplat/timetable-api/pkg/errors"
	"github.com/eduplat/timetable-api/pkg/export"
)

// timetableCachePattern matches every cached timetable payload. Booking
// mutations wipe the whole namespace rather than tracking which views a
// lesson appears in.
const timetableCachePattern = "timetable:*"

// TimetableLister reads the ledger for timetable assembly.
type TimetableLister interface {
	List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, int, error)
}

// TimetableCatalog provides the name lookups timetable rows display.
type TimetableCatalog interface {
	ListSubjects(ctx context.Context) ([]models.Subject, error)
	ListTeachers(ctx context.Context, activeOnly bool) ([]models.Teacher, error)
	ListClassrooms(ctx context.Context) ([]models.Classroom, error)
	ListGroups(ctx context.Context) ([]models.StudentGroup, error)
}

// TimetableCache is the payload cache used behind reads.
type TimetableCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CacheRecorder tracks cache outcomes and query timings on the read path.
type CacheRecorder interface {
	RecordCacheOperation(hit bool)
	ObserveDBQuery(label string, duration time.Duration)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// TimetableConfig tunes timetable caching.
type TimetableConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// TimetableService assembles read-only timetable views for a group or a
// teacher and renders them as CSV or PDF.
type TimetableService struct {
	ledger  TimetableLister
	catalog TimetableCatalog
	cache   TimetableCache
	metrics CacheRecorder
	csv     csvRenderer
	pdf     pdfRenderer
	cfg     TimetableConfig
	logger  *zap.Logger
}

// NewTimetableService wires the timetable reader.
func NewTimetableService(ledger TimetableLister, catalog TimetableCatalog, cache TimetableCache, metrics CacheRecorder, cfg TimetableConfig, logger *zap.Logger) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &TimetableService{
		ledger:  ledger,
		catalog: catalog,
		cache:   cache,
		metrics: metrics,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		cfg:     cfg,
		logger:  logger,
	}
}

// Get returns the timetable for one group or one teacher, optionally
// windowed by date. Exactly one of the two subject filters must be set.
func (s *TimetableService) Get(ctx context.Context, q dto.TimetableQuery) (*dto.TimetableView, error) {
	if (q.StudentGroupID == "") == (q.TeacherID == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exactly one of groupId or teacherId is required")
	}

	filter := models.LessonFilter{
		StudentGroupID: q.StudentGroupID,
		TeacherID:      q.TeacherID,
		SortBy:         "start_time",
		SortOrder:      "ASC",
		PageSize:       500,
	}
	if q.From != "" {
		from, err := time.Parse("2006-01-02", q.From)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrMalformedDateRange, fmt.Sprintf("invalid from date %q", q.From))
		}
		filter.From = &from
	}
	if q.To != "" {
		to, err := time.Parse("2006-01-02", q.To)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrMalformedDateRange, fmt.Sprintf("invalid to date %q", q.To))
		}
		end := to.AddDate(0, 0, 1)
		filter.To = &end
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, appErrors.Clone(appErrors.ErrMalformedDateRange, "to date precedes from date")
	}

	key := fmt.Sprintf("timetable:g=%s:t=%s:%s:%s", q.StudentGroupID, q.TeacherID, q.From, q.To)
	if s.cacheable() {
		var cached dto.TimetableView
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.recordCache(true)
			return &cached, nil
		}
		s.recordCache(false)
	}

	view, err := s.assemble(ctx, q, filter)
	if err != nil {
		return nil, err
	}

	if s.cacheable() {
		if err := s.cache.Set(ctx, key, view, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("timetable cache write failed", zap.Error(err))
		}
	}
	return view, nil
}

// ExportCSV renders the timetable as CSV.
func (s *TimetableService) ExportCSV(ctx context.Context, q dto.TimetableQuery) ([]byte, error) {
	view, err := s.Get(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.csv.Render(timetableDataset(view))
}

// ExportPDF renders the timetable as a landscape PDF table.
func (s *TimetableService) ExportPDF(ctx context.Context, q dto.TimetableQuery) ([]byte, error) {
	view, err := s.Get(ctx, q)
	if err != nil {
		return nil, err
	}
	title := "Timetable"
	if view.GroupID != "" {
		title = fmt.Sprintf("Timetable for group %s", view.GroupID)
	} else if view.TeacherID != "" {
		title = fmt.Sprintf("Timetable for teacher %s", view.TeacherID)
	}
	return s.pdf.Render(timetableDataset(view), title)
}

func (s *TimetableService) assemble(ctx context.Context, q dto.TimetableQuery, filter models.LessonFilter) (*dto.TimetableView, error) {
	started := time.Now()
	lessons, _, err := s.ledger.List(ctx, filter)
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("timetable_lessons", time.Since(started))
	}
	if err != nil {
		return nil, err
	}

	subjects, err := s.catalog.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}
	teachers, err := s.catalog.ListTeachers(ctx, false)
	if err != nil {
		return nil, err
	}
	classrooms, err := s.catalog.ListClassrooms(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.catalog.ListGroups(ctx)
	if err != nil {
		return nil, err
	}

	subjectNames := make(map[string]string, len(subjects))
	for _, sub := range subjects {
		subjectNames[sub.ID] = sub.Name
	}
	teacherNames := make(map[string]string, len(teachers))
	for _, t := range teachers {
		teacherNames[t.ID] = t.FullName
	}
	classroomNames := make(map[string]string, len(classrooms))
	for _, c := range classrooms {
		classroomNames[c.ID] = c.Identifier
	}
	groupNames := make(map[string]string, len(groups))
	for _, g := range groups {
		groupNames[g.ID] = g.Name
	}

	entries := make([]dto.TimetableEntry, 0, len(lessons))
	for _, lesson := range lessons {
		entry := dto.TimetableEntry{
			LessonID:   lesson.ID,
			Date:       lesson.StartTime.Format("2006-01-02"),
			StartTime:  lesson.StartTime,
			EndTime:    lesson.EndTime,
			Subject:    subjectNames[lesson.SubjectID],
			Teacher:    teacherNames[lesson.TeacherID],
			Group:      groupNames[lesson.StudentGroupID],
			LessonType: string(lesson.LessonType),
		}
		if lesson.ClassroomID != nil {
			entry.Classroom = classroomNames[*lesson.ClassroomID]
		}
		entries = append(entries, entry)
	}

	return &dto.TimetableView{
		GroupID:     q.StudentGroupID,
		TeacherID:   q.TeacherID,
		From:        q.From,
		To:          q.To,
		Entries:     entries,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func (s *TimetableService) cacheable() bool {
	return s.cfg.CacheEnabled && s.cache != nil
}

func (s *TimetableService) recordCache(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit)
	}
}

func timetableDataset(view *dto.TimetableView) export.Dataset {
	rows := make([]map[string]string, 0, len(view.Entries))
	for _, e := range view.Entries {
		rows = append(rows, map[string]string{
			"Date":      e.Date,
			"Start":     e.StartTime.Format("15:04"),
			"End":       e.EndTime.Format("15:04"),
			"Subject":   e.Subject,
			"Teacher":   e.Teacher,
			"Group":     e.Group,
			"Classroom": e.Classroom,
			"Type":      e.LessonType,
		})
	}
	return export.Dataset{
		Headers: []string{"Date", "Start", "End", "Subject", "Teacher", "Group", "Classroom", "Type"},
		Rows:    rows,
	}
}
