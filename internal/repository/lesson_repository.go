package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/eduplat/timetable-api/internal/models"
)

const lessonColumns = "id, study_period_id, student_group_id, subject_id, teacher_id, classroom_id, lesson_type, start_time, end_time, curriculum_entry_id, created_by, created_at, updated_at"

// LessonRepository is the booking ledger: the authoritative store of
// committed lessons. Conflict-relevant methods accept an sqlx.ExtContext so
// the detect-then-commit pair for a batch can share one transaction.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new lesson repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// BeginTxx starts a transaction, satisfying the services' tx provider
// interface.
func (r *LessonRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// List returns booked lessons with optional filtering and pagination.
func (r *LessonRepository) List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, int, error) {
	base := "FROM lessons WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.StudyPeriodID != "" {
		conditions = append(conditions, fmt.Sprintf("study_period_id = $%d", len(args)+1))
		args = append(args, filter.StudyPeriodID)
	}
	if filter.StudentGroupID != "" {
		conditions = append(conditions, fmt.Sprintf("student_group_id = $%d", len(args)+1))
		args = append(args, filter.StudentGroupID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.ClassroomID != "" {
		conditions = append(conditions, fmt.Sprintf("classroom_id = $%d", len(args)+1))
		args = append(args, filter.ClassroomID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("end_time > $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("start_time < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"start_time": true,
		"end_time":   true,
		"created_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "start_time"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", lessonColumns, base, sortBy, order, size, offset)
	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list lessons: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count lessons: %w", err)
	}

	return lessons, total, nil
}

// FindByID loads a booked lesson by id.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := fmt.Sprintf("SELECT %s FROM lessons WHERE id = $1", lessonColumns)
	var lesson models.Lesson
	if err := r.db.GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// ListOverlapping returns every booked lesson whose interval overlaps the
// window (half-open rule) and whose teacher, group, or classroom appears in
// the given id sets. One range query feeds the whole batch detection pass.
func (r *LessonRepository) ListOverlapping(ctx context.Context, exec sqlx.ExtContext, window models.TimeInterval, teacherIDs, groupIDs, classroomIDs []string) ([]models.Lesson, error) {
	if exec == nil {
		exec = r.db
	}
	query := fmt.Sprintf(`SELECT %s FROM lessons
		WHERE start_time < $1 AND end_time > $2
		  AND (teacher_id = ANY($3) OR student_group_id = ANY($4) OR classroom_id = ANY($5))
		ORDER BY start_time ASC`, lessonColumns)

	var lessons []models.Lesson
	err := sqlx.SelectContext(ctx, exec, &lessons, query,
		window.End, window.Start,
		pq.Array(emptyToNil(teacherIDs)), pq.Array(emptyToNil(groupIDs)), pq.Array(emptyToNil(classroomIDs)))
	if err != nil {
		return nil, fmt.Errorf("list overlapping lessons: %w", err)
	}
	return lessons, nil
}

// Create books a single validated lesson.
func (r *LessonRepository) Create(ctx context.Context, exec sqlx.ExtContext, lesson *models.Lesson) error {
	if exec == nil {
		exec = r.db
	}
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now

	const query = `INSERT INTO lessons (id, study_period_id, student_group_id, subject_id, teacher_id, classroom_id, lesson_type, start_time, end_time, curriculum_entry_id, created_by, created_at, updated_at) VALUES (:id, :study_period_id, :student_group_id, :subject_id, :teacher_id, :classroom_id, :lesson_type, :start_time, :end_time, :curriculum_entry_id, :created_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, lesson); err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

// BulkCreate books a batch of validated lessons inside the caller's
// transaction. The batch is all-or-nothing: any insert failure rolls the
// caller's transaction back.
func (r *LessonRepository) BulkCreate(ctx context.Context, exec sqlx.ExtContext, lessons []models.Lesson) error {
	if exec == nil {
		return fmt.Errorf("bulk create requires a transaction")
	}
	now := time.Now().UTC()
	for i := range lessons {
		payload := lessons[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now

		if _, err := sqlx.NamedExecContext(ctx, exec, `INSERT INTO lessons (id, study_period_id, student_group_id, subject_id, teacher_id, classroom_id, lesson_type, start_time, end_time, curriculum_entry_id, created_by, created_at, updated_at) VALUES (:id, :study_period_id, :student_group_id, :subject_id, :teacher_id, :classroom_id, :lesson_type, :start_time, :end_time, :curriculum_entry_id, :created_by, :created_at, :updated_at)`, &payload); err != nil {
			return fmt.Errorf("bulk insert lesson: %w", err)
		}
		lessons[i] = payload
	}
	return nil
}

// Update replaces a booking's fields after re-validation.
func (r *LessonRepository) Update(ctx context.Context, exec sqlx.ExtContext, lesson *models.Lesson) error {
	if exec == nil {
		exec = r.db
	}
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lessons SET study_period_id = :study_period_id, student_group_id = :student_group_id, subject_id = :subject_id, teacher_id = :teacher_id, classroom_id = :classroom_id, lesson_type = :lesson_type, start_time = :start_time, end_time = :end_time, curriculum_entry_id = :curriculum_entry_id, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, lesson); err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	return nil
}

// Delete retracts a booking.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return nil
}

// DeleteForGroupRange removes a group's lessons that touch the given date
// window within one academic year. Explicit opt-in wipe used by regeneration.
func (r *LessonRepository) DeleteForGroupRange(ctx context.Context, exec sqlx.ExtContext, groupID, academicYearID string, from, to time.Time) (int64, error) {
	if exec == nil {
		exec = r.db
	}
	const query = `DELETE FROM lessons USING study_periods
		WHERE lessons.study_period_id = study_periods.id
		  AND study_periods.academic_year_id = $1
		  AND lessons.student_group_id = $2
		  AND lessons.start_time < $3
		  AND lessons.end_time > $4`
	result, err := exec.ExecContext(ctx, query, academicYearID, groupID, to, from)
	if err != nil {
		return 0, fmt.Errorf("clear lessons for group range: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("clear lessons rows affected: %w", err)
	}
	return affected, nil
}

// Postgres treats "= ANY(NULL)" as false, which is exactly what an absent
// dimension filter needs.
func emptyToNil(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	return ids
}
