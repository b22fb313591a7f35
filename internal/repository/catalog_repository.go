package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/eduplat/timetable-api/internal/models"
)

// CatalogRepository reads the resource directory: subjects, classrooms,
// groups, and teachers. The scheduling engine never writes these tables;
// they are maintained by the upstream administration system.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new catalog repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListSubjects returns all subjects ordered by name.
func (r *CatalogRepository) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	var subjects []models.Subject
	err := r.db.SelectContext(ctx, &subjects,
		`SELECT id, name, code, description, created_at, updated_at FROM subjects ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindSubjectByID loads one subject.
func (r *CatalogRepository) FindSubjectByID(ctx context.Context, id string) (*models.Subject, error) {
	var subject models.Subject
	err := r.db.GetContext(ctx, &subject,
		`SELECT id, name, code, description, created_at, updated_at FROM subjects WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

// ListClassrooms returns all classrooms ordered by identifier.
func (r *CatalogRepository) ListClassrooms(ctx context.Context) ([]models.Classroom, error) {
	var classrooms []models.Classroom
	err := r.db.SelectContext(ctx, &classrooms,
		`SELECT id, identifier, capacity, type, notes, created_at, updated_at FROM classrooms ORDER BY identifier ASC`)
	if err != nil {
		return nil, fmt.Errorf("list classrooms: %w", err)
	}
	return classrooms, nil
}

// FindClassroomByID loads one classroom.
func (r *CatalogRepository) FindClassroomByID(ctx context.Context, id string) (*models.Classroom, error) {
	var classroom models.Classroom
	err := r.db.GetContext(ctx, &classroom,
		`SELECT id, identifier, capacity, type, notes, created_at, updated_at FROM classrooms WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &classroom, nil
}

// ListGroups returns all student groups with their resolved member counts.
func (r *CatalogRepository) ListGroups(ctx context.Context) ([]models.StudentGroup, error) {
	var groups []models.StudentGroup
	err := r.db.SelectContext(ctx, &groups,
		`SELECT g.id, g.name, g.academic_year_id, g.curator_id,
		        COALESCE(m.cnt, 0) AS member_count,
		        g.created_at, g.updated_at
		 FROM student_groups g
		 LEFT JOIN (SELECT student_group_id, COUNT(*) AS cnt FROM group_memberships GROUP BY student_group_id) m
		   ON m.student_group_id = g.id
		 ORDER BY g.name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// FindGroupByID loads one group including its member count. A count of zero
// means membership is unresolved and size checks do not apply.
func (r *CatalogRepository) FindGroupByID(ctx context.Context, id string) (*models.StudentGroup, error) {
	var group models.StudentGroup
	err := r.db.GetContext(ctx, &group,
		`SELECT g.id, g.name, g.academic_year_id, g.curator_id,
		        COALESCE(m.cnt, 0) AS member_count,
		        g.created_at, g.updated_at
		 FROM student_groups g
		 LEFT JOIN (SELECT student_group_id, COUNT(*) AS cnt FROM group_memberships GROUP BY student_group_id) m
		   ON m.student_group_id = g.id
		 WHERE g.id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// ListGroupIDsForYear returns every group id attached to an academic year.
// The seed job iterates these.
func (r *CatalogRepository) ListGroupIDsForYear(ctx context.Context, academicYearID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		`SELECT id FROM student_groups WHERE academic_year_id = $1 ORDER BY name ASC`, academicYearID)
	if err != nil {
		return nil, fmt.Errorf("list group ids for year: %w", err)
	}
	return ids, nil
}

// ListTeachers returns teachers, optionally only active ones.
func (r *CatalogRepository) ListTeachers(ctx context.Context, activeOnly bool) ([]models.Teacher, error) {
	query := `SELECT id, full_name, email, active, created_at, updated_at FROM teachers`
	if activeOnly {
		query += ` WHERE active = true`
	}
	query += ` ORDER BY full_name ASC`

	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	return teachers, nil
}

// FindTeacherByID loads one teacher.
func (r *CatalogRepository) FindTeacherByID(ctx context.Context, id string) (*models.Teacher, error) {
	var teacher models.Teacher
	err := r.db.GetContext(ctx, &teacher,
		`SELECT id, full_name, email, active, created_at, updated_at FROM teachers WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &teacher, nil
}

// ResolveExisting partitions ids into those present in the given catalog
// table and those missing. Validation reports each missing id separately.
func (r *CatalogRepository) ResolveExisting(ctx context.Context, table string, ids []string) (map[string]bool, error) {
	found := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	switch table {
	case "subjects", "classrooms", "teachers", "student_groups":
	default:
		return nil, fmt.Errorf("resolve existing: unknown catalog table %q", table)
	}
	query := fmt.Sprintf(`SELECT id FROM %s WHERE id = ANY($1)`, table)
	var present []string
	if err := r.db.SelectContext(ctx, &present, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("resolve existing %s: %w", table, err)
	}
	for _, id := range present {
		found[id] = true
	}
	return found, nil
}
