package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/eduplat/timetable-api/internal/models"
)

// CalendarRepository reads academic years and study periods. The study
// period table drives date resolution during schedule generation.
type CalendarRepository struct {
	db *sqlx.DB
}

// NewCalendarRepository creates a new calendar repository.
func NewCalendarRepository(db *sqlx.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// ListAcademicYears returns all academic years, newest first.
func (r *CalendarRepository) ListAcademicYears(ctx context.Context) ([]models.AcademicYear, error) {
	var years []models.AcademicYear
	err := r.db.SelectContext(ctx, &years,
		`SELECT id, name, start_date, end_date, is_current, created_at, updated_at FROM academic_years ORDER BY start_date DESC`)
	if err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

// FindAcademicYearByID loads one academic year.
func (r *CalendarRepository) FindAcademicYearByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	var year models.AcademicYear
	err := r.db.GetContext(ctx, &year,
		`SELECT id, name, start_date, end_date, is_current, created_at, updated_at FROM academic_years WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &year, nil
}

// FindAcademicYearForDate returns the year whose bounds contain the date, or
// nil when none does. When years overlap, the latest-starting one wins.
func (r *CalendarRepository) FindAcademicYearForDate(ctx context.Context, date time.Time) (*models.AcademicYear, error) {
	var year models.AcademicYear
	err := r.db.GetContext(ctx, &year,
		`SELECT id, name, start_date, end_date, is_current, created_at, updated_at FROM academic_years WHERE start_date <= $1 AND end_date >= $1 ORDER BY start_date DESC LIMIT 1`, date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find academic year for date: %w", err)
	}
	return &year, nil
}

// ListStudyPeriods returns study periods matching the filter, ordered by
// start date so that first-match date resolution is deterministic.
func (r *CalendarRepository) ListStudyPeriods(ctx context.Context, filter models.StudyPeriodFilter) ([]models.StudyPeriod, error) {
	query := `SELECT id, academic_year_id, name, start_date, end_date, created_at, updated_at FROM study_periods WHERE 1=1`
	var args []interface{}

	if filter.AcademicYearID != "" {
		args = append(args, filter.AcademicYearID)
		query += fmt.Sprintf(" AND academic_year_id = $%d", len(args))
	}
	if filter.ContainsDate != nil {
		args = append(args, *filter.ContainsDate)
		query += fmt.Sprintf(" AND start_date <= $%d AND end_date >= $%d", len(args), len(args))
	}
	query += " ORDER BY start_date ASC, id ASC"

	var periods []models.StudyPeriod
	if err := r.db.SelectContext(ctx, &periods, query, args...); err != nil {
		return nil, fmt.Errorf("list study periods: %w", err)
	}
	return periods, nil
}

// FindStudyPeriodByID loads one study period.
func (r *CalendarRepository) FindStudyPeriodByID(ctx context.Context, id string) (*models.StudyPeriod, error) {
	var period models.StudyPeriod
	err := r.db.GetContext(ctx, &period,
		`SELECT id, academic_year_id, name, start_date, end_date, created_at, updated_at FROM study_periods WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return &period, nil
}
