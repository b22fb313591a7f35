package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduplat/timetable-api/internal/models"
)

func newCalendarRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCalendarRepositoryListStudyPeriodsByDate(t *testing.T) {
	db, mock, cleanup := newCalendarRepoMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	now := time.Now()
	date := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "academic_year_id", "name", "start_date", "end_date", "created_at", "updated_at"}).
		AddRow("p1", "y1", "Autumn term", time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC), now, now)

	mock.ExpectQuery(regexp.QuoteMeta("AND academic_year_id = $1 AND start_date <= $2 AND end_date >= $2")).
		WithArgs("y1", date).
		WillReturnRows(rows)

	periods, err := repo.ListStudyPeriods(context.Background(), models.StudyPeriodFilter{
		AcademicYearID: "y1",
		ContainsDate:   &date,
	})
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, "Autumn term", periods[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarRepositoryFindYearForUncoveredDate(t *testing.T) {
	db, mock, cleanup := newCalendarRepoMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	mock.ExpectQuery(`WHERE start_date <= \$1 AND end_date >= \$1`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "start_date", "end_date", "is_current", "created_at", "updated_at"}))

	year, err := repo.FindAcademicYearForDate(context.Background(), time.Date(2030, 7, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, year)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCalendarRepositoryFindStudyPeriodByID(t *testing.T) {
	db, mock, cleanup := newCalendarRepoMock(t)
	defer cleanup()
	repo := NewCalendarRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM study_periods WHERE id = $1")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "academic_year_id", "name", "start_date", "end_date", "created_at", "updated_at"}).
			AddRow("p1", "y1", "Autumn term", now, now.AddDate(0, 3, 0), now, now))

	period, err := repo.FindStudyPeriodByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "y1", period.AcademicYearID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
