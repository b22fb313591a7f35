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

func newLessonRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func lessonRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "study_period_id", "student_group_id", "subject_id", "teacher_id", "classroom_id", "lesson_type", "start_time", "end_time", "curriculum_entry_id", "created_by", "created_at", "updated_at"}).
		AddRow("l1", "p1", "g1", "s1", "t1", "r1", models.LessonTypeLecture,
			time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC), time.Date(2025, 9, 1, 9, 45, 0, 0, time.UTC),
			nil, nil, now, now)
}

func TestLessonRepositoryList(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + lessonColumns + " FROM lessons WHERE 1=1 AND student_group_id = $1 ORDER BY start_time ASC LIMIT 50 OFFSET 0")).
		WithArgs("g1").
		WillReturnRows(lessonRows())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM lessons WHERE 1=1 AND student_group_id = $1")).
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.LessonFilter{StudentGroupID: "g1"})
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryListOverlapping(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("start_time < $1 AND end_time > $2")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(lessonRows())

	window := models.TimeInterval{
		Start: time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 9, 1, 18, 0, 0, 0, time.UTC),
	}
	lessons, err := repo.ListOverlapping(context.Background(), nil, window, []string{"t1"}, []string{"g1"}, nil)
	require.NoError(t, err)
	require.Len(t, lessons, 1)
	assert.Equal(t, "l1", lessons[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectExec("INSERT INTO lessons").
		WillReturnResult(sqlmock.NewResult(1, 1))

	lesson := &models.Lesson{
		StudyPeriodID:  "p1",
		StudentGroupID: "g1",
		SubjectID:      "s1",
		TeacherID:      "t1",
		LessonType:     models.LessonTypeLecture,
		StartTime:      time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC),
		EndTime:        time.Date(2025, 9, 1, 9, 45, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(context.Background(), nil, lesson))
	assert.NotEmpty(t, lesson.ID)
	assert.False(t, lesson.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryBulkCreateRequiresTx(t *testing.T) {
	db, _, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	err := repo.BulkCreate(context.Background(), nil, []models.Lesson{{}})
	require.Error(t, err)
}

func TestLessonRepositoryBulkCreateInTx(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO lessons").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO lessons").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	lessons := []models.Lesson{
		{StudyPeriodID: "p1", StudentGroupID: "g1", SubjectID: "s1", TeacherID: "t1", LessonType: models.LessonTypeLecture,
			StartTime: time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC), EndTime: time.Date(2025, 9, 1, 9, 45, 0, 0, time.UTC)},
		{StudyPeriodID: "p1", StudentGroupID: "g1", SubjectID: "s1", TeacherID: "t1", LessonType: models.LessonTypeLecture,
			StartTime: time.Date(2025, 9, 2, 9, 0, 0, 0, time.UTC), EndTime: time.Date(2025, 9, 2, 9, 45, 0, 0, time.UTC)},
	}
	require.NoError(t, repo.BulkCreate(context.Background(), tx, lessons))
	require.NoError(t, tx.Commit())

	assert.NotEmpty(t, lessons[0].ID)
	assert.NotEqual(t, lessons[0].ID, lessons[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryDeleteForGroupRange(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectExec("DELETE FROM lessons USING study_periods").
		WithArgs("y1", "g1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 12))

	affected, err := repo.DeleteForGroupRange(context.Background(), nil, "g1", "y1",
		time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(12), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}
