package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vctrubio/adrenalink-sub005/internal/models"
)

func newEventRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func eventRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "lesson_id", "booking_id", "teacher_id", "date", "duration", "location", "status", "students", "price_per_student", "commission_rate", "package_duration", "created_at", "updated_at"})
	for i, id := range ids {
		rows.AddRow(id, "l-"+id, "b-"+id, "t1", time.Date(2025, 1, 6, 9+i, 0, 0, 0, time.UTC), 60, "beach-north", "planned", []byte(`[]`), 50.0, 0.2, 60, time.Now(), time.Now())
	}
	return rows
}

func TestEventRepositoryListByTeacherAndDate(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE teacher_id = $1 AND date >= $2 AND date < $3 ORDER BY date ASC")).
		WithArgs("t1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(eventRows("e1", "e2"))

	events, err := repo.ListByTeacherAndDate(context.Background(), "t1", time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "e1", events[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryListTeachersForDate(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT teacher_id FROM events")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"teacher_id"}).AddRow("t1").AddRow("t2"))

	teachers, err := repo.ListTeachersForDate(context.Background(), time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2"}, teachers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = $1")).
		WithArgs("e1").
		WillReturnRows(eventRows("e1"))

	ev, err := repo.FindByID(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, "l-e1", ev.LessonID)

	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = $1")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.FindByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryObservesQueries(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()
	recorder := &instrumenterStub{}
	repo := NewEventRepository(db).WithMetrics(recorder)

	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE id = $1")).
		WithArgs("e1").
		WillReturnRows(eventRows("e1"))
	mock.ExpectExec("DELETE FROM events").
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := repo.FindByID(context.Background(), "e1")
	require.NoError(t, err)
	require.NoError(t, repo.Delete(context.Background(), "e1"))

	assert.Equal(t, []string{"events_find_by_id", "events_delete"}, recorder.queries)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec("INSERT INTO events").
		WillReturnResult(sqlmock.NewResult(1, 1))

	ev := &models.Event{LessonID: "l1", TeacherID: "t1", Date: time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC), Duration: 60, Status: models.EventStatusPlanned}
	require.NoError(t, repo.Create(context.Background(), ev))
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec("UPDATE events SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Event{ID: "ghost"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM events WHERE id = $1")).
		WithArgs("e1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "e1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryBulkRescheduleCommitsBatch(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE events SET date").
		WithArgs(sqlmock.AnyArg(), 60, sqlmock.AnyArg(), "e1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE events SET date").
		WithArgs(sqlmock.AnyArg(), 90, sqlmock.AnyArg(), "e2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updates := []models.Reschedule{
		{ID: "e1", NewDate: time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC), Duration: 60},
		{ID: "e2", NewDate: time.Date(2025, 1, 6, 11, 0, 0, 0, time.UTC), Duration: 90},
	}
	require.NoError(t, repo.BulkReschedule(context.Background(), updates))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryBulkRescheduleRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newEventRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE events SET date").
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	updates := []models.Reschedule{{ID: "e1", NewDate: time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC), Duration: 60}}
	assert.Error(t, repo.BulkReschedule(context.Background(), updates))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryBulkRescheduleEmptyBatch(t *testing.T) {
	db, _, cleanup := newEventRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	require.NoError(t, repo.BulkReschedule(context.Background(), nil))
}
