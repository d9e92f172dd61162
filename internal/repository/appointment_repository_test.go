package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/caldate"
)

var appointmentRowColumns = []string{"id", "resource_id", "client_id", "date", "start_time", "end_time", "title", "client_name", "color_tag", "notes", "created_at", "updated_at"}

func TestAppointmentRepositoryListByWindow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(appointmentRowColumns).
		AddRow(int64(7), int64(2), nil, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), "09:00:00", "10:30:00", "Haircut", "Dana", "blue", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, resource_id, client_id, date, start_time, end_time, title, client_name, color_tag, notes, created_at, updated_at FROM appointments WHERE 1=1 AND resource_id = ANY($1) AND date >= $2 AND date <= $3 ORDER BY date ASC, start_time ASC, resource_id ASC, id ASC")).
		WithArgs(sqlmock.AnyArg(), "2024-05-06", "2024-05-12").
		WillReturnRows(rows)

	from, to := caldate.MustParse("2024-05-06"), caldate.MustParse("2024-05-12")
	appts, err := repo.List(context.Background(), models.AppointmentFilter{ResourceIDs: []int64{2}, From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "2024-05-06", appts[0].Date.String())
	assert.Equal(t, "10:30", appts[0].EndTime.String())
	require.NotNil(t, appts[0].ColorTag)
	assert.Equal(t, "blue", *appts[0].ColorTag)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCreateReturnsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO appointments")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(41)))

	appt := &models.Appointment{
		ResourceID: 1,
		Date:       caldate.MustParse("2024-05-06"),
		StartTime:  caldate.MustParseClock("09:00"),
		EndTime:    caldate.MustParseClock("09:30"),
		Title:      "Check-up",
	}
	require.NoError(t, repo.Create(context.Background(), appt))
	assert.Equal(t, int64(41), appt.ID)
	assert.False(t, appt.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCreateManyRollsBack(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO appointments")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO appointments")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	appts := []models.Appointment{
		{ResourceID: 1, Date: caldate.MustParse("2024-05-06"), StartTime: caldate.MustParseClock("09:00"), EndTime: caldate.MustParseClock("10:00"), Title: "A"},
		{ResourceID: 1, Date: caldate.MustParse("2024-05-13"), StartTime: caldate.MustParseClock("09:00"), EndTime: caldate.MustParseClock("10:00"), Title: "A"},
	}
	err := repo.CreateMany(context.Background(), appts)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM appointments WHERE id = $1")).
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 9)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAppointmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE appointments SET resource_id = ")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	appt := &models.Appointment{ID: 3, ResourceID: 1, Date: caldate.MustParse("2024-05-06"), StartTime: caldate.MustParseClock("11:00"), EndTime: caldate.MustParseClock("12:00"), Title: "Moved"}
	require.NoError(t, repo.Update(context.Background(), appt))
	assert.NoError(t, mock.ExpectationsWereMet())
}
