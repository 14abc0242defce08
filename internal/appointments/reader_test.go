package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/internal/schedule"
)

func TestReader_ActiveAppointments(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	date := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "doctor_id", "start_time", "duration_minutes", "status"}).
		AddRow(int64(10), int64(7), "09:00", 30, "confirmada").
		AddRow(int64(11), int64(7), "10:00", 0, "pending").
		AddRow(int64(12), int64(7), "11:00", 60, "CANCELLED")
	mock.ExpectQuery("SELECT id, doctor_id").
		WithArgs(int64(7), "2025-01-06").
		WillReturnRows(rows)

	appts, err := NewReader(db).ActiveAppointments(context.Background(), 7, date)
	require.NoError(t, err)
	require.Len(t, appts, 2)

	assert.Equal(t, int64(10), appts[0].ID)
	assert.Equal(t, schedule.StatusConfirmed, appts[0].Status)
	assert.Equal(t, schedule.Interval{Start: schedule.At(9, 0), End: schedule.At(9, 30)}, appts[0].Interval)

	assert.Equal(t, schedule.StatusPending, appts[1].Status)
	assert.Equal(t, DefaultDurationMinutes, appts[1].Interval.Minutes(), "missing duration falls back to default")
	assert.Equal(t, date, appts[1].Date)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReader_ActiveAppointmentsQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id, doctor_id").WillReturnError(errors.New("connection reset"))

	_, err = NewReader(db).ActiveAppointments(context.Background(), 7, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "appointments: query active")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReader_ClampsAppointmentsPastMidnight(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	date := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "doctor_id", "start_time", "duration_minutes", "status"}).
		AddRow(int64(10), int64(7), "09:00", 30, "pending").
		AddRow(int64(11), int64(7), "23:45", 30, "confirmed")
	mock.ExpectQuery("SELECT id, doctor_id").
		WithArgs(int64(7), "2025-01-06").
		WillReturnRows(rows)

	appts, err := NewReader(db).ActiveAppointments(context.Background(), 7, date)
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, schedule.Interval{Start: schedule.At(23, 45), End: schedule.MinutesPerDay}, appts[1].Interval)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReader_RejectsMalformedStartTime(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "doctor_id", "start_time", "duration_minutes", "status"}).
		AddRow(int64(20), int64(7), "late", 30, "pending")
	mock.ExpectQuery("SELECT id, doctor_id").WillReturnRows(rows)

	_, err = NewReader(db).ActiveAppointments(context.Background(), 7, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, schedule.ErrInvalidInterval)
}

func TestReaderSatisfiesAppointmentSource(t *testing.T) {
	var _ schedule.AppointmentSource = (*Reader)(nil)
}
