// Package appointments reads booked appointments for availability checks.
// Appointment CRUD lives outside this service; rows are only read here.
package appointments

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/EquipoUptamca/EquipoUptamca-Proyecto-Clinica/internal/schedule"
)

// DefaultDurationMinutes applies to rows booked without an explicit duration.
const DefaultDurationMinutes = 30

// Reader implements schedule.AppointmentSource over the appointments table.
type Reader struct {
	db *sql.DB
}

func NewReader(db *sql.DB) *Reader {
	if db == nil {
		panic("appointments: sql db required")
	}
	return &Reader{db: db}
}

// ActiveAppointments returns the doctor's non-cancelled appointments on date, ordered by start.
func (r *Reader) ActiveAppointments(ctx context.Context, doctorID int64, date time.Time) ([]schedule.Appointment, error) {
	query := `
		SELECT id, doctor_id, to_char(start_time, 'HH24:MI'), COALESCE(duration_minutes, 0), status
		FROM appointments
		WHERE doctor_id = $1
		  AND appointment_date = $2
		  AND status NOT IN ('cancelled', 'canceled', 'cancelada')
		ORDER BY start_time
	`
	rows, err := r.db.QueryContext(ctx, query, doctorID, date.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("appointments: query active: %w", err)
	}
	defer rows.Close()

	var out []schedule.Appointment
	for rows.Next() {
		var (
			appt     schedule.Appointment
			start    string
			duration int
			status   string
		)
		if err := rows.Scan(&appt.ID, &appt.DoctorID, &start, &duration, &status); err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		iv, err := toInterval(start, duration)
		if err != nil {
			return nil, fmt.Errorf("appointments: appointment %d: %w", appt.ID, err)
		}
		appt.Date = date
		appt.Interval = iv
		appt.Status = schedule.ParseAppointmentStatus(status)
		if !appt.Status.Blocking() {
			continue
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate: %w", err)
	}
	return out, nil
}

// toInterval clamps a booking that runs past midnight to the end of its date.
func toInterval(start string, duration int) (schedule.Interval, error) {
	if duration <= 0 {
		duration = DefaultDurationMinutes
	}
	t, err := schedule.ParseTimeOfDay(start)
	if err != nil {
		return schedule.Interval{}, err
	}
	if duration > int(schedule.MinutesPerDay-t) {
		return schedule.NewInterval(t, schedule.MinutesPerDay)
	}
	return schedule.IntervalFrom(t, duration)
}
