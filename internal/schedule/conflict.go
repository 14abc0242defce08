package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// AppointmentStatus is the lifecycle state of a booked appointment.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// ParseAppointmentStatus normalises stored status labels, including the Spanish
// values written by the clinic front-end.
func ParseAppointmentStatus(raw string) AppointmentStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pendiente", "pending":
		return StatusPending
	case "confirmada", "confirmed":
		return StatusConfirmed
	case "completada", "completed":
		return StatusCompleted
	case "cancelada", "cancelled", "canceled":
		return StatusCancelled
	default:
		return AppointmentStatus(strings.ToLower(strings.TrimSpace(raw)))
	}
}

// Blocking reports whether the appointment still occupies its time.
func (s AppointmentStatus) Blocking() bool {
	return s != StatusCancelled
}

// Appointment is a booked visit. The scheduling engine only reads them.
type Appointment struct {
	ID       int64             `json:"id"`
	DoctorID int64             `json:"doctor_id"`
	Date     time.Time         `json:"date"`
	Interval Interval          `json:"interval"`
	Status   AppointmentStatus `json:"status"`
}

// AppointmentSource lists the appointments booked for a doctor on a date.
type AppointmentSource interface {
	ActiveAppointments(ctx context.Context, doctorID int64, date time.Time) ([]Appointment, error)
}

// ConflictReason explains why a proposed appointment does not fit.
type ConflictReason string

const (
	ReasonNone                ConflictReason = "none"
	ReasonOutsideWorkingHours ConflictReason = "outside_working_hours"
	ReasonAppointmentOverlap  ConflictReason = "appointment_overlap"
)

// FitResult is the outcome of a fit check. A conflict is a value, not an error.
type FitResult struct {
	OK          bool           `json:"ok"`
	Reason      ConflictReason `json:"reason"`
	Conflicting *Appointment   `json:"conflicting_appointment,omitempty"`
}

type fitOptions struct {
	excludeID int64
}

// FitOption adjusts a fit check.
type FitOption func(*fitOptions)

// ExcludingAppointment ignores the given appointment, used when rescheduling it.
func ExcludingAppointment(id int64) FitOption {
	return func(o *fitOptions) {
		o.excludeID = id
	}
}

type dayEntriesLoader interface {
	LoadDayEntries(ctx context.Context, doctorID int64, day DayOfWeek) ([]WorkingHoursEntry, error)
}

// ConflictChecker decides whether an appointment fits a doctor's day.
type ConflictChecker struct {
	hours        dayEntriesLoader
	appointments AppointmentSource
}

func NewConflictChecker(hours dayEntriesLoader, appointments AppointmentSource) *ConflictChecker {
	if hours == nil || appointments == nil {
		panic("schedule: working hours and appointment source required")
	}
	return &ConflictChecker{hours: hours, appointments: appointments}
}

// CheckFits checks working-hours containment first, then appointment overlap.
func (c *ConflictChecker) CheckFits(ctx context.Context, doctorID int64, date time.Time, iv Interval, opts ...FitOption) (FitResult, error) {
	if err := iv.Validate(); err != nil {
		return FitResult{}, err
	}
	var o fitOptions
	for _, opt := range opts {
		opt(&o)
	}

	blocks, err := c.hours.LoadDayEntries(ctx, doctorID, DayOfWeekOf(date))
	if err != nil {
		return FitResult{}, fmt.Errorf("schedule: load working hours: %w", err)
	}
	if !withinAnyBlock(blocks, iv) {
		return FitResult{Reason: ReasonOutsideWorkingHours}, nil
	}

	active, err := c.activeAppointments(ctx, doctorID, date, o.excludeID)
	if err != nil {
		return FitResult{}, err
	}
	for i := range active {
		if Overlaps(active[i].Interval, iv) {
			appt := active[i]
			return FitResult{Reason: ReasonAppointmentOverlap, Conflicting: &appt}, nil
		}
	}
	return FitResult{OK: true, Reason: ReasonNone}, nil
}

// activeAppointments drops cancelled appointments and the excluded id.
func (c *ConflictChecker) activeAppointments(ctx context.Context, doctorID int64, date time.Time, excludeID int64) ([]Appointment, error) {
	appts, err := c.appointments.ActiveAppointments(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("schedule: load appointments: %w", err)
	}
	active := appts[:0:0]
	for _, appt := range appts {
		if !appt.Status.Blocking() {
			continue
		}
		if excludeID != 0 && appt.ID == excludeID {
			continue
		}
		active = append(active, appt)
	}
	return active, nil
}

func withinAnyBlock(blocks []WorkingHoursEntry, iv Interval) bool {
	for _, block := range blocks {
		if Contains(block.Interval, iv) {
			return true
		}
	}
	return false
}
