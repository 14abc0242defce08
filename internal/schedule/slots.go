package schedule

import (
	"context"
	"fmt"
	"time"
)

// SlotRequest asks for the bookable starts of a given length on one date.
type SlotRequest struct {
	DoctorID        int64
	Date            time.Time
	DurationMinutes int
}

func (r SlotRequest) validate() error {
	if r.DurationMinutes <= 0 || r.DurationMinutes > MinutesPerDay {
		return fmt.Errorf("%w: %d", ErrInvalidDuration, r.DurationMinutes)
	}
	return nil
}

// SlotGenerator walks each working block on a fixed grid anchored at the
// block start and drops candidates that collide with an active appointment.
type SlotGenerator struct {
	hours   dayEntriesLoader
	checker *ConflictChecker
}

func NewSlotGenerator(hours dayEntriesLoader, checker *ConflictChecker) *SlotGenerator {
	if hours == nil || checker == nil {
		panic("schedule: working hours and conflict checker required")
	}
	return &SlotGenerator{hours: hours, checker: checker}
}

// Generate returns the slot start times in ascending order.
func (g *SlotGenerator) Generate(ctx context.Context, req SlotRequest) ([]TimeOfDay, error) {
	slots, err := g.GenerateIntervals(ctx, req)
	if err != nil {
		return nil, err
	}
	starts := make([]TimeOfDay, len(slots))
	for i, slot := range slots {
		starts[i] = slot.Start
	}
	return starts, nil
}

// GenerateIntervals is Generate with each slot's end included.
func (g *SlotGenerator) GenerateIntervals(ctx context.Context, req SlotRequest) ([]Interval, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	blocks, err := g.hours.LoadDayEntries(ctx, req.DoctorID, DayOfWeekOf(req.Date))
	if err != nil {
		return nil, fmt.Errorf("schedule: load working hours: %w", err)
	}
	if len(blocks) == 0 {
		return []Interval{}, nil
	}
	SortEntries(blocks)

	appts, err := g.checker.activeAppointments(ctx, req.DoctorID, req.Date, 0)
	if err != nil {
		return nil, err
	}
	busy := make([]Interval, len(appts))
	for i, appt := range appts {
		busy[i] = appt.Interval
	}
	return gridSlots(blocks, busy, req.DurationMinutes), nil
}

func gridSlots(blocks []WorkingHoursEntry, busy []Interval, duration int) []Interval {
	slots := []Interval{}
	for _, block := range blocks {
		for t := block.Start; duration <= int(block.End-t); t = t.Add(duration) {
			candidate := Interval{Start: t, End: t.Add(duration)}
			if collides(candidate, busy) {
				continue
			}
			slots = append(slots, candidate)
		}
	}
	return slots
}

func collides(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(candidate, b) {
			return true
		}
	}
	return false
}
