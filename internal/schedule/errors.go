package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInterval is returned for malformed start/end bounds.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrInvalidDuration is returned when a slot or appointment duration is not positive.
	ErrInvalidDuration = fmt.Errorf("%w: duration must be between 1 and 1440 minutes", ErrInvalidInterval)

	// ErrInvalidDay is returned when a day of week is outside 1..7.
	ErrInvalidDay = errors.New("invalid day of week")

	// ErrOverlap is returned when working hours collide with an existing entry.
	ErrOverlap = errors.New("working hours overlap an existing entry")

	// ErrNotFound is the root of every lookup failure.
	ErrNotFound = errors.New("not found")

	// ErrDoctorNotFound is returned when a doctor id does not resolve.
	ErrDoctorNotFound = fmt.Errorf("doctor %w", ErrNotFound)

	// ErrEntryNotFound is returned when a working-hours entry id does not resolve.
	ErrEntryNotFound = fmt.Errorf("working hours entry %w", ErrNotFound)

	// ErrEmptySource is returned when copying from a doctor with no working hours.
	ErrEmptySource = fmt.Errorf("source schedule %w", ErrNotFound)

	// ErrSameDoctor is returned when a copy names the same doctor twice.
	ErrSameDoctor = errors.New("source and target doctor must differ")
)

// OverlapError carries the entry that blocked a write.
type OverlapError struct {
	Existing WorkingHoursEntry
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s: entry %d on %s %s", ErrOverlap.Error(), e.Existing.ID, e.Existing.Day, e.Existing.Interval)
}

func (e *OverlapError) Unwrap() error {
	return ErrOverlap
}

// IsValidationError reports whether err was caused by caller input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrInvalidDay) ||
		errors.Is(err, ErrSameDoctor)
}
