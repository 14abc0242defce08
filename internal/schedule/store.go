package schedule

import (
	"context"
	"errors"
	"fmt"
)

// Change event types written to the outbox alongside template writes.
const (
	EventWorkingHoursAdded   = "working_hours.added"
	EventWorkingHoursUpdated = "working_hours.updated"
	EventWorkingHoursDeleted = "working_hours.deleted"
	EventWorkingHoursCleared = "working_hours.cleared"
	EventWorkingHoursCopied  = "working_hours.copied"
)

// Change describes a committed template mutation.
type Change struct {
	Type     string             `json:"type"`
	DoctorID int64              `json:"doctor_id"`
	Entry    *WorkingHoursEntry `json:"entry,omitempty"`
	Count    int                `json:"count,omitempty"`
	SourceID int64              `json:"source_doctor_id,omitempty"`
}

// Repository is the persistence collaborator for working-hours templates.
// Methods called on the Repository handed to InTx run inside that transaction.
type Repository interface {
	DoctorExists(ctx context.Context, doctorID int64) (bool, error)
	// LockDoctor serialises template writers for one doctor. It returns
	// ErrDoctorNotFound when the doctor does not exist.
	LockDoctor(ctx context.Context, doctorID int64) error
	LoadWeeklyTemplate(ctx context.Context, doctorID int64) (WeeklyTemplate, error)
	LoadDayEntries(ctx context.Context, doctorID int64, day DayOfWeek) ([]WorkingHoursEntry, error)
	// LoadEntry returns ErrEntryNotFound for unknown ids.
	LoadEntry(ctx context.Context, id int64) (WorkingHoursEntry, error)
	InsertEntry(ctx context.Context, entry WorkingHoursEntry) (WorkingHoursEntry, error)
	UpdateEntry(ctx context.Context, entry WorkingHoursEntry) error
	DeleteEntry(ctx context.Context, id int64) (bool, error)
	DeleteAllForDoctor(ctx context.Context, doctorID int64) (int, error)
	RecordChange(ctx context.Context, change Change) error
	InTx(ctx context.Context, fn func(tx Repository) error) error
}

// TemplateStore enforces the non-overlap invariant on a doctor's weekly template.
type TemplateStore struct {
	repo Repository
}

func NewTemplateStore(repo Repository) *TemplateStore {
	if repo == nil {
		panic("schedule: repository required")
	}
	return &TemplateStore{repo: repo}
}

// AddEntry inserts a block after checking it against the day's existing blocks.
func (s *TemplateStore) AddEntry(ctx context.Context, doctorID int64, day DayOfWeek, iv Interval) (WorkingHoursEntry, error) {
	if err := validateBlock(day, iv); err != nil {
		return WorkingHoursEntry{}, err
	}
	var created WorkingHoursEntry
	err := s.repo.InTx(ctx, func(tx Repository) error {
		if err := tx.LockDoctor(ctx, doctorID); err != nil {
			return err
		}
		entry, err := insertChecked(ctx, tx, doctorID, day, iv)
		if err != nil {
			return err
		}
		created = entry
		return tx.RecordChange(ctx, Change{Type: EventWorkingHoursAdded, DoctorID: doctorID, Entry: &entry})
	})
	if err != nil {
		return WorkingHoursEntry{}, err
	}
	return created, nil
}

// UpdateEntry replaces the day and interval of an existing block.
func (s *TemplateStore) UpdateEntry(ctx context.Context, id int64, day DayOfWeek, iv Interval) (WorkingHoursEntry, error) {
	if err := validateBlock(day, iv); err != nil {
		return WorkingHoursEntry{}, err
	}
	var updated WorkingHoursEntry
	err := s.repo.InTx(ctx, func(tx Repository) error {
		current, err := tx.LoadEntry(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.LockDoctor(ctx, current.DoctorID); err != nil {
			return err
		}
		entries, err := tx.LoadDayEntries(ctx, current.DoctorID, day)
		if err != nil {
			return err
		}
		if existing, found := firstOverlap(entries, iv, id); found {
			return &OverlapError{Existing: existing}
		}
		current.Day = day
		current.Interval = iv
		if err := tx.UpdateEntry(ctx, current); err != nil {
			return err
		}
		updated = current
		return tx.RecordChange(ctx, Change{Type: EventWorkingHoursUpdated, DoctorID: current.DoctorID, Entry: &current})
	})
	if err != nil {
		return WorkingHoursEntry{}, err
	}
	return updated, nil
}

// RemoveEntry deletes a block. Removing an unknown id is not an error here.
func (s *TemplateStore) RemoveEntry(ctx context.Context, id int64) (WorkingHoursEntry, bool, error) {
	var (
		removed WorkingHoursEntry
		ok      bool
	)
	err := s.repo.InTx(ctx, func(tx Repository) error {
		entry, err := tx.LoadEntry(ctx, id)
		if errors.Is(err, ErrEntryNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.LockDoctor(ctx, entry.DoctorID); err != nil {
			return err
		}
		deleted, err := tx.DeleteEntry(ctx, id)
		if err != nil || !deleted {
			return err
		}
		removed, ok = entry, true
		return tx.RecordChange(ctx, Change{Type: EventWorkingHoursDeleted, DoctorID: entry.DoctorID, Entry: &entry})
	})
	if err != nil {
		return WorkingHoursEntry{}, false, err
	}
	return removed, ok, nil
}

// RemoveAllForDoctor clears the doctor's template in one transaction.
func (s *TemplateStore) RemoveAllForDoctor(ctx context.Context, doctorID int64) (int, error) {
	var deleted int
	err := s.repo.InTx(ctx, func(tx Repository) error {
		if err := tx.LockDoctor(ctx, doctorID); err != nil {
			return err
		}
		n, err := tx.DeleteAllForDoctor(ctx, doctorID)
		if err != nil {
			return err
		}
		deleted = n
		if n == 0 {
			return nil
		}
		return tx.RecordChange(ctx, Change{Type: EventWorkingHoursCleared, DoctorID: doctorID, Count: n})
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// ListForDoctor returns the doctor's template with each day ordered by start.
func (s *TemplateStore) ListForDoctor(ctx context.Context, doctorID int64) (WeeklyTemplate, error) {
	tpl, err := s.repo.LoadWeeklyTemplate(ctx, doctorID)
	if err != nil {
		return WeeklyTemplate{}, fmt.Errorf("schedule: load template: %w", err)
	}
	if tpl.Days == nil {
		tpl.Days = make(map[DayOfWeek][]WorkingHoursEntry)
	}
	for day := range tpl.Days {
		SortEntries(tpl.Days[day])
	}
	tpl.DoctorID = doctorID
	return tpl, nil
}

// DayEntries returns one day of the doctor's template ordered by start.
func (s *TemplateStore) DayEntries(ctx context.Context, doctorID int64, day DayOfWeek) ([]WorkingHoursEntry, error) {
	if !day.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDay, int(day))
	}
	entries, err := s.repo.LoadDayEntries(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("schedule: load day entries: %w", err)
	}
	SortEntries(entries)
	return entries, nil
}

func validateBlock(day DayOfWeek, iv Interval) error {
	if !day.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidDay, int(day))
	}
	return iv.Validate()
}

// insertChecked must run inside a transaction holding the doctor lock.
func insertChecked(ctx context.Context, tx Repository, doctorID int64, day DayOfWeek, iv Interval) (WorkingHoursEntry, error) {
	entries, err := tx.LoadDayEntries(ctx, doctorID, day)
	if err != nil {
		return WorkingHoursEntry{}, err
	}
	if existing, found := firstOverlap(entries, iv, 0); found {
		return WorkingHoursEntry{}, &OverlapError{Existing: existing}
	}
	return tx.InsertEntry(ctx, WorkingHoursEntry{DoctorID: doctorID, Day: day, Interval: iv})
}
