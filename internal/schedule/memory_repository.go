package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryRepository keeps templates in process. Writers are serialised and a
// transaction works on a copy that replaces the state only on success.
type MemoryRepository struct {
	mu    sync.Mutex
	state *memoryState
}

type memoryState struct {
	doctors map[int64]struct{}
	entries map[int64]WorkingHoursEntry
	nextID  int64
	changes []Change
}

func NewMemoryRepository(doctorIDs ...int64) *MemoryRepository {
	state := &memoryState{
		doctors: make(map[int64]struct{}),
		entries: make(map[int64]WorkingHoursEntry),
	}
	for _, id := range doctorIDs {
		state.doctors[id] = struct{}{}
	}
	return &MemoryRepository{state: state}
}

// AddDoctor registers a doctor id.
func (r *MemoryRepository) AddDoctor(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.doctors[id] = struct{}{}
}

// Changes returns the recorded change events in commit order.
func (r *MemoryRepository) Changes() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Change(nil), r.state.changes...)
}

func (r *MemoryRepository) view() *memoryTx {
	return &memoryTx{state: r.state}
}

func (r *MemoryRepository) DoctorExists(ctx context.Context, doctorID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().DoctorExists(ctx, doctorID)
}

func (r *MemoryRepository) LockDoctor(ctx context.Context, doctorID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().LockDoctor(ctx, doctorID)
}

func (r *MemoryRepository) LoadWeeklyTemplate(ctx context.Context, doctorID int64) (WeeklyTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().LoadWeeklyTemplate(ctx, doctorID)
}

func (r *MemoryRepository) LoadDayEntries(ctx context.Context, doctorID int64, day DayOfWeek) ([]WorkingHoursEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().LoadDayEntries(ctx, doctorID, day)
}

func (r *MemoryRepository) LoadEntry(ctx context.Context, id int64) (WorkingHoursEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().LoadEntry(ctx, id)
}

func (r *MemoryRepository) InsertEntry(ctx context.Context, entry WorkingHoursEntry) (WorkingHoursEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().InsertEntry(ctx, entry)
}

func (r *MemoryRepository) UpdateEntry(ctx context.Context, entry WorkingHoursEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().UpdateEntry(ctx, entry)
}

func (r *MemoryRepository) DeleteEntry(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().DeleteEntry(ctx, id)
}

func (r *MemoryRepository) DeleteAllForDoctor(ctx context.Context, doctorID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().DeleteAllForDoctor(ctx, doctorID)
}

func (r *MemoryRepository) RecordChange(ctx context.Context, change Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view().RecordChange(ctx, change)
}

func (r *MemoryRepository) InTx(ctx context.Context, fn func(tx Repository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	working := r.state.clone()
	if err := fn(&memoryTx{state: working}); err != nil {
		return err
	}
	r.state = working
	return nil
}

func (s *memoryState) clone() *memoryState {
	out := &memoryState{
		doctors: make(map[int64]struct{}, len(s.doctors)),
		entries: make(map[int64]WorkingHoursEntry, len(s.entries)),
		nextID:  s.nextID,
		changes: append([]Change(nil), s.changes...),
	}
	for id := range s.doctors {
		out.doctors[id] = struct{}{}
	}
	for id, entry := range s.entries {
		out.entries[id] = entry
	}
	return out
}

// memoryTx operates on a state the caller already holds exclusively.
type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) DoctorExists(_ context.Context, doctorID int64) (bool, error) {
	_, ok := t.state.doctors[doctorID]
	return ok, nil
}

func (t *memoryTx) LockDoctor(_ context.Context, doctorID int64) error {
	if _, ok := t.state.doctors[doctorID]; !ok {
		return fmt.Errorf("%w: %d", ErrDoctorNotFound, doctorID)
	}
	return nil
}

func (t *memoryTx) LoadWeeklyTemplate(_ context.Context, doctorID int64) (WeeklyTemplate, error) {
	var entries []WorkingHoursEntry
	for _, entry := range t.state.entries {
		if entry.DoctorID == doctorID {
			entries = append(entries, entry)
		}
	}
	return NewWeeklyTemplate(doctorID, entries), nil
}

func (t *memoryTx) LoadDayEntries(_ context.Context, doctorID int64, day DayOfWeek) ([]WorkingHoursEntry, error) {
	entries := []WorkingHoursEntry{}
	for _, entry := range t.state.entries {
		if entry.DoctorID == doctorID && entry.Day == day {
			entries = append(entries, entry)
		}
	}
	SortEntries(entries)
	return entries, nil
}

func (t *memoryTx) LoadEntry(_ context.Context, id int64) (WorkingHoursEntry, error) {
	entry, ok := t.state.entries[id]
	if !ok {
		return WorkingHoursEntry{}, fmt.Errorf("%w: %d", ErrEntryNotFound, id)
	}
	return entry, nil
}

func (t *memoryTx) InsertEntry(_ context.Context, entry WorkingHoursEntry) (WorkingHoursEntry, error) {
	t.state.nextID++
	entry.ID = t.state.nextID
	t.state.entries[entry.ID] = entry
	return entry, nil
}

func (t *memoryTx) UpdateEntry(_ context.Context, entry WorkingHoursEntry) error {
	if _, ok := t.state.entries[entry.ID]; !ok {
		return fmt.Errorf("%w: %d", ErrEntryNotFound, entry.ID)
	}
	t.state.entries[entry.ID] = entry
	return nil
}

func (t *memoryTx) DeleteEntry(_ context.Context, id int64) (bool, error) {
	if _, ok := t.state.entries[id]; !ok {
		return false, nil
	}
	delete(t.state.entries, id)
	return true, nil
}

func (t *memoryTx) DeleteAllForDoctor(_ context.Context, doctorID int64) (int, error) {
	n := 0
	for id, entry := range t.state.entries {
		if entry.DoctorID == doctorID {
			delete(t.state.entries, id)
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) RecordChange(_ context.Context, change Change) error {
	t.state.changes = append(t.state.changes, change)
	return nil
}

func (t *memoryTx) InTx(_ context.Context, fn func(tx Repository) error) error {
	return fn(t)
}

// MemoryAppointments is an in-process AppointmentSource.
type MemoryAppointments struct {
	mu    sync.RWMutex
	appts []Appointment
}

func NewMemoryAppointments(appts ...Appointment) *MemoryAppointments {
	return &MemoryAppointments{appts: append([]Appointment(nil), appts...)}
}

func (m *MemoryAppointments) Add(appt Appointment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appts = append(m.appts, appt)
}

func (m *MemoryAppointments) ActiveAppointments(_ context.Context, doctorID int64, date time.Time) ([]Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	y, mo, d := date.Date()
	var out []Appointment
	for _, appt := range m.appts {
		ay, amo, ad := appt.Date.Date()
		if appt.DoctorID != doctorID || ay != y || amo != mo || ad != d {
			continue
		}
		if !appt.Status.Blocking() {
			continue
		}
		out = append(out, appt)
	}
	return out, nil
}
