package schedule

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateStore_AddEntryRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(1)
	store := NewTemplateStore(repo)

	first := mustAdd(t, store, 1, Monday, iv(t, "08:00", "12:00"))
	before, err := store.ListForDoctor(ctx, 1)
	require.NoError(t, err)

	_, err = store.AddEntry(ctx, 1, Monday, iv(t, "11:00", "13:00"))
	require.ErrorIs(t, err, ErrOverlap)

	var overlapErr *OverlapError
	require.True(t, errors.As(err, &overlapErr))
	assert.Equal(t, first.ID, overlapErr.Existing.ID)

	after, err := store.ListForDoctor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, before, after, "rejected write must leave the template unchanged")
	assert.Len(t, repo.Changes(), 1)
}

func TestTemplateStore_AddEntryAllowsTouchingAndOtherDays(t *testing.T) {
	store := NewTemplateStore(NewMemoryRepository(1))

	mustAdd(t, store, 1, Monday, iv(t, "14:00", "18:00"))
	mustAdd(t, store, 1, Monday, iv(t, "08:00", "12:00"))
	mustAdd(t, store, 1, Monday, iv(t, "12:00", "14:00"))
	mustAdd(t, store, 1, Tuesday, iv(t, "08:00", "12:00"))

	tpl, err := store.ListForDoctor(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 4, tpl.Len())
	requireSortedNonOverlapping(t, tpl)

	mon := tpl.Day(Monday)
	require.Len(t, mon, 3)
	assert.Equal(t, times(t, "08:00", "12:00", "14:00"), []TimeOfDay{mon[0].Start, mon[1].Start, mon[2].Start})
}

func TestTemplateStore_AddEntryValidation(t *testing.T) {
	ctx := context.Background()
	store := NewTemplateStore(NewMemoryRepository(1))

	_, err := store.AddEntry(ctx, 1, DayOfWeek(8), iv(t, "08:00", "09:00"))
	assert.ErrorIs(t, err, ErrInvalidDay)

	_, err = store.AddEntry(ctx, 1, Monday, Interval{Start: At(10, 0), End: At(9, 0)})
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = store.AddEntry(ctx, 99, Monday, iv(t, "08:00", "09:00"))
	assert.ErrorIs(t, err, ErrDoctorNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTemplateStore_UpdateEntry(t *testing.T) {
	ctx := context.Background()
	store := NewTemplateStore(NewMemoryRepository(1))

	morning := mustAdd(t, store, 1, Monday, iv(t, "08:00", "12:00"))
	mustAdd(t, store, 1, Monday, iv(t, "14:00", "18:00"))
	mustAdd(t, store, 1, Wednesday, iv(t, "09:00", "11:00"))

	// Overlapping only with itself is fine.
	updated, err := store.UpdateEntry(ctx, morning.ID, Monday, iv(t, "07:00", "12:30"))
	require.NoError(t, err)
	assert.Equal(t, iv(t, "07:00", "12:30"), updated.Interval)

	_, err = store.UpdateEntry(ctx, morning.ID, Monday, iv(t, "11:00", "15:00"))
	require.ErrorIs(t, err, ErrOverlap)

	_, err = store.UpdateEntry(ctx, morning.ID, Wednesday, iv(t, "10:00", "12:00"))
	require.ErrorIs(t, err, ErrOverlap, "moving to another day checks that day's entries")

	moved, err := store.UpdateEntry(ctx, morning.ID, Wednesday, iv(t, "11:00", "13:00"))
	require.NoError(t, err)
	assert.Equal(t, Wednesday, moved.Day)

	tpl, err := store.ListForDoctor(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, tpl.Day(Monday), 1)
	assert.Len(t, tpl.Day(Wednesday), 2)
	requireSortedNonOverlapping(t, tpl)

	_, err = store.UpdateEntry(ctx, 404, Monday, iv(t, "08:00", "09:00"))
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestTemplateStore_RemoveEntryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(1)
	store := NewTemplateStore(repo)
	entry := mustAdd(t, store, 1, Friday, iv(t, "08:00", "10:00"))

	removed, ok, err := store.RemoveEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entry.ID, removed.ID)

	_, ok, err = store.RemoveEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	changes := repo.Changes()
	require.Len(t, changes, 2)
	assert.Equal(t, EventWorkingHoursDeleted, changes[1].Type)
}

func TestTemplateStore_RemoveAllForDoctor(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(1, 2)
	store := NewTemplateStore(repo)
	mustAdd(t, store, 1, Monday, iv(t, "08:00", "10:00"))
	mustAdd(t, store, 1, Tuesday, iv(t, "08:00", "10:00"))
	mustAdd(t, store, 2, Monday, iv(t, "08:00", "10:00"))

	n, err := store.RemoveAllForDoctor(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = store.RemoveAllForDoctor(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, n)

	other, err := store.ListForDoctor(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, other.Len(), "other doctors are untouched")

	_, err = store.RemoveAllForDoctor(ctx, 42)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestTemplateStore_DayEntries(t *testing.T) {
	ctx := context.Background()
	store := NewTemplateStore(NewMemoryRepository(1))
	mustAdd(t, store, 1, Thursday, iv(t, "15:00", "16:00"))
	mustAdd(t, store, 1, Thursday, iv(t, "09:00", "10:00"))

	entries, err := store.DayEntries(ctx, 1, Thursday)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, At(9, 0), entries[0].Start)

	empty, err := store.DayEntries(ctx, 1, Sunday)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = store.DayEntries(ctx, 1, DayOfWeek(0))
	assert.ErrorIs(t, err, ErrInvalidDay)
}

// failingRepo fails every change record so transactions roll back.
type failingRepo struct {
	*MemoryRepository
}

func (f *failingRepo) InTx(ctx context.Context, fn func(tx Repository) error) error {
	return f.MemoryRepository.InTx(ctx, func(tx Repository) error {
		return fn(&failingTx{Repository: tx})
	})
}

type failingTx struct {
	Repository
}

func (f *failingTx) RecordChange(context.Context, Change) error {
	return errors.New("outbox unavailable")
}

func TestTemplateStore_FailedTransactionLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{MemoryRepository: NewMemoryRepository(1)}
	store := NewTemplateStore(repo)

	_, err := store.AddEntry(ctx, 1, Monday, iv(t, "08:00", "09:00"))
	require.Error(t, err)

	tpl, err := store.ListForDoctor(ctx, 1)
	require.NoError(t, err)
	assert.True(t, tpl.IsEmpty())
}

func TestWorkingHoursEntry_String(t *testing.T) {
	entry := WorkingHoursEntry{ID: 12, DoctorID: 3, Day: Tuesday, Interval: iv(t, "09:00", "10:00")}
	assert.Equal(t, "entry 12 doctor 3 Tuesday 09:00-10:00", entry.String())
	assert.Equal(t, "entry 12 doctor 3 Tuesday 09:00-10:00", fmt.Sprintf("%v", entry))
}
