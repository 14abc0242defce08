package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// monday is 2025-01-06.
var monday = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func iv(t *testing.T, start, end string) Interval {
	t.Helper()
	out, err := ParseInterval(start, end)
	require.NoError(t, err)
	return out
}

func times(t *testing.T, values ...string) []TimeOfDay {
	t.Helper()
	out := make([]TimeOfDay, len(values))
	for i, v := range values {
		parsed, err := ParseTimeOfDay(v)
		require.NoError(t, err)
		out[i] = parsed
	}
	return out
}

func mustAdd(t *testing.T, store *TemplateStore, doctorID int64, day DayOfWeek, block Interval) WorkingHoursEntry {
	t.Helper()
	entry, err := store.AddEntry(context.Background(), doctorID, day, block)
	require.NoError(t, err)
	return entry
}

func appointment(t *testing.T, id, doctorID int64, date time.Time, start, end string, status AppointmentStatus) Appointment {
	t.Helper()
	return Appointment{ID: id, DoctorID: doctorID, Date: date, Interval: iv(t, start, end), Status: status}
}

func requireSortedNonOverlapping(t *testing.T, tpl WeeklyTemplate) {
	t.Helper()
	for _, d := range Days() {
		entries := tpl.Day(d)
		for i := 1; i < len(entries); i++ {
			require.LessOrEqual(t, entries[i-1].Start, entries[i].Start, "day %s not sorted", d)
			require.False(t, Overlaps(entries[i-1].Interval, entries[i].Interval), "day %s overlaps", d)
		}
	}
}
