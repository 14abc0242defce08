package schedule

import (
	"fmt"
	"sort"
)

// WorkingHoursEntry is one block of a doctor's weekly template.
type WorkingHoursEntry struct {
	ID       int64     `json:"id"`
	DoctorID int64     `json:"doctor_id"`
	Day      DayOfWeek `json:"day"`
	Interval
}

// String overrides the promoted Interval.String so logs keep the id and day.
func (e WorkingHoursEntry) String() string {
	return fmt.Sprintf("entry %d doctor %d %s %s", e.ID, e.DoctorID, e.Day, e.Interval)
}

// WeeklyTemplate groups a doctor's entries by day, each day ordered by start.
type WeeklyTemplate struct {
	DoctorID int64
	Days     map[DayOfWeek][]WorkingHoursEntry
}

// NewWeeklyTemplate groups and orders the given entries.
func NewWeeklyTemplate(doctorID int64, entries []WorkingHoursEntry) WeeklyTemplate {
	tpl := WeeklyTemplate{DoctorID: doctorID, Days: make(map[DayOfWeek][]WorkingHoursEntry)}
	for _, entry := range entries {
		tpl.Days[entry.Day] = append(tpl.Days[entry.Day], entry)
	}
	for day := range tpl.Days {
		SortEntries(tpl.Days[day])
	}
	return tpl
}

// Day returns the entries for d. The slice must not be modified.
func (t WeeklyTemplate) Day(d DayOfWeek) []WorkingHoursEntry {
	return t.Days[d]
}

// Entries flattens the template Monday through Sunday.
func (t WeeklyTemplate) Entries() []WorkingHoursEntry {
	out := make([]WorkingHoursEntry, 0, t.Len())
	for _, d := range Days() {
		out = append(out, t.Days[d]...)
	}
	return out
}

func (t WeeklyTemplate) Len() int {
	n := 0
	for _, entries := range t.Days {
		n += len(entries)
	}
	return n
}

func (t WeeklyTemplate) IsEmpty() bool {
	return t.Len() == 0
}

// SortEntries orders entries by start, then id, in place.
func SortEntries(entries []WorkingHoursEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Start != entries[j].Start {
			return entries[i].Start < entries[j].Start
		}
		return entries[i].ID < entries[j].ID
	})
}

// firstOverlap returns the first entry, other than skipID, that collides with iv.
func firstOverlap(entries []WorkingHoursEntry, iv Interval, skipID int64) (WorkingHoursEntry, bool) {
	for _, entry := range entries {
		if skipID != 0 && entry.ID == skipID {
			continue
		}
		if Overlaps(entry.Interval, iv) {
			return entry, true
		}
	}
	return WorkingHoursEntry{}, false
}
