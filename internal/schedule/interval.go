// Package schedule implements doctor working-hours templates, slot availability and
// appointment fit checks for the clinic.
package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay bounds TimeOfDay values.
const MinutesPerDay = 24 * 60

// DayOfWeek is 1..7 with Monday=1 and Sunday=7.
type DayOfWeek int

const (
	Monday DayOfWeek = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayNames = map[DayOfWeek]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
	Sunday:    "Sunday",
}

// Spanish names used by the clinic front-end.
var displayNames = map[DayOfWeek]string{
	Monday:    "Lunes",
	Tuesday:   "Martes",
	Wednesday: "Miércoles",
	Thursday:  "Jueves",
	Friday:    "Viernes",
	Saturday:  "Sábado",
	Sunday:    "Domingo",
}

// Days returns Monday through Sunday in order.
func Days() []DayOfWeek {
	return []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// Valid reports whether d is within 1..7.
func (d DayOfWeek) Valid() bool {
	return d >= Monday && d <= Sunday
}

func (d DayOfWeek) String() string {
	if name, ok := dayNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DayOfWeek(%d)", int(d))
}

// DisplayName returns the Spanish label shown to clinic staff.
func (d DayOfWeek) DisplayName() string {
	return displayNames[d]
}

// DayOfWeekOf converts a calendar date to its DayOfWeek.
func DayOfWeekOf(date time.Time) DayOfWeek {
	wd := date.Weekday()
	if wd == time.Sunday {
		return Sunday
	}
	return DayOfWeek(wd)
}

// ParseDayOfWeek accepts "1".."7", English names and Spanish display names.
func ParseDayOfWeek(raw string) (DayOfWeek, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if n, err := strconv.Atoi(value); err == nil {
		d := DayOfWeek(n)
		if !d.Valid() {
			return 0, fmt.Errorf("%w: %d", ErrInvalidDay, n)
		}
		return d, nil
	}
	for _, d := range Days() {
		if value == strings.ToLower(dayNames[d]) || value == strings.ToLower(displayNames[d]) {
			return d, nil
		}
	}
	switch value {
	case "miercoles":
		return Wednesday, nil
	case "sabado":
		return Saturday, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDay, raw)
}

// UnmarshalJSON accepts a number or any string ParseDayOfWeek understands.
func (d *DayOfWeek) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		parsed := DayOfWeek(n)
		if !parsed.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidDay, n)
		}
		*d = parsed
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDay, string(data))
	}
	parsed, err := ParseDayOfWeek(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is minutes since midnight.
type TimeOfDay int

// At builds a TimeOfDay from hour and minute.
func At(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS". Seconds are dropped.
// "24:00" is midnight at the end of the day.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	value := strings.TrimSpace(raw)
	if value == "24:00" || value == "24:00:00" {
		return MinutesPerDay, nil
	}
	layout := "15:04"
	if strings.Count(value, ":") == 2 {
		layout = "15:04:05"
	}
	parsed, err := time.Parse(layout, value)
	if err != nil {
		return 0, fmt.Errorf("%w: time %q", ErrInvalidInterval, raw)
	}
	return At(parsed.Hour(), parsed.Minute()), nil
}

// Add returns t shifted by the given number of minutes.
func (t TimeOfDay) Add(minutes int) TimeOfDay {
	return t + TimeOfDay(minutes)
}

// Hour and Minute split the value for display.
func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On places the time of day on the given calendar date.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location()).Add(time.Duration(t) * time.Minute)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: time must be a string", ErrInvalidInterval)
	}
	parsed, err := ParseTimeOfDay(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Interval is the half-open range [Start, End) within one day.
// End may be MinutesPerDay so a block can run until midnight.
type Interval struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// NewInterval validates and builds an interval.
func NewInterval(start, end TimeOfDay) (Interval, error) {
	iv := Interval{Start: start, End: end}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// IntervalFrom builds [start, start+durationMinutes).
func IntervalFrom(start TimeOfDay, durationMinutes int) (Interval, error) {
	if durationMinutes <= 0 || durationMinutes > MinutesPerDay {
		return Interval{}, fmt.Errorf("%w: %d", ErrInvalidDuration, durationMinutes)
	}
	return NewInterval(start, start.Add(durationMinutes))
}

// ParseInterval parses two clock strings into an interval.
func ParseInterval(start, end string) (Interval, error) {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return Interval{}, err
	}
	return NewInterval(s, e)
}

// Validate enforces start < end and both bounds inside the day.
func (iv Interval) Validate() error {
	if iv.Start < 0 || iv.Start >= MinutesPerDay {
		return fmt.Errorf("%w: start %d out of range", ErrInvalidInterval, int(iv.Start))
	}
	if iv.End <= 0 || iv.End > MinutesPerDay {
		return fmt.Errorf("%w: end %d out of range", ErrInvalidInterval, int(iv.End))
	}
	if iv.Start >= iv.End {
		return fmt.Errorf("%w: start %s is not before end %s", ErrInvalidInterval, iv.Start, iv.End)
	}
	return nil
}

// Minutes is the length of the interval.
func (iv Interval) Minutes() int {
	return int(iv.End - iv.Start)
}

func (iv Interval) String() string {
	return iv.Start.String() + "-" + iv.End.String()
}

// Overlaps reports whether two half-open intervals intersect.
// Touching endpoints do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// Contains reports whether inner lies entirely within outer.
func Contains(outer, inner Interval) bool {
	return outer.Start <= inner.Start && inner.End <= outer.End
}
