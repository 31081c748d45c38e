package schedule

import (
	"errors"
	"fmt"
	"time"
)

// WorkingHours is a single weekday's attendance window in "HH:MM" wall-clock time.
type WorkingHours struct {
	Day   time.Weekday `json:"day"`
	Start string       `json:"start"`
	End   string       `json:"end"`
}

// Weekly is a doctor's weekly working-hours configuration, at most one entry per weekday.
type Weekly struct {
	WorkingHours []WorkingHours `json:"workingHours"`
	SlotMinutes  int            `json:"slotDurationMinutes"`
}

// Slot is a fixed-duration candidate appointment window derived from the schedule.
type Slot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

var (
	ErrInvalidSlotDuration = errors.New("schedule: slot duration must be positive")
	ErrInvalidWindow       = errors.New("schedule: working hours start must precede end")
	ErrDuplicateWeekday    = errors.New("schedule: at most one working-hours entry per weekday")
)

// Validate checks the weekly configuration invariants.
func (w Weekly) Validate() error {
	if w.SlotMinutes <= 0 {
		return ErrInvalidSlotDuration
	}
	seen := map[time.Weekday]bool{}
	for _, wh := range w.WorkingHours {
		if seen[wh.Day] {
			return fmt.Errorf("%w: %s", ErrDuplicateWeekday, wh.Day)
		}
		seen[wh.Day] = true
		start, err := parseClock(wh.Start)
		if err != nil {
			return err
		}
		end, err := parseClock(wh.End)
		if err != nil {
			return err
		}
		if !start.before(end) {
			return fmt.Errorf("%w: %s %s-%s", ErrInvalidWindow, wh.Day, wh.Start, wh.End)
		}
	}
	return nil
}

// forDay returns the working-hours entry matching the weekday, if any.
func (w Weekly) forDay(day time.Weekday) (WorkingHours, bool) {
	for _, wh := range w.WorkingHours {
		if wh.Day == day {
			return wh, true
		}
	}
	return WorkingHours{}, false
}

// ComputeSlots generates the ordered candidate slots for a single calendar date.
// A date whose weekday has no working-hours entry yields no slots. Slots are
// contiguous and non-overlapping; a trailing slot whose end would run past the
// working-hours end is dropped. A slot is available unless its start appears in
// bookedStarts (unix seconds).
func ComputeSlots(weekly Weekly, date time.Time, bookedStarts map[int64]struct{}) ([]Slot, error) {
	if weekly.SlotMinutes <= 0 {
		return nil, ErrInvalidSlotDuration
	}

	wh, ok := weekly.forDay(date.Weekday())
	if !ok {
		return nil, nil
	}

	start, err := parseClock(wh.Start)
	if err != nil {
		return nil, err
	}
	end, err := parseClock(wh.End)
	if err != nil {
		return nil, err
	}

	cursor := start.onDate(date)
	dayEnd := end.onDate(date)
	step := time.Duration(weekly.SlotMinutes) * time.Minute

	var slots []Slot
	for cursor.Before(dayEnd) {
		slotEnd := cursor.Add(step)
		if slotEnd.After(dayEnd) {
			break
		}
		_, booked := bookedStarts[cursor.Unix()]
		slots = append(slots, Slot{
			Start:     cursor,
			End:       slotEnd,
			Available: !booked,
		})
		cursor = slotEnd
	}
	return slots, nil
}

// BookedSet builds a slot-start lookup set from persisted appointment times.
func BookedSet(starts []time.Time) map[int64]struct{} {
	set := make(map[int64]struct{}, len(starts))
	for _, t := range starts {
		set[t.Truncate(time.Minute).Unix()] = struct{}{}
	}
	return set
}

type clock struct {
	hour   int
	minute int
}

func parseClock(value string) (clock, error) {
	var c clock
	if _, err := fmt.Sscanf(value, "%d:%d", &c.hour, &c.minute); err != nil {
		return clock{}, fmt.Errorf("schedule: invalid clock value %q: %w", value, err)
	}
	if c.hour < 0 || c.hour > 23 || c.minute < 0 || c.minute > 59 {
		return clock{}, fmt.Errorf("schedule: clock value %q out of range", value)
	}
	return c, nil
}

func (c clock) before(other clock) bool {
	if c.hour != other.hour {
		return c.hour < other.hour
	}
	return c.minute < other.minute
}

func (c clock) onDate(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.hour, c.minute, 0, 0, date.Location())
}
