package availability

import (
	"fmt"
	"time"
)

const (
	DefaultOpenMinute  = 9 * 60
	DefaultCloseMinute = 19 * 60
	DefaultStepMinutes = 30
)

// Grid returns the fixed daily slot labels ("HH:MM") from openMinute up to but
// not including closeMinute, stepMinutes apart. The grid is a property of the
// business, independent of service durations.
func Grid(openMinute, closeMinute, stepMinutes int) []string {
	if stepMinutes <= 0 {
		stepMinutes = DefaultStepMinutes
	}
	if closeMinute <= openMinute {
		return nil
	}
	var slots []string
	for m := openMinute; m < closeMinute; m += stepMinutes {
		slots = append(slots, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return slots
}

// OnGrid reports whether slot is one of the grid labels.
func OnGrid(grid []string, slot string) bool {
	for _, s := range grid {
		if s == slot {
			return true
		}
	}
	return false
}

// SlotTime resolves a date ("2006-01-02") and slot label ("15:04") to a
// concrete instant in loc.
func SlotTime(date, slot string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", date+" "+slot, loc)
}

// AvailableSlots returns the grid slots still bookable for a staff member on
// date, in ascending grid order. Occupied slots are excluded; when date is the
// current day in loc, slots starting at or before now are excluded too. Future
// dates are never time-filtered. Occupancy is tracked at slot-start granularity
// only; a long service does not block the following grid slots.
//
// Results must be recomputed per request; the occupied set goes stale the
// moment a concurrent booking commits.
func AvailableSlots(grid []string, occupied map[string]bool, date string, worksWeekday bool, now time.Time, loc *time.Location) []string {
	if !worksWeekday {
		return nil
	}

	today := now.In(loc).Format("2006-01-02")
	var out []string
	for _, slot := range grid {
		if occupied[slot] {
			continue
		}
		if date == today {
			at, err := SlotTime(date, slot, loc)
			if err != nil {
				continue
			}
			if !at.After(now) {
				continue
			}
		}
		out = append(out, slot)
	}
	return out
}
