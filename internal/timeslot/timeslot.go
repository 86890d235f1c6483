package timeslot

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ScopeVirtual identifies the single shared virtual-meeting pool. Room slots
// use RoomScope to derive their scope key; the two never collide.
const ScopeVirtual = "virtual"

// RoomScope returns the scope key for a physical room's reservation pool.
func RoomScope(resourceID int64) string {
	return "room:" + strconv.FormatInt(resourceID, 10)
}

// Slot represents a reserved time range inside one scoped pool. Date holds a
// calendar day as "YYYY-MM-DD"; Start and End hold 24h wall-clock times as
// "HH:MM". End is exclusive.
type Slot struct {
	ID    int64
	Scope string
	Date  string
	Start string
	End   string
}

// Conflict details an overlapping slot relation that callers can surface.
type Conflict struct {
	WithSlotID int64
	Scope      string
	Date       string
	Start      string
	End        string
}

// Overlaps reports whether two half-open ranges on the same date intersect.
// The zero-padded "HH:MM" encoding makes lexicographic comparison equivalent
// to chronological comparison.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	return aStart < bEnd && bStart < aEnd
}

// FindConflicts returns every existing slot that shares the candidate's scope
// and date and overlaps it. Slots in other scopes or on other dates never
// conflict.
func FindConflicts(existing []Slot, candidate Slot) []Conflict {
	var conflicts []Conflict
	for _, slot := range existing {
		if slot.Scope != candidate.Scope || slot.Date != candidate.Date {
			continue
		}
		if !Overlaps(slot.Start, slot.End, candidate.Start, candidate.End) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			WithSlotID: slot.ID,
			Scope:      slot.Scope,
			Date:       slot.Date,
			Start:      slot.Start,
			End:        slot.End,
		})
	}
	return conflicts
}

// ErrInvalidRange is returned when a candidate range is empty or inverted.
var ErrInvalidRange = errors.New("timeslot: start must be before end")

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// ValidateDate checks the "YYYY-MM-DD" encoding of a calendar day.
func ValidateDate(date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return fmt.Errorf("timeslot: invalid date %q: %w", date, err)
	}
	return nil
}

// ValidateTime checks the "HH:MM" encoding of a wall-clock time.
func ValidateTime(value string) error {
	if _, err := time.Parse(timeLayout, value); err != nil {
		return fmt.Errorf("timeslot: invalid time %q: %w", value, err)
	}
	return nil
}

// ValidateRange checks date and time encodings and enforces the strict
// start-before-end ordering. Zero-length ranges fail with ErrInvalidRange.
func ValidateRange(date, start, end string) error {
	if err := ValidateDate(date); err != nil {
		return err
	}
	if err := ValidateTime(start); err != nil {
		return err
	}
	if err := ValidateTime(end); err != nil {
		return err
	}
	if start >= end {
		return ErrInvalidRange
	}
	return nil
}
