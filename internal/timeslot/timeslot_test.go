package timeslot

import (
	"errors"
	"testing"
)

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     string
		want                           bool
	}{
		{"identical ranges", "09:00", "10:00", "09:00", "10:00", true},
		{"contained range", "09:00", "12:00", "10:00", "11:00", true},
		{"partial overlap at end", "09:00", "10:00", "09:30", "10:30", true},
		{"partial overlap at start", "09:30", "10:30", "09:00", "10:00", true},
		{"adjacent before", "08:00", "09:00", "09:00", "10:00", false},
		{"adjacent after", "10:00", "11:00", "09:00", "10:00", false},
		{"disjoint", "08:00", "09:00", "13:00", "14:00", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.aStart, tc.aEnd, tc.bStart, tc.bEnd); got != tc.want {
				t.Fatalf("Overlaps(%s-%s, %s-%s) = %v, want %v", tc.aStart, tc.aEnd, tc.bStart, tc.bEnd, got, tc.want)
			}
			// The relation is symmetric.
			if got := Overlaps(tc.bStart, tc.bEnd, tc.aStart, tc.aEnd); got != tc.want {
				t.Fatalf("Overlaps is not symmetric for %s-%s vs %s-%s", tc.aStart, tc.aEnd, tc.bStart, tc.bEnd)
			}
		})
	}
}

func TestFindConflicts(t *testing.T) {
	existing := []Slot{
		{ID: 1, Scope: RoomScope(1), Date: "2025-06-10", Start: "09:00", End: "10:00"},
		{ID: 2, Scope: RoomScope(2), Date: "2025-06-10", Start: "09:00", End: "10:00"},
		{ID: 3, Scope: RoomScope(1), Date: "2025-06-11", Start: "09:00", End: "10:00"},
		{ID: 4, Scope: ScopeVirtual, Date: "2025-06-10", Start: "09:00", End: "10:00"},
	}

	t.Run("conflict is scope and date scoped", func(t *testing.T) {
		conflicts := FindConflicts(existing, Slot{Scope: RoomScope(1), Date: "2025-06-10", Start: "09:30", End: "10:30"})
		if len(conflicts) != 1 {
			t.Fatalf("expected 1 conflict, got %d", len(conflicts))
		}
		if conflicts[0].WithSlotID != 1 {
			t.Fatalf("expected conflict with slot 1, got %d", conflicts[0].WithSlotID)
		}
	})

	t.Run("other scope same window does not conflict", func(t *testing.T) {
		conflicts := FindConflicts(existing, Slot{Scope: RoomScope(3), Date: "2025-06-10", Start: "09:00", End: "10:00"})
		if len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %d", len(conflicts))
		}
	})

	t.Run("other date same scope does not conflict", func(t *testing.T) {
		conflicts := FindConflicts(existing, Slot{Scope: RoomScope(1), Date: "2025-06-12", Start: "09:00", End: "10:00"})
		if len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %d", len(conflicts))
		}
	})

	t.Run("adjacent slot does not conflict", func(t *testing.T) {
		conflicts := FindConflicts(existing, Slot{Scope: RoomScope(1), Date: "2025-06-10", Start: "10:00", End: "11:00"})
		if len(conflicts) != 0 {
			t.Fatalf("expected no conflicts for the adjacent slot, got %d", len(conflicts))
		}
	})

	t.Run("virtual scope is independent of rooms", func(t *testing.T) {
		conflicts := FindConflicts(existing, Slot{Scope: ScopeVirtual, Date: "2025-06-10", Start: "09:30", End: "09:45"})
		if len(conflicts) != 1 || conflicts[0].WithSlotID != 4 {
			t.Fatalf("expected a single conflict with slot 4, got %+v", conflicts)
		}
	})

	t.Run("multiple overlapping slots are all reported", func(t *testing.T) {
		pool := []Slot{
			{ID: 10, Scope: ScopeVirtual, Date: "2025-07-01", Start: "09:00", End: "11:00"},
			{ID: 11, Scope: ScopeVirtual, Date: "2025-07-01", Start: "10:00", End: "12:00"},
		}
		conflicts := FindConflicts(pool, Slot{Scope: ScopeVirtual, Date: "2025-07-01", Start: "10:30", End: "10:45"})
		if len(conflicts) != 2 {
			t.Fatalf("expected 2 conflicts, got %d", len(conflicts))
		}
	})
}

func TestValidateRange(t *testing.T) {
	cases := []struct {
		name             string
		date, start, end string
		wantInvalidRange bool
		wantErr          bool
	}{
		{"valid range", "2025-06-10", "09:00", "10:00", false, false},
		{"zero-length range", "2025-06-10", "09:00", "09:00", true, true},
		{"inverted range", "2025-06-10", "10:00", "09:00", true, true},
		{"malformed date", "06/10/2025", "09:00", "10:00", false, true},
		{"malformed start", "2025-06-10", "9am", "10:00", false, true},
		{"malformed end", "2025-06-10", "09:00", "25:00", false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRange(tc.date, tc.start, tc.end)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantInvalidRange && !errors.Is(err, ErrInvalidRange) {
				t.Fatalf("expected ErrInvalidRange, got %v", err)
			}
		})
	}
}
