package testfixtures

import (
	"testing"
	"time"
)

func TestClockDefaultsToReferenceTime(t *testing.T) {
	clock := NewClock(time.Time{})
	if !clock.Now().Equal(ReferenceTime()) {
		t.Fatalf("expected reference time, got %v", clock.Now())
	}
}

func TestClockAdvanceAndSet(t *testing.T) {
	start := time.Date(2025, time.July, 1, 14, 0, 0, 0, time.UTC)
	clock := NewClock(start)

	updated := clock.Advance(30 * time.Minute)
	if want := start.Add(30 * time.Minute); !updated.Equal(want) {
		t.Fatalf("advance returned %v, want %v", updated, want)
	}
	if !clock.Now().Equal(updated) {
		t.Fatalf("Now() = %v, want %v", clock.Now(), updated)
	}

	clock.Set(start)
	if !clock.Now().Equal(start) {
		t.Fatalf("Set did not rewind the clock: %v", clock.Now())
	}
}

func TestNilClockFallsBackToWallClock(t *testing.T) {
	var clock *Clock
	nowFn := clock.NowFunc()

	before := time.Now()
	got := nowFn()
	if got.Before(before.Add(-time.Minute)) {
		t.Fatalf("nil clock returned a stale instant: %v", got)
	}
}
