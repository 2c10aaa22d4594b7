package availability

import (
	"testing"
	"time"
)

func TestGrid(t *testing.T) {
	slots := Grid(9*60, 11*60, 30)
	want := []string{"09:00", "09:30", "10:00", "10:30"}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d (%v)", len(want), len(slots), slots)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Fatalf("slot %d: expected %s, got %s", i, want[i], slots[i])
		}
	}
	if Grid(10*60, 10*60, 30) != nil {
		t.Fatal("expected empty grid when close <= open")
	}
}

func TestAvailableSlots_NonWorkingDay(t *testing.T) {
	grid := Grid(9*60, 17*60, 30)
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	if got := AvailableSlots(grid, nil, "2026-03-07", false, now, time.UTC); got != nil {
		t.Fatalf("expected no slots on a non-working day, got %v", got)
	}
}

func TestAvailableSlots_ExcludesOccupied(t *testing.T) {
	grid := Grid(9*60, 11*60, 30)
	occupied := map[string]bool{"09:30": true}
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	got := AvailableSlots(grid, occupied, "2026-03-03", true, now, time.UTC)
	want := []string{"09:00", "10:00", "10:30"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestAvailableSlots_FiltersPastSlotsToday(t *testing.T) {
	grid := Grid(9*60, 11*60, 30)
	// 10:00 local: 09:00, 09:30 are gone, 10:00 starts exactly now and is gone too.
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	got := AvailableSlots(grid, nil, "2026-03-02", true, now, time.UTC)
	if len(got) != 1 || got[0] != "10:30" {
		t.Fatalf("expected [10:30], got %v", got)
	}
}

func TestAvailableSlots_FutureDateNotTimeFiltered(t *testing.T) {
	grid := Grid(9*60, 11*60, 30)
	now := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)

	got := AvailableSlots(grid, nil, "2026-03-03", true, now, time.UTC)
	if len(got) != len(grid) {
		t.Fatalf("expected all %d slots on a future date, got %v", len(grid), got)
	}
}

func TestAvailableSlots_RespectsTimezone(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	grid := Grid(9*60, 11*60, 30)
	// 07:10 UTC is 10:10 business-local time, so only 10:30 remains today.
	now := time.Date(2026, 3, 2, 7, 10, 0, 0, time.UTC)

	got := AvailableSlots(grid, nil, "2026-03-02", true, now, loc)
	if len(got) != 1 || got[0] != "10:30" {
		t.Fatalf("expected [10:30], got %v", got)
	}
}

func TestOnGrid(t *testing.T) {
	grid := Grid(9*60, 10*60, 30)
	if !OnGrid(grid, "09:30") {
		t.Fatal("09:30 should be on the grid")
	}
	if OnGrid(grid, "09:45") {
		t.Fatal("09:45 should not be on the grid")
	}
}
