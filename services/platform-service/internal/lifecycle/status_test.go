package lifecycle

import (
	"errors"
	"testing"
)

func TestCanTransition_Table(t *testing.T) {
	allowed := []struct{ from, to string }{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusCompleted},
		{StatusConfirmed, StatusCancelled},
		{StatusConfirmed, StatusNoShow},
	}
	for _, tc := range allowed {
		if err := CanTransition(tc.from, tc.to); err != nil {
			t.Fatalf("%s -> %s should be allowed: %v", tc.from, tc.to, err)
		}
	}

	rejected := []struct{ from, to string }{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusNoShow},
		{StatusCompleted, StatusCancelled},
		{StatusCancelled, StatusCancelled},
		{StatusCancelled, StatusConfirmed},
		{StatusNoShow, StatusConfirmed},
		{StatusConfirmed, StatusPending},
		{StatusConfirmed, "bogus"},
	}
	for _, tc := range rejected {
		err := CanTransition(tc.from, tc.to)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s -> %s should be rejected, got %v", tc.from, tc.to, err)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range []string{StatusCompleted, StatusCancelled, StatusNoShow} {
		if !IsTerminal(s) {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []string{StatusPending, StatusConfirmed} {
		if IsTerminal(s) {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}

func TestOccupiesSlot(t *testing.T) {
	for _, s := range []string{StatusPending, StatusConfirmed, StatusCompleted} {
		if !OccupiesSlot(s) {
			t.Fatalf("%s should occupy its slot", s)
		}
	}
	for _, s := range []string{StatusCancelled, StatusNoShow} {
		if OccupiesSlot(s) {
			t.Fatalf("%s should free its slot", s)
		}
	}
}
