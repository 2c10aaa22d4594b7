package lifecycle

import "errors"

// Appointment statuses. The string values are stored as-is.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// transitions is the closed table of admin-triggered moves. Terminal states
// (completed, cancelled, no_show) have no outgoing edges, so re-cancelling a
// cancelled appointment is rejected rather than silently accepted.
var transitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
}

func IsValid(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

func IsTerminal(status string) bool {
	return IsValid(status) && len(transitions[status]) == 0
}

// OccupiesSlot reports whether an appointment in this status holds its
// (staff, date, slot) key. Cancelled and no-show rows free the slot.
func OccupiesSlot(status string) bool {
	switch status {
	case StatusPending, StatusConfirmed, StatusCompleted:
		return true
	}
	return false
}

// CanTransition validates a move against the transition table.
func CanTransition(from, to string) error {
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return ErrInvalidTransition
}
