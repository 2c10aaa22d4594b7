package model

import "time"

// Business is the tenant root. Subscription state lives on the row itself:
// is_active is the operator suspension flag and is independent of expiry.
type Business struct {
	ID                  string
	Slug                string
	Name                string
	Description         string
	Phone               string
	Address             string
	Timezone            string
	OwnerEmail          string
	OpenMinute          int
	CloseMinute         int
	SlotStepMinutes     int
	SubscriptionPlan    string
	SubscriptionExpires time.Time
	IsActive            bool
	CreatedAt           time.Time
}

type Staff struct {
	ID          string
	BusinessID  string
	Name        string
	Phone       string
	Email       string
	WorkingDays []int // weekday indices, 0=Sunday .. 6=Saturday
	CreatedAt   time.Time
}

func (s Staff) WorksOn(weekday time.Weekday) bool {
	for _, d := range s.WorkingDays {
		if d == int(weekday) {
			return true
		}
	}
	return false
}

type Service struct {
	ID              string
	BusinessID      string
	Name            string
	Description     string
	DurationMinutes int
	Price           string // numeric, scanned as text
	CreatedAt       time.Time
}

// Appointment rows are immutable after creation except for status.
// StaffID is empty for "any staff" bookings.
type Appointment struct {
	ID            string
	BusinessID    string
	ServiceID     string
	ServiceName   string
	StaffID       string
	StaffName     string
	CustomerName  string
	CustomerPhone string
	Date          string // business-local calendar date, YYYY-MM-DD
	TimeSlot      string // grid slot label, HH:MM
	Status        string
	Notes         string
	CreatedAt     time.Time
}
