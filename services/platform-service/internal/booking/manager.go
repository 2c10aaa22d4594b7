package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/availability"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/lifecycle"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/model"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/notify"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/storage"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/subscription"
)

var (
	ErrValidation       = errors.New("invalid booking request")
	ErrInvalidService   = errors.New("service does not belong to business")
	ErrStaffUnavailable = errors.New("staff member not available")
	ErrSlotInPast       = errors.New("time slot is in the past")
	ErrSlotTaken        = errors.New("time slot already booked")
)

// Manager orchestrates the booking transaction. Preconditions run in a fixed
// order inside one tx so the response a caller gets is deterministic:
// subscription gate, service ownership, staff availability, slot validity,
// then the insert whose unique index decides races.
type Manager struct {
	dir    *storage.Repository
	appts  *storage.AppointmentRepository
	notify *notify.Gateway
}

func NewManager(dir *storage.Repository, appts *storage.AppointmentRepository, gateway *notify.Gateway) *Manager {
	return &Manager{dir: dir, appts: appts, notify: gateway}
}

type Request struct {
	BusinessID    string
	ServiceID     string
	StaffID       string
	CustomerName  string
	CustomerPhone string
	Date          string
	TimeSlot      string
	Notes         string
}

func (m *Manager) Book(ctx context.Context, req Request) (model.Appointment, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	if req.CustomerName == "" || req.CustomerPhone == "" {
		return model.Appointment{}, fmt.Errorf("%w: customer name and phone are required", ErrValidation)
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return model.Appointment{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}

	tx, err := m.dir.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	biz, err := m.dir.GetBusinessForUpdate(ctx, tx, req.BusinessID)
	if err != nil {
		return model.Appointment{}, err
	}
	now := time.Now()
	if err := subscription.CheckAccess(biz, now); err != nil {
		return model.Appointment{}, err
	}

	svc, err := m.dir.GetService(ctx, biz.ID, req.ServiceID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Appointment{}, ErrInvalidService
		}
		return model.Appointment{}, err
	}

	var staffName string
	if req.StaffID != "" {
		staff, err := m.dir.GetStaff(ctx, biz.ID, req.StaffID)
		if err != nil {
			if storage.IsNotFound(err) {
				return model.Appointment{}, ErrStaffUnavailable
			}
			return model.Appointment{}, err
		}
		loc := businessLocation(biz)
		day, _ := time.ParseInLocation("2006-01-02", req.Date, loc)
		if !staff.WorksOn(day.Weekday()) {
			return model.Appointment{}, ErrStaffUnavailable
		}
		staffName = staff.Name
	}

	if err := CheckSlot(biz, req.Date, req.TimeSlot, now); err != nil {
		return model.Appointment{}, err
	}

	appt := model.Appointment{
		BusinessID:    biz.ID,
		ServiceID:     svc.ID,
		ServiceName:   svc.Name,
		StaffID:       req.StaffID,
		StaffName:     staffName,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Date:          req.Date,
		TimeSlot:      req.TimeSlot,
		Status:        lifecycle.StatusPending,
		Notes:         strings.TrimSpace(req.Notes),
	}
	if _, err := m.appts.CreateTx(ctx, tx, &appt); err != nil {
		return model.Appointment{}, slotError(err)
	}

	if err := m.notify.AppointmentCreated(ctx, tx, biz, appt); err != nil {
		return model.Appointment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// UpdateStatus moves an appointment through the lifecycle. The business row
// is locked first, in the same order as Book, and the subscription gate runs
// before any write: a suspended or expired tenant cannot transition
// appointments either. The appointment row lock then serializes concurrent
// transitions so two callers cannot both read the same pre-transition state.
func (m *Manager) UpdateStatus(ctx context.Context, businessID, appointmentID, newStatus string) (model.Appointment, error) {
	if !lifecycle.IsValid(newStatus) {
		return model.Appointment{}, fmt.Errorf("%w: unknown status %q", ErrValidation, newStatus)
	}

	tx, err := m.appts.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	biz, err := m.dir.GetBusinessForUpdate(ctx, tx, businessID)
	if err != nil {
		return model.Appointment{}, err
	}
	if err := subscription.CheckAccess(biz, time.Now()); err != nil {
		return model.Appointment{}, err
	}

	appt, err := m.appts.GetForUpdate(ctx, tx, businessID, appointmentID)
	if err != nil {
		return model.Appointment{}, err
	}
	oldStatus := appt.Status
	if err := lifecycle.CanTransition(oldStatus, newStatus); err != nil {
		return model.Appointment{}, err
	}
	if err := m.appts.UpdateStatusTx(ctx, tx, businessID, appointmentID, newStatus); err != nil {
		return model.Appointment{}, err
	}
	appt.Status = newStatus

	if err := m.notify.StatusChanged(ctx, tx, biz, appt, oldStatus, newStatus); err != nil {
		return model.Appointment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// AvailableSlots lists the open slot labels for a date. An empty staffID asks
// about the unassigned pool, so the weekday rule does not apply.
func (m *Manager) AvailableSlots(ctx context.Context, biz model.Business, staffID, date string) ([]string, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}

	loc := businessLocation(biz)
	worksWeekday := true
	if staffID != "" {
		staff, err := m.dir.GetStaff(ctx, biz.ID, staffID)
		if err != nil {
			if storage.IsNotFound(err) {
				return nil, ErrStaffUnavailable
			}
			return nil, err
		}
		day, _ := time.ParseInLocation("2006-01-02", date, loc)
		worksWeekday = staff.WorksOn(day.Weekday())
	}

	occupied, err := m.appts.OccupiedSlots(ctx, biz.ID, staffID, date)
	if err != nil {
		return nil, err
	}

	grid := availability.Grid(biz.OpenMinute, biz.CloseMinute, biz.SlotStepMinutes)
	slots := availability.AvailableSlots(grid, occupied, date, worksWeekday, time.Now(), loc)
	if slots == nil {
		slots = []string{}
	}
	return slots, nil
}

// CheckSlot validates a requested slot against the business grid and the
// clock. It does not consult occupancy; the unique index owns that.
func CheckSlot(biz model.Business, date, slot string, now time.Time) error {
	grid := availability.Grid(biz.OpenMinute, biz.CloseMinute, biz.SlotStepMinutes)
	if !availability.OnGrid(grid, slot) {
		return fmt.Errorf("%w: time slot %q is not on the booking grid", ErrValidation, slot)
	}
	loc := businessLocation(biz)
	at, err := availability.SlotTime(date, slot, loc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if !at.After(now) {
		return ErrSlotInPast
	}
	return nil
}

// slotError converts losing the unique-index race into the caller-facing
// sentinel; anything else is an infrastructure failure and passes through.
func slotError(err error) error {
	if storage.IsConflict(err) {
		return ErrSlotTaken
	}
	return err
}

func businessLocation(biz model.Business) *time.Location {
	loc, err := time.LoadLocation(biz.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
