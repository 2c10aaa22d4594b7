package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/slotly/libs/db"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/model"
)

// AppointmentRepository owns the appointments table. Slot exclusivity is
// enforced by a partial unique index on
// (business_id, staff_id, appointment_date, time_slot) restricted to statuses
// that occupy the slot ('pending','confirmed','completed'), so under
// concurrent inserts exactly one commits and the loser sees a conflict error.
// NULL staff_id ("any staff") rows never collide with each other.
type AppointmentRepository struct {
	pool *db.Pool
}

func NewAppointmentRepository(pool *db.Pool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool}
}

func (r *AppointmentRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// IsConflict matches both a unique-index violation and an exclusion
// constraint violation, whichever the schema uses for the slot key.
func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" || pgErr.Code == "23P01"
}

const appointmentColumns = `
	a.id::text, a.business_id::text, a.service_id::text, s.name,
	COALESCE(a.staff_id::text, ''), COALESCE(st.name, ''),
	a.customer_name, a.customer_phone, a.appointment_date, a.time_slot,
	a.status, COALESCE(a.notes, ''), a.created_at`

const appointmentJoins = `
	FROM appointments a
	JOIN services s ON s.id = a.service_id
	LEFT JOIN staff st ON st.id = a.staff_id`

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID,
		&a.BusinessID,
		&a.ServiceID,
		&a.ServiceName,
		&a.StaffID,
		&a.StaffName,
		&a.CustomerName,
		&a.CustomerPhone,
		&a.Date,
		&a.TimeSlot,
		&a.Status,
		&a.Notes,
		&a.CreatedAt,
	)
	return a, err
}

// CreateTx inserts inside the caller's transaction so the subscription gate,
// the availability re-check and the insert commit or roll back together.
func (r *AppointmentRepository) CreateTx(ctx context.Context, tx pgx.Tx, a *model.Appointment) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	var staffID any
	if a.StaffID != "" {
		staffID = a.StaffID
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO appointments
			(id, business_id, service_id, staff_id, customer_name, customer_phone,
			 appointment_date, time_slot, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, a.ID, a.BusinessID, a.ServiceID, staffID, a.CustomerName, a.CustomerPhone,
		a.Date, a.TimeSlot, a.Status, a.Notes).Scan(&a.CreatedAt)
	if err != nil {
		return "", err
	}
	return a.ID, nil
}

func (r *AppointmentRepository) Get(ctx context.Context, businessID, appointmentID string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+appointmentJoins+`
		WHERE a.id = $1 AND a.business_id = $2
	`, appointmentID, businessID)
	return scanAppointment(row)
}

// GetForUpdate locks the appointment row so concurrent status transitions
// serialize instead of both reading the same pre-transition state.
func (r *AppointmentRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, businessID, appointmentID string) (model.Appointment, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+appointmentColumns+appointmentJoins+`
		WHERE a.id = $1 AND a.business_id = $2
		FOR UPDATE OF a
	`, appointmentID, businessID)
	return scanAppointment(row)
}

func (r *AppointmentRepository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, businessID, appointmentID, status string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $3
		WHERE id = $1 AND business_id = $2
	`, appointmentID, businessID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// OccupiedSlots returns the slot labels held by active appointments for a
// staff member on a date. Cancelled and no-show rows do not occupy. An empty
// staffID selects the unassigned ("any staff") rows.
func (r *AppointmentRepository) OccupiedSlots(ctx context.Context, businessID, staffID, date string) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT time_slot
		FROM appointments
		WHERE business_id = $1
			AND ((NULLIF($2, '') IS NULL AND staff_id IS NULL) OR staff_id = NULLIF($2, '')::uuid)
			AND appointment_date = $3
			AND status IN ('pending', 'confirmed', 'completed')
	`, businessID, staffID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	occupied := make(map[string]bool)
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, err
		}
		occupied[slot] = true
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return occupied, nil
}

func (r *AppointmentRepository) ListByBusiness(ctx context.Context, businessID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+appointmentJoins+`
		WHERE a.business_id = $1
		ORDER BY a.appointment_date DESC, a.time_slot DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// ListSince supports incremental refresh by admin clients: appointments
// created after the given instant, oldest first.
func (r *AppointmentRepository) ListSince(ctx context.Context, businessID string, since string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+appointmentJoins+`
		WHERE a.business_id = $1 AND a.created_at > $2::timestamptz
		ORDER BY a.created_at ASC
		LIMIT $3
	`, businessID, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
