package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/slotly/libs/db"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/availability"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/model"
)

// Repository is the tenant directory: businesses and the staff/service records
// they own. Appointment access lives in AppointmentRepository.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

const businessColumns = `
	id::text, slug, name, COALESCE(description, ''), COALESCE(phone, ''), COALESCE(address, ''),
	timezone, COALESCE(owner_email, ''), open_minute, close_minute, slot_step_minutes,
	subscription_plan, subscription_expires, is_active, created_at`

func scanBusiness(row pgx.Row) (model.Business, error) {
	var b model.Business
	err := row.Scan(
		&b.ID,
		&b.Slug,
		&b.Name,
		&b.Description,
		&b.Phone,
		&b.Address,
		&b.Timezone,
		&b.OwnerEmail,
		&b.OpenMinute,
		&b.CloseMinute,
		&b.SlotStepMinutes,
		&b.SubscriptionPlan,
		&b.SubscriptionExpires,
		&b.IsActive,
		&b.CreatedAt,
	)
	return b, err
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repository) CreateBusiness(ctx context.Context, b model.Business) (model.Business, error) {
	return r.insertBusiness(ctx, r.pool, b)
}

// CreateBusinessTx inserts inside the caller's transaction; registration
// creates the business and its owner user atomically.
func (r *Repository) CreateBusinessTx(ctx context.Context, tx pgx.Tx, b model.Business) (model.Business, error) {
	return r.insertBusiness(ctx, tx, b)
}

func (r *Repository) insertBusiness(ctx context.Context, q rowQuerier, b model.Business) (model.Business, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Timezone == "" {
		b.Timezone = "Europe/Istanbul"
	}
	if b.SlotStepMinutes <= 0 {
		b.OpenMinute = availability.DefaultOpenMinute
		b.CloseMinute = availability.DefaultCloseMinute
		b.SlotStepMinutes = availability.DefaultStepMinutes
	}
	row := q.QueryRow(ctx, `
		INSERT INTO businesses
			(id, slug, name, description, phone, address, timezone, owner_email,
			 open_minute, close_minute, slot_step_minutes,
			 subscription_plan, subscription_expires, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, true)
		RETURNING `+businessColumns+`
	`, b.ID, b.Slug, b.Name, b.Description, b.Phone, b.Address, b.Timezone, b.OwnerEmail,
		b.OpenMinute, b.CloseMinute, b.SlotStepMinutes,
		b.SubscriptionPlan, b.SubscriptionExpires)
	return scanBusiness(row)
}

func (r *Repository) GetBusiness(ctx context.Context, businessID string) (model.Business, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+businessColumns+`
		FROM businesses
		WHERE id = $1
	`, businessID)
	return scanBusiness(row)
}

func (r *Repository) GetBusinessBySlug(ctx context.Context, slug string) (model.Business, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+businessColumns+`
		FROM businesses
		WHERE slug = $1
	`, slug)
	return scanBusiness(row)
}

// GetBusinessForUpdate locks the business row for the duration of tx. The
// booking path uses this so the subscription gate and the appointment insert
// see a consistent row even while the operator is toggling suspension.
func (r *Repository) GetBusinessForUpdate(ctx context.Context, tx pgx.Tx, businessID string) (model.Business, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+businessColumns+`
		FROM businesses
		WHERE id = $1
		FOR UPDATE
	`, businessID)
	return scanBusiness(row)
}

func (r *Repository) UpdateBusinessProfile(ctx context.Context, b model.Business) (model.Business, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE businesses
		SET slug = $2,
			name = $3,
			description = $4,
			phone = $5,
			address = $6,
			timezone = $7
		WHERE id = $1
		RETURNING `+businessColumns+`
	`, b.ID, b.Slug, b.Name, b.Description, b.Phone, b.Address, b.Timezone)
	return scanBusiness(row)
}

func (r *Repository) ListBusinesses(ctx context.Context, limit int) ([]model.Business, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+businessColumns+`
		FROM businesses
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) CreateStaff(ctx context.Context, s model.Staff) (model.Staff, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if len(s.WorkingDays) == 0 {
		s.WorkingDays = []int{1, 2, 3, 4, 5}
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO staff (id, business_id, name, phone, email, working_days)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, s.ID, s.BusinessID, s.Name, s.Phone, s.Email, s.WorkingDays).Scan(&s.CreatedAt)
	if err != nil {
		return model.Staff{}, err
	}
	return s, nil
}

func (r *Repository) GetStaff(ctx context.Context, businessID, staffID string) (model.Staff, error) {
	var s model.Staff
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, business_id::text, name, COALESCE(phone, ''), COALESCE(email, ''), working_days, created_at
		FROM staff
		WHERE business_id = $1 AND id = $2
	`, businessID, staffID).Scan(&s.ID, &s.BusinessID, &s.Name, &s.Phone, &s.Email, &s.WorkingDays, &s.CreatedAt)
	if err != nil {
		return model.Staff{}, err
	}
	return s, nil
}

func (r *Repository) ListStaff(ctx context.Context, businessID string, limit int) ([]model.Staff, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, name, COALESCE(phone, ''), COALESCE(email, ''), working_days, created_at
		FROM staff
		WHERE business_id = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Staff
	for rows.Next() {
		var s model.Staff
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.Phone, &s.Email, &s.WorkingDays, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// UpdateStaff replaces the mutable fields. A working_days edit does not touch
// existing appointments; the weekday rule applies at booking time only.
func (r *Repository) UpdateStaff(ctx context.Context, s model.Staff) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE staff
		SET name = $3, phone = $4, email = $5, working_days = $6
		WHERE business_id = $1 AND id = $2
	`, s.BusinessID, s.ID, s.Name, s.Phone, s.Email, s.WorkingDays)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) DeleteStaff(ctx context.Context, businessID, staffID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM staff
		WHERE business_id = $1 AND id = $2
	`, businessID, staffID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) CreateService(ctx context.Context, s model.Service) (model.Service, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO services (id, business_id, name, description, duration_minutes, price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, s.ID, s.BusinessID, s.Name, s.Description, s.DurationMinutes, s.Price).Scan(&s.CreatedAt)
	if err != nil {
		return model.Service{}, err
	}
	return s, nil
}

func (r *Repository) GetService(ctx context.Context, businessID, serviceID string) (model.Service, error) {
	var s model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, business_id::text, name, COALESCE(description, ''), duration_minutes, price::text, created_at
		FROM services
		WHERE business_id = $1 AND id = $2
	`, businessID, serviceID).Scan(&s.ID, &s.BusinessID, &s.Name, &s.Description, &s.DurationMinutes, &s.Price, &s.CreatedAt)
	if err != nil {
		return model.Service{}, err
	}
	return s, nil
}

func (r *Repository) ListServices(ctx context.Context, businessID string, limit int) ([]model.Service, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, name, COALESCE(description, ''), duration_minutes, price::text, created_at
		FROM services
		WHERE business_id = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.Description, &s.DurationMinutes, &s.Price, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) UpdateService(ctx context.Context, s model.Service) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE services
		SET name = $3, description = $4, duration_minutes = $5, price = $6
		WHERE business_id = $1 AND id = $2
	`, s.BusinessID, s.ID, s.Name, s.Description, s.DurationMinutes, s.Price)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) DeleteService(ctx context.Context, businessID, serviceID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM services
		WHERE business_id = $1 AND id = $2
	`, businessID, serviceID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// TenantCounts backs the operator's per-business detail view.
type TenantCounts struct {
	StaffCount       int
	ServiceCount     int
	AppointmentCount int
}

func (r *Repository) CountTenantRecords(ctx context.Context, businessID string) (TenantCounts, error) {
	var c TenantCounts
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM staff WHERE business_id = $1),
			(SELECT COUNT(*) FROM services WHERE business_id = $1),
			(SELECT COUNT(*) FROM appointments WHERE business_id = $1)
	`, businessID).Scan(&c.StaffCount, &c.ServiceCount, &c.AppointmentCount)
	return c, err
}

// PlatformStats backs the operator dashboard.
type PlatformStats struct {
	TotalBusinesses   int
	ActiveBusinesses  int
	TotalUsers        int
	TotalAppointments int
	TodayAppointments int
	MonthlyRevenue    string
}

func (r *Repository) PlatformStats(ctx context.Context, now time.Time) (PlatformStats, error) {
	var s PlatformStats
	today := now.UTC().Format("2006-01-02")
	monthPrefix := now.UTC().Format("2006-01") + "%"
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM businesses),
			(SELECT COUNT(*) FROM businesses WHERE is_active),
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM appointments),
			(SELECT COUNT(*) FROM appointments WHERE appointment_date = $1),
			(SELECT COALESCE(SUM(s.price), 0)::text
			 FROM appointments a
			 JOIN services s ON s.id = a.service_id
			 WHERE a.status = 'completed' AND a.appointment_date LIKE $2)
	`, today, monthPrefix).Scan(
		&s.TotalBusinesses,
		&s.ActiveBusinesses,
		&s.TotalUsers,
		&s.TotalAppointments,
		&s.TodayAppointments,
		&s.MonthlyRevenue,
	)
	return s, err
}
