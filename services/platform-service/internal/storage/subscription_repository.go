package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// SetSuspended toggles the operator suspension flag only. Idempotent: setting
// the flag to its current value is a no-op update, not an error.
func (r *Repository) SetSuspended(ctx context.Context, businessID string, suspend bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE businesses
		SET is_active = NOT $2
		WHERE id = $1
	`, businessID, suspend)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ExtendSubscription sets the plan and adds extensionDays to the current
// expiry in a single statement, so concurrent extensions compose additively
// instead of resetting from now.
func (r *Repository) ExtendSubscription(ctx context.Context, businessID, plan string, extensionDays int) (time.Time, error) {
	var expires time.Time
	err := r.pool.QueryRow(ctx, `
		UPDATE businesses
		SET subscription_plan = $2,
			subscription_expires = subscription_expires + make_interval(days => $3)
		WHERE id = $1
		RETURNING subscription_expires
	`, businessID, plan, extensionDays).Scan(&expires)
	return expires, err
}

// DeleteBusinessCascade removes a tenant and everything it owns in one
// transaction. Child rows go first so a failure never leaves orphans.
func (r *Repository) DeleteBusinessCascade(ctx context.Context, businessID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, stmt := range []string{
		`DELETE FROM appointments WHERE business_id = $1`,
		`DELETE FROM staff WHERE business_id = $1`,
		`DELETE FROM services WHERE business_id = $1`,
		`DELETE FROM users WHERE business_id = $1`,
	} {
		if _, err := tx.Exec(ctx, stmt, businessID); err != nil {
			return err
		}
	}

	tag, err := tx.Exec(ctx, `DELETE FROM businesses WHERE id = $1`, businessID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}
