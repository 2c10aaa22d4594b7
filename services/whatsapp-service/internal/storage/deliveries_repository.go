package storage

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/slotly/libs/db"
)

const (
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
	DeliverySkipped = "skipped"
)

// Delivery is one attempted WhatsApp message, kept for the operator's
// delivery log and for debugging bridge outages.
type Delivery struct {
	ID            int64  `json:"id"`
	AppointmentID string `json:"appointment_id"`
	BusinessID    string `json:"business_id"`
	EventType     string `json:"event_type"`
	Recipient     string `json:"recipient"`
	Body          string `json:"body"`
	Status        string `json:"status"`
	ErrorReason   string `json:"error_reason,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type DeliveriesRepository struct {
	pool *db.Pool
}

func NewDeliveriesRepository(pool *db.Pool) *DeliveriesRepository {
	return &DeliveriesRepository{pool: pool}
}

func (r *DeliveriesRepository) Insert(ctx context.Context, d Delivery) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO whatsapp_deliveries (appointment_id, business_id, event_type, recipient, body, status, error_reason)
		VALUES (NULLIF($1, '')::uuid, NULLIF($2, '')::uuid, $3, $4, $5, $6, NULLIF($7, ''))
	`, d.AppointmentID, d.BusinessID, d.EventType, d.Recipient, d.Body, d.Status, d.ErrorReason)
	return err
}

func (r *DeliveriesRepository) ListRecent(ctx context.Context, limit int) ([]Delivery, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, COALESCE(appointment_id::text, ''), COALESCE(business_id::text, ''),
			event_type, recipient, body, status, COALESCE(error_reason, ''), created_at
		FROM whatsapp_deliveries
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var d Delivery
		var createdAt time.Time
		if err := rows.Scan(&d.ID, &d.AppointmentID, &d.BusinessID, &d.EventType, &d.Recipient, &d.Body, &d.Status, &d.ErrorReason, &createdAt); err != nil {
			return nil, err
		}
		d.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		out = append(out, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
