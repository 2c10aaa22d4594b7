package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/slotly/libs/db"
)

// Repository records operator and lifecycle actions for the platform log view.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Record(ctx context.Context, eventType, actorID, businessID string, metadata map[string]any) error {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit_events (event_type, actor_id, business_id, metadata)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, '')::uuid, $4)
	`, eventType, actorID, businessID, raw)
	return err
}

type Event struct {
	ID         int64           `json:"id"`
	EventType  string          `json:"event_type"`
	ActorID    string          `json:"actor_id,omitempty"`
	BusinessID string          `json:"business_id,omitempty"`
	Metadata   json.RawMessage `json:"metadata"`
	CreatedAt  string          `json:"created_at"`
}

// ListRecent returns the newest events first, optionally filtered by type.
func (r *Repository) ListRecent(ctx context.Context, eventType string, limit int) ([]Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_type, COALESCE(actor_id::text, ''), COALESCE(business_id::text, ''), metadata, created_at
		FROM audit_events
		WHERE $1 = '' OR event_type = $1
		ORDER BY id DESC
		LIMIT $2
	`, eventType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var createdAt time.Time
		if err := rows.Scan(&e.ID, &e.EventType, &e.ActorID, &e.BusinessID, &e.Metadata, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		events = append(events, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return events, nil
}
