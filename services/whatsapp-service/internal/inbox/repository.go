package inbox

import (
	"context"

	"github.com/md-rashed-zaman/slotly/libs/db"
)

// Repository dedupes consumed events so redelivered Kafka messages never
// cause a second WhatsApp send.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record claims the event id. Returns false for an already-seen event; the
// conflict target is the inbox_events primary key.
func (r *Repository) Record(ctx context.Context, eventID string, eventType string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, eventType)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
