package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/model"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/outbox"
)

// Gateway turns appointment changes into outbox events. Messaging itself
// happens in the whatsapp service; this side only records intent
// transactionally with the booking.
type Gateway struct {
	outbox *outbox.Repository
}

func NewGateway(repo *outbox.Repository) *Gateway {
	return &Gateway{outbox: repo}
}

func (g *Gateway) AppointmentCreated(ctx context.Context, tx pgx.Tx, biz model.Business, a model.Appointment) error {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": a.ID,
		"business_id":    a.BusinessID,
		"business_name":  biz.Name,
		"business_phone": biz.Phone,
		"service_name":   a.ServiceName,
		"staff_name":     a.StaffName,
		"customer_name":  a.CustomerName,
		"customer_phone": a.CustomerPhone,
		"date":           a.Date,
		"time_slot":      a.TimeSlot,
		"created_at":     time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return g.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   a.ID,
		EventType:     outbox.EventAppointmentCreated,
		Payload:       payload,
	})
}

func (g *Gateway) StatusChanged(ctx context.Context, tx pgx.Tx, biz model.Business, a model.Appointment, oldStatus, newStatus string) error {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": a.ID,
		"business_id":    a.BusinessID,
		"business_name":  biz.Name,
		"service_name":   a.ServiceName,
		"customer_name":  a.CustomerName,
		"customer_phone": a.CustomerPhone,
		"date":           a.Date,
		"time_slot":      a.TimeSlot,
		"old_status":     oldStatus,
		"new_status":     newStatus,
		"changed_at":     time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return g.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   a.ID,
		EventType:     outbox.EventAppointmentStatusChanged,
		Payload:       payload,
	})
}
