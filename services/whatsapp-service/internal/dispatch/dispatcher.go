package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/md-rashed-zaman/slotly/services/whatsapp-service/internal/message"
	"github.com/md-rashed-zaman/slotly/services/whatsapp-service/internal/phone"
	"github.com/md-rashed-zaman/slotly/services/whatsapp-service/internal/storage"
	"github.com/md-rashed-zaman/slotly/services/whatsapp-service/internal/wa"
)

// Dispatcher is the best-effort delivery path: a failed send is recorded and
// dropped, never retried, and never propagated back to the booking flow.
type Dispatcher struct {
	client     *wa.Client
	deliveries *storage.DeliveriesRepository
	logger     *slog.Logger
}

func New(client *wa.Client, deliveries *storage.DeliveriesRepository, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{client: client, deliveries: deliveries, logger: logger}
}

func (d *Dispatcher) HandleCreated(ctx context.Context, payload []byte) error {
	var evt message.CreatedEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		d.logger.Error("invalid created event payload", "err", err)
		return nil
	}
	return d.deliver(ctx, evt.AppointmentID, evt.BusinessID, "booking_created", evt.CustomerPhone, message.Created(evt))
}

func (d *Dispatcher) HandleStatusChanged(ctx context.Context, payload []byte) error {
	var evt message.StatusEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		d.logger.Error("invalid status event payload", "err", err)
		return nil
	}
	text := message.StatusChanged(evt)
	if text == "" {
		return nil
	}
	return d.deliver(ctx, evt.AppointmentID, evt.BusinessID, "status_changed", evt.CustomerPhone, text)
}

func (d *Dispatcher) deliver(ctx context.Context, appointmentID, businessID, eventType, rawPhone, text string) error {
	delivery := storage.Delivery{
		AppointmentID: appointmentID,
		BusinessID:    businessID,
		EventType:     eventType,
		Body:          text,
	}

	to := phone.Normalize(rawPhone)
	if to == "" {
		delivery.Status = storage.DeliverySkipped
		delivery.ErrorReason = "no usable phone number"
		return d.record(ctx, delivery)
	}
	delivery.Recipient = to

	err := d.client.Send(ctx, to, text)
	switch {
	case err == nil:
		delivery.Status = storage.DeliverySent
	case errors.Is(err, wa.ErrNotReady):
		delivery.Status = storage.DeliveryFailed
		delivery.ErrorReason = "bridge not ready"
		d.logger.Warn("message dropped, bridge not ready", "appointment_id", appointmentID)
	default:
		delivery.Status = storage.DeliveryFailed
		delivery.ErrorReason = err.Error()
		d.logger.Error("message delivery failed", "err", err, "appointment_id", appointmentID)
	}
	return d.record(ctx, delivery)
}

func (d *Dispatcher) record(ctx context.Context, delivery storage.Delivery) error {
	if err := d.deliveries.Insert(ctx, delivery); err != nil {
		d.logger.Error("delivery record failed", "err", err)
	}
	return nil
}
