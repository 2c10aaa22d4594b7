package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType (event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Topics emitted by the platform service. The whatsapp service consumes both.
const (
	EventAppointmentCreated       = "booking.appointment.created.v1"
	EventAppointmentStatusChanged = "booking.appointment.status_changed.v1"
)
