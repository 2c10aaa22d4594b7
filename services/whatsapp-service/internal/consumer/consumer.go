package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/slotly/libs/kafkax"
	"github.com/md-rashed-zaman/slotly/services/whatsapp-service/internal/inbox"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Consumer reads one booking-event topic and hands deduped messages to the
// handler. Handler errors are logged and the message is dropped; delivery
// problems are recorded by the handler itself, not retried at this layer.
type Consumer struct {
	reader      *kafka.Reader
	logger      *slog.Logger
	inbox       *inbox.Repository
	handler     Handler
	topic       string
	groupID     string
	readBackoff time.Duration
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
	// ReadBackoff is the pause after a failed read before retrying; zero
	// means one second.
	ReadBackoff time.Duration
}

func New(logger *slog.Logger, inboxRepo *inbox.Repository, cfg Config, handler Handler) *Consumer {
	if cfg.ReadBackoff <= 0 {
		cfg.ReadBackoff = time.Second
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  kafkax.SplitBrokers(cfg.Brokers),
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader:      reader,
		logger:      logger,
		inbox:       inboxRepo,
		handler:     handler,
		topic:       cfg.Topic,
		groupID:     cfg.GroupID,
		readBackoff: cfg.ReadBackoff,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()
	c.logger.Info("consumer started", "topic", c.topic, "group", c.groupID)

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "topic", c.topic, "err", err)
			time.Sleep(c.readBackoff)
			continue
		}
		c.process(ctx, msg)
	}
}

func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	ctx = kafkax.ExtractTraceContext(ctx, msg)
	ctx, span := otel.Tracer("kafka").Start(ctx, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID == "" {
		// No id means no dedupe key; process it rather than drop it, a
		// duplicate text beats a silently missing one.
		c.logger.Warn("event without id, skipping dedupe", "topic", msg.Topic)
	} else {
		fresh, err := c.inbox.Record(ctx, meta.EventID, meta.EventType)
		if err != nil {
			c.logger.Error("inbox record failed", "err", err, "event_id", meta.EventID)
			span.RecordError(err)
			return
		}
		if !fresh {
			c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
			return
		}
	}

	if err := c.handler(ctx, msg); err != nil {
		c.logger.Error("handler error", "err", err, "event_id", meta.EventID)
		span.RecordError(err)
	}
}
