package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/slotly/libs/db"
	"github.com/md-rashed-zaman/slotly/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotly/libs/otel"
	"github.com/segmentio/kafka-go"
)

// Publisher drains the outbox table to Kafka. It runs beside the HTTP server
// and is deliberately decoupled from request handling: a slow broker delays
// notifications, never bookings. Each drained event is written to the topic
// named after its event type (optionally prefixed, for shared clusters), and
// only events the broker accepted are marked published, so a partial write
// leaves the rest in place for the next tick.
type Publisher struct {
	pool        *db.Pool
	repo        *Repository
	logger      *slog.Logger
	brokers     []string
	topicPrefix string
	pollEvery   time.Duration
	batchSize   int
	retain      time.Duration
}

type PublisherConfig struct {
	Brokers     string
	TopicPrefix string
	PollEvery   time.Duration
	BatchSize   int
	// RetainPublished is how long delivered events stay in the table before
	// being pruned. Zero means the 24h default; negative disables pruning.
	RetainPublished time.Duration
}

func NewPublisher(pool *db.Pool, repo *Repository, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.RetainPublished == 0 {
		cfg.RetainPublished = 24 * time.Hour
	}
	return &Publisher{
		pool:        pool,
		repo:        repo,
		logger:      logger,
		brokers:     kafkax.SplitBrokers(cfg.Brokers),
		topicPrefix: cfg.TopicPrefix,
		pollEvery:   cfg.PollEvery,
		batchSize:   cfg.BatchSize,
		retain:      cfg.RetainPublished,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	if len(p.brokers) == 0 {
		p.logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}
	defer writer.Close()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()
	lastPrune := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drain(ctx, writer)
			if p.retain > 0 && time.Since(lastPrune) >= time.Hour {
				lastPrune = time.Now()
				if n, err := p.repo.DeletePublishedBefore(ctx, time.Now().Add(-p.retain)); err != nil {
					p.logger.Error("outbox prune failed", "err", err)
				} else if n > 0 {
					p.logger.Info("outbox pruned", "events", n)
				}
			}
		}
	}
}

// drain keeps publishing until the backlog is shorter than one batch, so a
// burst of bookings does not wait one poll interval per batch.
func (p *Publisher) drain(ctx context.Context, writer *kafka.Writer) {
	for {
		n, err := p.publishBatch(ctx, writer)
		if err != nil {
			p.logger.Error("outbox publish failed", "err", err)
			return
		}
		if n < p.batchSize {
			return
		}
	}
}

func (p *Publisher) topicFor(eventType string) string {
	return p.topicPrefix + eventType
}

// publishBatch locks one batch of unpublished events, writes them to Kafka in
// a single call, and marks only the accepted ones as published. It returns
// the number of events fetched.
func (p *Publisher) publishBatch(ctx context.Context, writer *kafka.Writer) (int, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	records, err := p.repo.FetchUnpublished(ctx, tx, p.batchSize)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, tx.Commit(ctx)
	}

	msgs := make([]kafka.Message, len(records))
	for i, r := range records {
		msgCtx := otelx.ContextWithTraceContext(ctx, r.Traceparent, r.Tracestate)
		msgs[i] = kafka.Message{
			Topic: p.topicFor(r.EventType),
			Key:   []byte(r.AggregateID),
			Value: r.Payload,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(r.EventID)},
				{Key: "event_type", Value: []byte(r.EventType)},
			},
		}
		msgs[i].Headers = kafkax.InjectTraceHeaders(msgCtx, msgs[i].Headers)
	}

	var accepted []int64
	writeErr := writer.WriteMessages(ctx, msgs...)
	switch werr := writeErr.(type) {
	case nil:
		for _, r := range records {
			accepted = append(accepted, r.ID)
		}
	case kafka.WriteErrors:
		for i, r := range records {
			if werr[i] == nil {
				accepted = append(accepted, r.ID)
			}
		}
	default:
		return 0, writeErr
	}

	if err := p.repo.MarkPublished(ctx, tx, accepted); err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	if writeErr != nil {
		return len(records), fmt.Errorf("%d of %d events rejected by broker: %w",
			len(records)-len(accepted), len(records), writeErr)
	}
	p.logger.Debug("outbox batch published", "events", len(records))
	return len(records), nil
}
