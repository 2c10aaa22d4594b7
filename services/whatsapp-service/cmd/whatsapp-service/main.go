package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotly/libs/config"
	"github.com/md-rashed-zaman/slotly/libs/db"
	"github.com/md-rashed-zaman/slotly/libs/httpx"
	"github.com/md-rashed-zaman/slotly/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotly/libs/otel"
	"github.com/md-rashed-zaman/slotly/libs/runtime"
	"github.com/md-rashed-zaman/slotly/services/whatsapp-service/internal/consumer"
	"github.com/md-rashed-zaman/slotly/services/whatsapp-service/internal/dispatch"
	"github.com/md-rashed-zaman/slotly/services/whatsapp-service/internal/handlers"
	"github.com/md-rashed-zaman/slotly/services/whatsapp-service/internal/inbox"
	"github.com/md-rashed-zaman/slotly/services/whatsapp-service/internal/storage"
	"github.com/md-rashed-zaman/slotly/services/whatsapp-service/internal/wa"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "whatsapp-service")
	port, err := config.Port("PORT", "8090")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	client := wa.NewClient(
		config.String("WHATSAPP_BRIDGE_URL", "http://localhost:3000"),
		config.String("WHATSAPP_BRIDGE_TOKEN", ""),
	)
	if err := client.Init(ctx); err != nil {
		logger.Warn("bridge session start failed; will retry via sends", "err", err)
	}
	defer func() {
		teardownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Teardown(teardownCtx); err != nil {
			logger.Warn("bridge session stop failed", "err", err)
		}
	}()

	deliveries := storage.NewDeliveriesRepository(pool)
	inboxRepo := inbox.NewRepository(pool)
	dispatcher := dispatch.New(client, deliveries, logger)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "whatsapp-service")
	startConsumer := func(topic string, handle func(context.Context, []byte) error) {
		if strings.TrimSpace(topic) == "" || strings.TrimSpace(kafkaBrokers) == "" {
			return
		}
		c := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: kafkaBrokers,
			GroupID: groupID,
			Topic:   topic,
		}, func(ctx context.Context, msg kafka.Message) error {
			return handle(ctx, msg.Value)
		})
		go c.Run(ctx)
	}
	startConsumer(config.String("KAFKA_TOPIC_CREATED", "booking.appointment.created.v1"), dispatcher.HandleCreated)
	startConsumer(config.String("KAFKA_TOPIC_STATUS", "booking.appointment.status_changed.v1"), dispatcher.HandleStatusChanged)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "bridge", Check: func(ctx context.Context) error {
			if _, err := client.Status(ctx); err != nil {
				return errors.New("bridge unreachable")
			}
			return nil
		}},
	}
	if strings.TrimSpace(kafkaBrokers) != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}

	waHandler := handlers.NewWhatsAppHandler(client, deliveries)
	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/v1/whatsapp/status", waHandler.Status)
	mux.HandleFunc("/api/v1/whatsapp/pairing-code", waHandler.PairingCode)
	mux.HandleFunc("/api/v1/whatsapp/send", waHandler.Send)
	mux.HandleFunc("/api/v1/whatsapp/deliveries", waHandler.Deliveries)

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
	)
	handler = otelhttp.NewHandler(handler, "whatsapp")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
