package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	libauth "github.com/md-rashed-zaman/slotly/libs/auth"
	"github.com/md-rashed-zaman/slotly/libs/config"
	"github.com/md-rashed-zaman/slotly/libs/db"
	"github.com/md-rashed-zaman/slotly/libs/httpx"
	"github.com/md-rashed-zaman/slotly/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotly/libs/otel"
	"github.com/md-rashed-zaman/slotly/libs/runtime"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/audit"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/booking"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/handlers"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/notify"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/outbox"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	service := config.String("SERVICE_NAME", "platform-service")
	port, err := config.Port("PORT", "8080")
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

	jwtSecret := config.String("JWT_SECRET", "dev-secret")
	tokenTTL := time.Duration(config.Int("TOKEN_TTL_HOURS", 24)) * time.Hour
	kafkaBrokers := config.String("KAFKA_BROKERS", "")

	dir := storage.NewRepository(pool)
	appts := storage.NewAppointmentRepository(pool)
	users := storage.NewUserRepository(pool)
	auditRepo := audit.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	gateway := notify.NewGateway(outboxRepo)
	manager := booking.NewManager(dir, appts, gateway)

	bootstrapOperator(ctx, logger, pool, users)

	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:     kafkaBrokers,
		TopicPrefix: config.String("KAFKA_TOPIC_PREFIX", ""),
		PollEvery:   2 * time.Second,
		BatchSize:   50,
	})
	go publisher.Run(ctx)

	authHandler := handlers.NewAuthHandler(jwtSecret, tokenTTL, pool, users, dir, auditRepo)
	publicHandler := handlers.NewPublicHandler(dir, manager)
	adminHandler := handlers.NewAdminHandler(jwtSecret, dir, appts, manager)
	operatorHandler := handlers.NewOperatorHandler(jwtSecret, dir, auditRepo)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if strings.TrimSpace(kafkaBrokers) != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}

	var rdb *redis.Client
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.HandleFunc("/api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("/api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("/api/v1/auth/me", authHandler.Me)
	mux.HandleFunc("/api/v1/public/business", publicHandler.Business)
	mux.HandleFunc("/api/v1/public/staff", publicHandler.Staff)
	mux.HandleFunc("/api/v1/public/services", publicHandler.Services)
	mux.HandleFunc("/api/v1/public/slots", publicHandler.Slots)
	mux.HandleFunc("/api/v1/public/book", publicHandler.Book)
	mux.HandleFunc("/api/v1/admin/appointments", adminHandler.Appointments)
	mux.HandleFunc("/api/v1/admin/appointments/status", adminHandler.AppointmentStatus)
	mux.HandleFunc("/api/v1/admin/staff", adminHandler.Staff)
	mux.HandleFunc("/api/v1/admin/services", adminHandler.Services)
	mux.HandleFunc("/api/v1/admin/profile", adminHandler.Profile)
	mux.HandleFunc("/api/v1/operator/stats", operatorHandler.Stats)
	mux.HandleFunc("/api/v1/operator/businesses", operatorHandler.Businesses)
	mux.HandleFunc("/api/v1/operator/businesses/suspend", operatorHandler.Suspend)
	mux.HandleFunc("/api/v1/operator/subscription/extend", operatorHandler.Extend)
	mux.HandleFunc("/api/v1/operator/logs", operatorHandler.Logs)

	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 60)
	var rateLimitMW httpx.Middleware
	if rdb != nil {
		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, isTruthy(config.String("RATE_LIMIT_FAIL_OPEN", "true")))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute)
	} else {
		rl := httpx.NewRateLimiter(limitPerMinute, time.Minute)
		rateLimitMW = rl.Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   parseList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods:   parseList(config.String("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS")),
			AllowedHeaders:   parseList(config.String("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id")),
			AllowCredentials: isTruthy(config.String("CORS_ALLOW_CREDENTIALS", "false")),
			MaxAge:           time.Duration(config.Int("CORS_MAX_AGE_SECONDS", 600)) * time.Second,
		}),
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(time.Duration(config.Int("REQUEST_TIMEOUT_SECONDS", 10))*time.Second),
		rateLimitMW,
	)
	handler = otelhttp.NewHandler(handler, "platform")
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

// bootstrapOperator seeds the platform operator account from env on first
// start. Skipped silently when the account already exists or env is unset.
func bootstrapOperator(ctx context.Context, logger *slog.Logger, pool *db.Pool, users *storage.UserRepository) {
	email := strings.TrimSpace(strings.ToLower(config.String("OPERATOR_EMAIL", "")))
	password := config.String("OPERATOR_PASSWORD", "")
	if email == "" || password == "" {
		return
	}
	if _, err := users.GetByEmail(ctx, email); err == nil {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("operator bootstrap failed", "err", err)
		return
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		logger.Error("operator bootstrap failed", "err", err)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := users.CreateTx(ctx, tx, storage.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         "Platform Operator",
		PasswordHash: string(hash),
		Role:         libauth.RoleOperator,
	}); err != nil {
		logger.Error("operator bootstrap failed", "err", err)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		logger.Error("operator bootstrap failed", "err", err)
		return
	}
	logger.Info("operator account created", "email", email)
}

func isTruthy(s string) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parseList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
