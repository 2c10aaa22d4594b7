//go:build integration

package booking_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotly/libs/db"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/booking"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/lifecycle"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/model"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/notify"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/outbox"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/storage"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/subscription"
)

// Run with: go test -tags integration -run TestBooking ./... against a
// disposable database, e.g. TEST_DATABASE_URL=postgres://...:5432/slotly_test

var schema = []string{
	`CREATE TABLE IF NOT EXISTS businesses (
		id uuid PRIMARY KEY,
		slug text NOT NULL UNIQUE,
		name text NOT NULL,
		description text,
		phone text,
		address text,
		timezone text NOT NULL,
		owner_email text,
		open_minute int NOT NULL,
		close_minute int NOT NULL,
		slot_step_minutes int NOT NULL,
		subscription_plan text NOT NULL,
		subscription_expires timestamptz NOT NULL,
		is_active boolean NOT NULL DEFAULT true,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS staff (
		id uuid PRIMARY KEY,
		business_id uuid NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
		name text NOT NULL,
		phone text,
		email text,
		working_days int[] NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS services (
		id uuid PRIMARY KEY,
		business_id uuid NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
		name text NOT NULL,
		description text,
		duration_minutes int NOT NULL,
		price numeric NOT NULL DEFAULT 0,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id uuid PRIMARY KEY,
		business_id uuid NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
		service_id uuid NOT NULL REFERENCES services(id),
		staff_id uuid REFERENCES staff(id),
		customer_name text NOT NULL,
		customer_phone text NOT NULL,
		appointment_date text NOT NULL,
		time_slot text NOT NULL,
		status text NOT NULL,
		notes text,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS appointments_active_slot_idx
		ON appointments (business_id, staff_id, appointment_date, time_slot)
		WHERE status IN ('pending', 'confirmed', 'completed')`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id bigserial PRIMARY KEY,
		event_id uuid NOT NULL DEFAULT gen_random_uuid(),
		aggregate_type text NOT NULL,
		aggregate_id text NOT NULL,
		event_type text NOT NULL,
		payload jsonb NOT NULL,
		traceparent text NOT NULL DEFAULT '',
		tracestate text NOT NULL DEFAULT '',
		published_at timestamptz,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
}

type harness struct {
	pool    *db.Pool
	dir     *storage.Repository
	appts   *storage.AppointmentRepository
	manager *booking.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, url)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(pool.Close)

	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}

	dir := storage.NewRepository(pool)
	appts := storage.NewAppointmentRepository(pool)
	gateway := notify.NewGateway(outbox.NewRepository(pool))
	return &harness{
		pool:    pool,
		dir:     dir,
		appts:   appts,
		manager: booking.NewManager(dir, appts, gateway),
	}
}

// seedTenant creates an active business on a 30-day subscription with one
// service and one staff member who works every weekday number.
func (h *harness) seedTenant(t *testing.T) (model.Business, model.Service, model.Staff) {
	t.Helper()
	ctx := context.Background()

	biz, err := h.dir.CreateBusiness(ctx, model.Business{
		Slug:                fmt.Sprintf("salon-%d", time.Now().UnixNano()),
		Name:                "Test Salon",
		Timezone:            "UTC",
		SubscriptionPlan:    subscription.PlanStarter,
		SubscriptionExpires: time.Now().Add(30 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create business: %v", err)
	}
	svc, err := h.dir.CreateService(ctx, model.Service{
		BusinessID:      biz.ID,
		Name:            "Haircut",
		DurationMinutes: 30,
		Price:           "250",
	})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	st, err := h.dir.CreateStaff(ctx, model.Staff{
		BusinessID:  biz.ID,
		Name:        "Ali",
		WorkingDays: []int{0, 1, 2, 3, 4, 5, 6},
	})
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}
	return biz, svc, st
}

func futureDate(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format("2006-01-02")
}

func bookingRequest(biz model.Business, svc model.Service, st model.Staff, slot string) booking.Request {
	return booking.Request{
		BusinessID:    biz.ID,
		ServiceID:     svc.ID,
		StaffID:       st.ID,
		CustomerName:  "Ayşe Yılmaz",
		CustomerPhone: "05551234567",
		Date:          futureDate(7),
		TimeSlot:      slot,
	}
}

func TestBookingSlotIsExclusive(t *testing.T) {
	h := newHarness(t)
	biz, svc, st := h.seedTenant(t)
	ctx := context.Background()

	req := bookingRequest(biz, svc, st, "10:00")
	if _, err := h.manager.Book(ctx, req); err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if _, err := h.manager.Book(ctx, req); !errors.Is(err, booking.ErrSlotTaken) {
		t.Fatalf("second booking: got %v, want ErrSlotTaken", err)
	}
}

func TestBookingConcurrentRaceHasOneWinner(t *testing.T) {
	h := newHarness(t)
	biz, svc, st := h.seedTenant(t)
	ctx := context.Background()
	req := bookingRequest(biz, svc, st, "11:00")

	const callers = 4
	results := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.manager.Book(ctx, req)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var won, lost int
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, booking.ErrSlotTaken):
			lost++
		default:
			t.Fatalf("unexpected booking error: %v", err)
		}
	}
	if won != 1 || lost != callers-1 {
		t.Fatalf("got %d winners and %d losers, want 1 and %d", won, lost, callers-1)
	}
}

func TestCancellationFreesSlot(t *testing.T) {
	h := newHarness(t)
	biz, svc, st := h.seedTenant(t)
	ctx := context.Background()
	req := bookingRequest(biz, svc, st, "12:00")

	appt, err := h.manager.Book(ctx, req)
	if err != nil {
		t.Fatalf("booking: %v", err)
	}
	if _, err := h.manager.UpdateStatus(ctx, biz.ID, appt.ID, lifecycle.StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := h.manager.Book(ctx, req); err != nil {
		t.Fatalf("rebooking a cancelled slot: %v", err)
	}
}

func TestSubscriptionExtensionIsRolling(t *testing.T) {
	h := newHarness(t)
	biz, _, _ := h.seedTenant(t)
	ctx := context.Background()

	if _, err := h.dir.ExtendSubscription(ctx, biz.ID, subscription.PlanProfessional, 10); err != nil {
		t.Fatalf("first extension: %v", err)
	}
	expires, err := h.dir.ExtendSubscription(ctx, biz.ID, subscription.PlanProfessional, 5)
	if err != nil {
		t.Fatalf("second extension: %v", err)
	}

	want := biz.SubscriptionExpires.AddDate(0, 0, 15)
	if diff := expires.Sub(want); diff > time.Hour || diff < -time.Hour {
		t.Fatalf("expiry %v, want %v (+10 then +5 must stack)", expires, want)
	}
}

func TestSuspendedTenantCannotWrite(t *testing.T) {
	h := newHarness(t)
	biz, svc, st := h.seedTenant(t)
	ctx := context.Background()

	appt, err := h.manager.Book(ctx, bookingRequest(biz, svc, st, "13:00"))
	if err != nil {
		t.Fatalf("booking: %v", err)
	}
	if err := h.dir.SetSuspended(ctx, biz.ID, true); err != nil {
		t.Fatalf("suspend: %v", err)
	}

	if _, err := h.manager.Book(ctx, bookingRequest(biz, svc, st, "14:00")); !errors.Is(err, subscription.ErrTenantSuspended) {
		t.Fatalf("booking while suspended: got %v, want ErrTenantSuspended", err)
	}
	if _, err := h.manager.UpdateStatus(ctx, biz.ID, appt.ID, lifecycle.StatusConfirmed); !errors.Is(err, subscription.ErrTenantSuspended) {
		t.Fatalf("transition while suspended: got %v, want ErrTenantSuspended", err)
	}

	if err := h.dir.SetSuspended(ctx, biz.ID, false); err != nil {
		t.Fatalf("unsuspend: %v", err)
	}
	if _, err := h.manager.UpdateStatus(ctx, biz.ID, appt.ID, lifecycle.StatusConfirmed); err != nil {
		t.Fatalf("transition after unsuspend: %v", err)
	}
}

func TestExpiredTenantCannotWrite(t *testing.T) {
	h := newHarness(t)
	biz, svc, st := h.seedTenant(t)
	ctx := context.Background()

	appt, err := h.manager.Book(ctx, bookingRequest(biz, svc, st, "15:00"))
	if err != nil {
		t.Fatalf("booking: %v", err)
	}
	// Push the expiry into the past; the gate is evaluated lazily on access.
	if _, err := h.dir.ExtendSubscription(ctx, biz.ID, biz.SubscriptionPlan, -60); err != nil {
		t.Fatalf("expire: %v", err)
	}

	if _, err := h.manager.Book(ctx, bookingRequest(biz, svc, st, "16:00")); !errors.Is(err, subscription.ErrSubscriptionExpired) {
		t.Fatalf("booking while expired: got %v, want ErrSubscriptionExpired", err)
	}
	if _, err := h.manager.UpdateStatus(ctx, biz.ID, appt.ID, lifecycle.StatusConfirmed); !errors.Is(err, subscription.ErrSubscriptionExpired) {
		t.Fatalf("transition while expired: got %v, want ErrSubscriptionExpired", err)
	}
}
