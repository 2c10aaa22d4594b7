package booking

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/availability"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/model"
)

func TestSlotErrorMapsIndexViolations(t *testing.T) {
	for _, code := range []string{"23505", "23P01"} {
		err := slotError(fmt.Errorf("insert appointment: %w", &pgconn.PgError{Code: code}))
		if !errors.Is(err, ErrSlotTaken) {
			t.Errorf("pg error %s: got %v, want ErrSlotTaken", code, err)
		}
	}

	plain := errors.New("connection reset")
	if got := slotError(plain); got != plain {
		t.Fatalf("unrelated errors must pass through, got %v", got)
	}
	if slotError(nil) != nil {
		t.Fatal("nil must pass through")
	}
}

func testBusiness() model.Business {
	return model.Business{
		ID:              "b-1",
		Timezone:        "UTC",
		OpenMinute:      availability.DefaultOpenMinute,
		CloseMinute:     availability.DefaultCloseMinute,
		SlotStepMinutes: availability.DefaultStepMinutes,
	}
}

func TestCheckSlotOffGrid(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	biz := testBusiness()

	for _, slot := range []string{"09:15", "07:00", "19:00", "nine", ""} {
		if err := CheckSlot(biz, "2026-03-02", slot, now); !errors.Is(err, ErrValidation) {
			t.Errorf("slot %q: got %v, want ErrValidation", slot, err)
		}
	}
}

func TestCheckSlotInPast(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	biz := testBusiness()

	if err := CheckSlot(biz, "2026-03-02", "10:00", now); !errors.Is(err, ErrSlotInPast) {
		t.Fatalf("got %v, want ErrSlotInPast", err)
	}
	// Exactly now is also rejected.
	if err := CheckSlot(biz, "2026-03-02", "12:00", now); !errors.Is(err, ErrSlotInPast) {
		t.Fatalf("slot at current instant: got %v, want ErrSlotInPast", err)
	}
	if err := CheckSlot(biz, "2026-03-01", "14:00", now); !errors.Is(err, ErrSlotInPast) {
		t.Fatalf("yesterday: got %v, want ErrSlotInPast", err)
	}
}

func TestCheckSlotFutureOK(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	biz := testBusiness()

	if err := CheckSlot(biz, "2026-03-02", "12:30", now); err != nil {
		t.Fatalf("later today: %v", err)
	}
	if err := CheckSlot(biz, "2026-03-03", "09:00", now); err != nil {
		t.Fatalf("tomorrow: %v", err)
	}
}

func TestCheckSlotUsesBusinessTimezone(t *testing.T) {
	// 12:00 UTC is 15:00 in Istanbul; a 14:00 Istanbul slot is already gone
	// there even though it reads as future in UTC.
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	biz := testBusiness()
	biz.Timezone = "Europe/Istanbul"

	if err := CheckSlot(biz, "2026-03-02", "14:00", now); !errors.Is(err, ErrSlotInPast) {
		t.Fatalf("got %v, want ErrSlotInPast", err)
	}
	if err := CheckSlot(biz, "2026-03-02", "15:30", now); err != nil {
		t.Fatalf("future Istanbul slot: %v", err)
	}
}

func TestCheckSlotUnknownTimezoneFallsBackToUTC(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	biz := testBusiness()
	biz.Timezone = "Not/AZone"

	if err := CheckSlot(biz, "2026-03-02", "12:30", now); err != nil {
		t.Fatalf("got %v, want nil", err)
	}
}

func TestCheckSlotCustomGrid(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	biz := testBusiness()
	biz.OpenMinute = 8 * 60
	biz.CloseMinute = 12 * 60
	biz.SlotStepMinutes = 20

	if err := CheckSlot(biz, "2026-03-02", "08:40", now); err != nil {
		t.Fatalf("on custom grid: %v", err)
	}
	if err := CheckSlot(biz, "2026-03-02", "08:30", now); !errors.Is(err, ErrValidation) {
		t.Fatalf("off custom grid: got %v, want ErrValidation", err)
	}
}
