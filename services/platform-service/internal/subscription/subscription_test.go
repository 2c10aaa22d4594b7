package subscription

import (
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/model"
)

func TestCheckAccess(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	active := model.Business{IsActive: true, SubscriptionExpires: now.Add(24 * time.Hour)}
	if err := CheckAccess(active, now); err != nil {
		t.Fatalf("active business should pass: %v", err)
	}

	expired := model.Business{IsActive: true, SubscriptionExpires: now.Add(-time.Minute)}
	if err := CheckAccess(expired, now); !errors.Is(err, ErrSubscriptionExpired) {
		t.Fatalf("expected ErrSubscriptionExpired, got %v", err)
	}

	suspended := model.Business{IsActive: false, SubscriptionExpires: now.Add(24 * time.Hour)}
	if err := CheckAccess(suspended, now); !errors.Is(err, ErrTenantSuspended) {
		t.Fatalf("expected ErrTenantSuspended, got %v", err)
	}

	// Suspension takes precedence when both hold.
	both := model.Business{IsActive: false, SubscriptionExpires: now.Add(-24 * time.Hour)}
	if err := CheckAccess(both, now); !errors.Is(err, ErrTenantSuspended) {
		t.Fatalf("expected ErrTenantSuspended to win, got %v", err)
	}

	// Expiry boundary: exactly at expiry is still allowed.
	boundary := model.Business{IsActive: true, SubscriptionExpires: now}
	if err := CheckAccess(boundary, now); err != nil {
		t.Fatalf("expiry boundary should still pass: %v", err)
	}
}

func TestNormalizePlan(t *testing.T) {
	cases := map[string]string{
		"starter":      PlanStarter,
		"baslangic":    PlanStarter,
		"Profesyonel":  PlanProfessional,
		"professional": PlanProfessional,
		"isletme":      PlanBusiness,
		"business":     PlanBusiness,
		"enterprise":   PlanEnterprise,
		" starter ":    PlanStarter,
	}
	for in, want := range cases {
		got, err := NormalizePlan(in)
		if err != nil || got != want {
			t.Fatalf("NormalizePlan(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := NormalizePlan("gold"); !errors.Is(err, ErrUnknownPlan) {
		t.Fatalf("expected ErrUnknownPlan, got %v", err)
	}
}
