package subscription

import (
	"errors"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/model"
)

var (
	ErrTenantSuspended     = errors.New("tenant suspended")
	ErrSubscriptionExpired = errors.New("subscription expired")
	ErrUnknownPlan         = errors.New("unknown subscription plan")
)

const (
	PlanStarter      = "starter"
	PlanProfessional = "professional"
	PlanBusiness     = "business"
	PlanEnterprise   = "enterprise"
)

// TrialDays is the expiry window granted to a newly created business.
const TrialDays = 30

// NormalizePlan maps operator input to a canonical plan name. The legacy
// Turkish plan names are still accepted on the operator surface.
func NormalizePlan(plan string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case PlanStarter, "baslangic":
		return PlanStarter, nil
	case PlanProfessional, "profesyonel":
		return PlanProfessional, nil
	case PlanBusiness, "isletme":
		return PlanBusiness, nil
	case PlanEnterprise:
		return PlanEnterprise, nil
	}
	return "", ErrUnknownPlan
}

// CheckAccess gates every tenant-facing write. Operator suspension and organic
// expiry are evaluated independently; suspension wins when both hold.
func CheckAccess(biz model.Business, now time.Time) error {
	if !biz.IsActive {
		return ErrTenantSuspended
	}
	if now.After(biz.SubscriptionExpires) {
		return ErrSubscriptionExpired
	}
	return nil
}
