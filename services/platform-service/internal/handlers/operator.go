package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotly/libs/auth"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/audit"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/model"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/storage"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/subscription"
)

// OperatorHandler serves the platform operator console: cross-tenant stats
// and the subscription levers.
type OperatorHandler struct {
	secret string
	dir    *storage.Repository
	audit  *audit.Repository
}

func NewOperatorHandler(secret string, dir *storage.Repository, auditRepo *audit.Repository) *OperatorHandler {
	return &OperatorHandler{secret: secret, dir: dir, audit: auditRepo}
}

func (h *OperatorHandler) authorize(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := verifyRequest(r, h.secret)
	if !ok {
		http.Error(w, "missing or invalid token", http.StatusUnauthorized)
		return nil, false
	}
	if claims.Role != auth.RoleOperator {
		http.Error(w, "operator access required", http.StatusForbidden)
		return nil, false
	}
	return claims, true
}

func (h *OperatorHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	stats, err := h.dir.PlatformStats(r.Context(), time.Now())
	if err != nil {
		http.Error(w, "failed to load stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total_businesses":   stats.TotalBusinesses,
		"active_businesses":  stats.ActiveBusinesses,
		"total_users":        stats.TotalUsers,
		"total_appointments": stats.TotalAppointments,
		"today_appointments": stats.TodayAppointments,
		"monthly_revenue":    stats.MonthlyRevenue,
	})
}

type operatorBusinessItem struct {
	ID                  string `json:"id"`
	Slug                string `json:"slug"`
	Name                string `json:"name"`
	OwnerEmail          string `json:"owner_email,omitempty"`
	SubscriptionPlan    string `json:"subscription_plan"`
	SubscriptionExpires string `json:"subscription_expires"`
	DaysRemaining       int    `json:"days_remaining"`
	IsActive            bool   `json:"is_active"`
	CreatedAt           string `json:"created_at"`
}

func toOperatorBusinessItem(b model.Business, now time.Time) operatorBusinessItem {
	return operatorBusinessItem{
		ID:                  b.ID,
		Slug:                b.Slug,
		Name:                b.Name,
		OwnerEmail:          b.OwnerEmail,
		SubscriptionPlan:    b.SubscriptionPlan,
		SubscriptionExpires: b.SubscriptionExpires.UTC().Format(time.RFC3339),
		DaysRemaining:       daysRemaining(b.SubscriptionExpires, now),
		IsActive:            b.IsActive,
		CreatedAt:           b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// daysRemaining rounds up so a subscription expiring later today still
// reports one day, and never goes below zero.
func daysRemaining(expires, now time.Time) int {
	left := expires.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}

func (h *OperatorHandler) Businesses(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authorize(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		if id := strings.TrimSpace(r.URL.Query().Get("id")); id != "" {
			h.businessDetail(w, r, id)
			return
		}
		businesses, err := h.dir.ListBusinesses(r.Context(), queryLimit(r))
		if err != nil {
			http.Error(w, "failed to load businesses", http.StatusInternalServerError)
			return
		}
		now := time.Now()
		items := make([]operatorBusinessItem, 0, len(businesses))
		for _, b := range businesses {
			items = append(items, toOperatorBusinessItem(b, now))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(items)

	case http.MethodDelete:
		id := strings.TrimSpace(r.URL.Query().Get("id"))
		if id == "" {
			http.Error(w, "id is required", http.StatusBadRequest)
			return
		}
		if err := h.dir.DeleteBusinessCascade(r.Context(), id); err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "business not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to delete business", http.StatusInternalServerError)
			return
		}
		if h.audit != nil {
			_ = h.audit.Record(r.Context(), "tenant.deleted", claims.Sub, id, nil)
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *OperatorHandler) businessDetail(w http.ResponseWriter, r *http.Request, businessID string) {
	biz, err := h.dir.GetBusiness(r.Context(), businessID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "business not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load business", http.StatusInternalServerError)
		return
	}
	counts, err := h.dir.CountTenantRecords(r.Context(), businessID)
	if err != nil {
		http.Error(w, "failed to load tenant counts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"business":          toOperatorBusinessItem(biz, time.Now()),
		"staff_count":       counts.StaffCount,
		"service_count":     counts.ServiceCount,
		"appointment_count": counts.AppointmentCount,
	})
}

type suspendRequest struct {
	BusinessID string `json:"business_id"`
	Suspended  bool   `json:"suspended"`
}

// Suspend toggles the tenant kill switch. Suspension wins over an otherwise
// valid subscription; lifting it does not touch the expiry date.
func (h *OperatorHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req suspendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	if req.BusinessID == "" {
		http.Error(w, "business_id is required", http.StatusBadRequest)
		return
	}

	if err := h.dir.SetSuspended(r.Context(), req.BusinessID, req.Suspended); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "business not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update business", http.StatusInternalServerError)
		return
	}
	if h.audit != nil {
		eventType := "tenant.suspended"
		if !req.Suspended {
			eventType = "tenant.unsuspended"
		}
		_ = h.audit.Record(r.Context(), eventType, claims.Sub, req.BusinessID, nil)
	}
	w.WriteHeader(http.StatusNoContent)
}

type extendRequest struct {
	BusinessID string `json:"business_id"`
	Plan       string `json:"plan"`
	Days       int    `json:"days"`
}

// Extend records a manual payment: sets the plan and pushes the expiry
// forward from its current value, not from today.
func (h *OperatorHandler) Extend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req extendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BusinessID = strings.TrimSpace(req.BusinessID)
	if req.BusinessID == "" {
		http.Error(w, "business_id is required", http.StatusBadRequest)
		return
	}
	plan, err := subscription.NormalizePlan(req.Plan)
	if err != nil {
		if errors.Is(err, subscription.ErrUnknownPlan) {
			http.Error(w, "unknown plan", http.StatusBadRequest)
			return
		}
		http.Error(w, "invalid plan", http.StatusBadRequest)
		return
	}
	if req.Days <= 0 {
		req.Days = 30
	}

	expires, err := h.dir.ExtendSubscription(r.Context(), req.BusinessID, plan, req.Days)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "business not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to extend subscription", http.StatusInternalServerError)
		return
	}
	if h.audit != nil {
		_ = h.audit.Record(r.Context(), "subscription.extended", claims.Sub, req.BusinessID, map[string]any{
			"plan": plan,
			"days": req.Days,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"business_id":          req.BusinessID,
		"subscription_plan":    plan,
		"subscription_expires": expires.UTC().Format(time.RFC3339),
	})
}

func (h *OperatorHandler) Logs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.authorize(w, r); !ok {
		return
	}
	if h.audit == nil {
		http.Error(w, "audit not available", http.StatusNotFound)
		return
	}

	events, err := h.audit.ListRecent(r.Context(), strings.TrimSpace(r.URL.Query().Get("type")), queryLimit(r))
	if err != nil {
		http.Error(w, "failed to load audit events", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(events)
}
