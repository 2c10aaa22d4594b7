package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotly/libs/auth"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/booking"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/lifecycle"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/model"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/storage"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/subscription"
)

// AdminHandler serves the owner dashboard. Every route is scoped to the
// business carried in the owner's token.
type AdminHandler struct {
	secret  string
	dir     *storage.Repository
	appts   *storage.AppointmentRepository
	manager *booking.Manager
}

func NewAdminHandler(secret string, dir *storage.Repository, appts *storage.AppointmentRepository, manager *booking.Manager) *AdminHandler {
	return &AdminHandler{secret: secret, dir: dir, appts: appts, manager: manager}
}

func (h *AdminHandler) authorize(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := verifyRequest(r, h.secret)
	if !ok {
		http.Error(w, "missing or invalid token", http.StatusUnauthorized)
		return nil, false
	}
	if claims.Role != auth.RoleOwner || claims.BusinessID == "" {
		http.Error(w, "owner access required", http.StatusForbidden)
		return nil, false
	}
	return claims, true
}

// requireActiveSubscription gates dashboard writes the same way public
// booking is gated. Reads stay available so a suspended owner can still see
// their data while sorting out payment.
func (h *AdminHandler) requireActiveSubscription(w http.ResponseWriter, r *http.Request, businessID string) bool {
	biz, err := h.dir.GetBusiness(r.Context(), businessID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "business not found", http.StatusNotFound)
			return false
		}
		http.Error(w, "failed to load business", http.StatusInternalServerError)
		return false
	}
	if err := subscription.CheckAccess(biz, time.Now()); err != nil {
		writeSubscriptionError(w, err)
		return false
	}
	return true
}

func writeSubscriptionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, subscription.ErrTenantSuspended):
		http.Error(w, "business is suspended", http.StatusForbidden)
	case errors.Is(err, subscription.ErrSubscriptionExpired):
		http.Error(w, "subscription expired", http.StatusForbidden)
	default:
		http.Error(w, "subscription check failed", http.StatusInternalServerError)
	}
}

type appointmentItem struct {
	ID            string `json:"id"`
	ServiceID     string `json:"service_id"`
	ServiceName   string `json:"service_name"`
	StaffID       string `json:"staff_id,omitempty"`
	StaffName     string `json:"staff_name,omitempty"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Date          string `json:"date"`
	TimeSlot      string `json:"time_slot"`
	Status        string `json:"status"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toAppointmentItem(a model.Appointment) appointmentItem {
	return appointmentItem{
		ID:            a.ID,
		ServiceID:     a.ServiceID,
		ServiceName:   a.ServiceName,
		StaffID:       a.StaffID,
		StaffName:     a.StaffName,
		CustomerName:  a.CustomerName,
		CustomerPhone: a.CustomerPhone,
		Date:          a.Date,
		TimeSlot:      a.TimeSlot,
		Status:        a.Status,
		Notes:         a.Notes,
		CreatedAt:     a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func queryLimit(r *http.Request) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// Appointments lists the tenant's appointments. A `since` timestamp switches
// to incremental mode: only rows created after it, oldest first, so dashboard
// clients can poll without refetching the whole list.
func (h *AdminHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var (
		appts []model.Appointment
		err   error
	)
	if since := strings.TrimSpace(r.URL.Query().Get("since")); since != "" {
		if _, parseErr := time.Parse(time.RFC3339, since); parseErr != nil {
			http.Error(w, "since must be an RFC3339 timestamp", http.StatusBadRequest)
			return
		}
		appts, err = h.appts.ListSince(r.Context(), claims.BusinessID, since, queryLimit(r))
	} else {
		appts, err = h.appts.ListByBusiness(r.Context(), claims.BusinessID, queryLimit(r))
	}
	if err != nil {
		http.Error(w, "failed to load appointments", http.StatusInternalServerError)
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, toAppointmentItem(a))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(items)
}

type statusRequest struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
}

func (h *AdminHandler) AppointmentStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	req.Status = strings.TrimSpace(req.Status)
	if req.AppointmentID == "" || req.Status == "" {
		http.Error(w, "appointment_id and status required", http.StatusBadRequest)
		return
	}

	appt, err := h.manager.UpdateStatus(r.Context(), claims.BusinessID, req.AppointmentID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, subscription.ErrTenantSuspended), errors.Is(err, subscription.ErrSubscriptionExpired):
			writeSubscriptionError(w, err)
		case errors.Is(err, booking.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, lifecycle.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		case storage.IsNotFound(err):
			http.Error(w, "appointment not found", http.StatusNotFound)
		default:
			http.Error(w, "failed to update appointment", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(toAppointmentItem(appt))
}

type staffRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	WorkingDays []int  `json:"working_days"`
}

type staffItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	WorkingDays []int  `json:"working_days"`
	CreatedAt   string `json:"created_at"`
}

func validWorkingDays(days []int) bool {
	for _, d := range days {
		if d < 0 || d > 6 {
			return false
		}
	}
	return true
}

func (h *AdminHandler) Staff(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authorize(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet && !h.requireActiveSubscription(w, r, claims.BusinessID) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		staff, err := h.dir.ListStaff(r.Context(), claims.BusinessID, queryLimit(r))
		if err != nil {
			http.Error(w, "failed to load staff", http.StatusInternalServerError)
			return
		}
		items := make([]staffItem, 0, len(staff))
		for _, s := range staff {
			items = append(items, staffItem{
				ID:          s.ID,
				Name:        s.Name,
				Phone:       s.Phone,
				Email:       s.Email,
				WorkingDays: s.WorkingDays,
				CreatedAt:   s.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(items)

	case http.MethodPost:
		var req staffRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}
		if !validWorkingDays(req.WorkingDays) {
			http.Error(w, "working_days must be weekday numbers 0-6", http.StatusBadRequest)
			return
		}
		s, err := h.dir.CreateStaff(r.Context(), model.Staff{
			BusinessID:  claims.BusinessID,
			Name:        req.Name,
			Phone:       strings.TrimSpace(req.Phone),
			Email:       strings.TrimSpace(req.Email),
			WorkingDays: req.WorkingDays,
		})
		if err != nil {
			http.Error(w, "failed to create staff", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(staffItem{
			ID:          s.ID,
			Name:        s.Name,
			Phone:       s.Phone,
			Email:       s.Email,
			WorkingDays: s.WorkingDays,
			CreatedAt:   s.CreatedAt.UTC().Format(time.RFC3339),
		})

	case http.MethodPut:
		var req staffRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.ID = strings.TrimSpace(req.ID)
		req.Name = strings.TrimSpace(req.Name)
		if req.ID == "" || req.Name == "" {
			http.Error(w, "id and name are required", http.StatusBadRequest)
			return
		}
		if !validWorkingDays(req.WorkingDays) {
			http.Error(w, "working_days must be weekday numbers 0-6", http.StatusBadRequest)
			return
		}
		err := h.dir.UpdateStaff(r.Context(), model.Staff{
			ID:          req.ID,
			BusinessID:  claims.BusinessID,
			Name:        req.Name,
			Phone:       strings.TrimSpace(req.Phone),
			Email:       strings.TrimSpace(req.Email),
			WorkingDays: req.WorkingDays,
		})
		if err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "staff member not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to update staff", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		staffID := strings.TrimSpace(r.URL.Query().Get("id"))
		if staffID == "" {
			http.Error(w, "id is required", http.StatusBadRequest)
			return
		}
		if err := h.dir.DeleteStaff(r.Context(), claims.BusinessID, staffID); err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "staff member not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to delete staff", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type serviceRequest struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           string `json:"price"`
}

type serviceItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           string `json:"price"`
	CreatedAt       string `json:"created_at"`
}

func (h *AdminHandler) Services(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authorize(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet && !h.requireActiveSubscription(w, r, claims.BusinessID) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		services, err := h.dir.ListServices(r.Context(), claims.BusinessID, queryLimit(r))
		if err != nil {
			http.Error(w, "failed to load services", http.StatusInternalServerError)
			return
		}
		items := make([]serviceItem, 0, len(services))
		for _, s := range services {
			items = append(items, serviceItem{
				ID:              s.ID,
				Name:            s.Name,
				Description:     s.Description,
				DurationMinutes: s.DurationMinutes,
				Price:           s.Price,
				CreatedAt:       s.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(items)

	case http.MethodPost:
		var req serviceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || req.DurationMinutes <= 0 {
			http.Error(w, "name and a positive duration_minutes are required", http.StatusBadRequest)
			return
		}
		if req.Price == "" {
			req.Price = "0"
		}
		s, err := h.dir.CreateService(r.Context(), model.Service{
			BusinessID:      claims.BusinessID,
			Name:            req.Name,
			Description:     strings.TrimSpace(req.Description),
			DurationMinutes: req.DurationMinutes,
			Price:           req.Price,
		})
		if err != nil {
			http.Error(w, "failed to create service", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(serviceItem{
			ID:              s.ID,
			Name:            s.Name,
			Description:     s.Description,
			DurationMinutes: s.DurationMinutes,
			Price:           s.Price,
			CreatedAt:       s.CreatedAt.UTC().Format(time.RFC3339),
		})

	case http.MethodPut:
		var req serviceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.ID = strings.TrimSpace(req.ID)
		req.Name = strings.TrimSpace(req.Name)
		if req.ID == "" || req.Name == "" || req.DurationMinutes <= 0 {
			http.Error(w, "id, name and a positive duration_minutes are required", http.StatusBadRequest)
			return
		}
		err := h.dir.UpdateService(r.Context(), model.Service{
			ID:              req.ID,
			BusinessID:      claims.BusinessID,
			Name:            req.Name,
			Description:     strings.TrimSpace(req.Description),
			DurationMinutes: req.DurationMinutes,
			Price:           req.Price,
		})
		if err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "service not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to update service", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		serviceID := strings.TrimSpace(r.URL.Query().Get("id"))
		if serviceID == "" {
			http.Error(w, "id is required", http.StatusBadRequest)
			return
		}
		if err := h.dir.DeleteService(r.Context(), claims.BusinessID, serviceID); err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "service not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to delete service", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type profileRequest struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Timezone    string `json:"timezone"`
}

func (h *AdminHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authorize(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet && !h.requireActiveSubscription(w, r, claims.BusinessID) {
		return
	}

	switch r.Method {
	case http.MethodGet:
		biz, err := h.dir.GetBusiness(r.Context(), claims.BusinessID)
		if err != nil {
			if storage.IsNotFound(err) {
				http.Error(w, "business not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to load business", http.StatusInternalServerError)
			return
		}
		writeProfile(w, http.StatusOK, biz)

	case http.MethodPut:
		var req profileRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		req.Slug = strings.TrimSpace(strings.ToLower(req.Slug))
		req.Name = strings.TrimSpace(req.Name)
		if req.Slug == "" || req.Name == "" {
			http.Error(w, "slug and name are required", http.StatusBadRequest)
			return
		}
		if req.Timezone == "" {
			cur, err := h.dir.GetBusiness(r.Context(), claims.BusinessID)
			if err != nil {
				http.Error(w, "failed to load business", http.StatusInternalServerError)
				return
			}
			req.Timezone = cur.Timezone
		} else if _, err := time.LoadLocation(req.Timezone); err != nil {
			http.Error(w, "unknown timezone", http.StatusBadRequest)
			return
		}
		biz, err := h.dir.UpdateBusinessProfile(r.Context(), model.Business{
			ID:          claims.BusinessID,
			Slug:        req.Slug,
			Name:        req.Name,
			Description: strings.TrimSpace(req.Description),
			Phone:       strings.TrimSpace(req.Phone),
			Address:     strings.TrimSpace(req.Address),
			Timezone:    req.Timezone,
		})
		if err != nil {
			switch {
			case storage.IsUniqueViolation(err):
				http.Error(w, "slug already in use", http.StatusConflict)
			case storage.IsNotFound(err):
				http.Error(w, "business not found", http.StatusNotFound)
			default:
				http.Error(w, "failed to update business", http.StatusInternalServerError)
			}
			return
		}
		writeProfile(w, http.StatusOK, biz)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func writeProfile(w http.ResponseWriter, status int, biz model.Business) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":                   biz.ID,
		"slug":                 biz.Slug,
		"name":                 biz.Name,
		"description":          biz.Description,
		"phone":                biz.Phone,
		"address":              biz.Address,
		"timezone":             biz.Timezone,
		"subscription_plan":    biz.SubscriptionPlan,
		"subscription_expires": biz.SubscriptionExpires.UTC().Format(time.RFC3339),
		"is_active":            biz.IsActive,
	})
}
