package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/booking"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/model"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/storage"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/subscription"
)

// PublicHandler serves the customer-facing booking pages. Reads stay open
// even for suspended or expired tenants; only Book enforces the gate.
type PublicHandler struct {
	dir     *storage.Repository
	manager *booking.Manager
}

func NewPublicHandler(dir *storage.Repository, manager *booking.Manager) *PublicHandler {
	return &PublicHandler{dir: dir, manager: manager}
}

type publicBusinessResponse struct {
	ID              string `json:"id"`
	Slug            string `json:"slug"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Address         string `json:"address,omitempty"`
	Timezone        string `json:"timezone"`
	OpenMinute      int    `json:"open_minute"`
	CloseMinute     int    `json:"close_minute"`
	SlotStepMinutes int    `json:"slot_step_minutes"`
}

type publicStaffItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WorkingDays []int  `json:"working_days"`
}

type publicServiceItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           string `json:"price"`
}

func (h *PublicHandler) bySlug(w http.ResponseWriter, r *http.Request) (model.Business, bool) {
	slug := strings.TrimSpace(r.URL.Query().Get("slug"))
	if slug == "" {
		http.Error(w, "slug is required", http.StatusBadRequest)
		return model.Business{}, false
	}
	biz, err := h.dir.GetBusinessBySlug(r.Context(), slug)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "business not found", http.StatusNotFound)
			return model.Business{}, false
		}
		http.Error(w, "failed to load business", http.StatusInternalServerError)
		return model.Business{}, false
	}
	return biz, true
}

func (h *PublicHandler) Business(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	biz, ok := h.bySlug(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(publicBusinessResponse{
		ID:              biz.ID,
		Slug:            biz.Slug,
		Name:            biz.Name,
		Description:     biz.Description,
		Phone:           biz.Phone,
		Address:         biz.Address,
		Timezone:        biz.Timezone,
		OpenMinute:      biz.OpenMinute,
		CloseMinute:     biz.CloseMinute,
		SlotStepMinutes: biz.SlotStepMinutes,
	})
}

func (h *PublicHandler) Staff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	biz, ok := h.bySlug(w, r)
	if !ok {
		return
	}

	staff, err := h.dir.ListStaff(r.Context(), biz.ID, 0)
	if err != nil {
		http.Error(w, "failed to load staff", http.StatusInternalServerError)
		return
	}
	items := make([]publicStaffItem, 0, len(staff))
	for _, s := range staff {
		items = append(items, publicStaffItem{ID: s.ID, Name: s.Name, WorkingDays: s.WorkingDays})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(items)
}

func (h *PublicHandler) Services(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	biz, ok := h.bySlug(w, r)
	if !ok {
		return
	}

	services, err := h.dir.ListServices(r.Context(), biz.ID, 0)
	if err != nil {
		http.Error(w, "failed to load services", http.StatusInternalServerError)
		return
	}
	items := make([]publicServiceItem, 0, len(services))
	for _, s := range services {
		items = append(items, publicServiceItem{
			ID:              s.ID,
			Name:            s.Name,
			Description:     s.Description,
			DurationMinutes: s.DurationMinutes,
			Price:           s.Price,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(items)
}

func (h *PublicHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	biz, ok := h.bySlug(w, r)
	if !ok {
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	staffID := strings.TrimSpace(r.URL.Query().Get("staff_id"))
	slots, err := h.manager.AvailableSlots(r.Context(), biz, staffID, date)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrValidation):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, booking.ErrStaffUnavailable):
			http.Error(w, "staff member not found", http.StatusNotFound)
		default:
			http.Error(w, "failed to compute availability", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"date":  date,
		"slots": slots,
	})
}

type bookRequest struct {
	ServiceID     string `json:"service_id"`
	StaffID       string `json:"staff_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Date          string `json:"date"`
	TimeSlot      string `json:"time_slot"`
	Notes         string `json:"notes"`
}

type bookResponse struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	Date          string `json:"date"`
	TimeSlot      string `json:"time_slot"`
	CreatedAt     string `json:"created_at"`
}

func (h *PublicHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	biz, ok := h.bySlug(w, r)
	if !ok {
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	appt, err := h.manager.Book(r.Context(), booking.Request{
		BusinessID:    biz.ID,
		ServiceID:     strings.TrimSpace(req.ServiceID),
		StaffID:       strings.TrimSpace(req.StaffID),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Date:          strings.TrimSpace(req.Date),
		TimeSlot:      strings.TrimSpace(req.TimeSlot),
		Notes:         req.Notes,
	})
	if err != nil {
		writeBookingError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(bookResponse{
		AppointmentID: appt.ID,
		Status:        appt.Status,
		Date:          appt.Date,
		TimeSlot:      appt.TimeSlot,
		CreatedAt:     appt.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func writeBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrSlotTaken):
		http.Error(w, "time slot already booked", http.StatusConflict)
	case errors.Is(err, subscription.ErrTenantSuspended):
		http.Error(w, "business is suspended", http.StatusForbidden)
	case errors.Is(err, subscription.ErrSubscriptionExpired):
		http.Error(w, "subscription expired", http.StatusForbidden)
	case errors.Is(err, booking.ErrInvalidService):
		http.Error(w, "unknown service for this business", http.StatusBadRequest)
	case errors.Is(err, booking.ErrStaffUnavailable):
		http.Error(w, "staff member not available on that day", http.StatusBadRequest)
	case errors.Is(err, booking.ErrSlotInPast):
		http.Error(w, "time slot is in the past", http.StatusBadRequest)
	case errors.Is(err, booking.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case storage.IsNotFound(err):
		http.Error(w, "business not found", http.StatusNotFound)
	default:
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
	}
}
