package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/slotly/services/whatsapp-service/internal/phone"
	"github.com/md-rashed-zaman/slotly/services/whatsapp-service/internal/storage"
	"github.com/md-rashed-zaman/slotly/services/whatsapp-service/internal/wa"
)

// WhatsAppHandler exposes the bridge state and a manual send endpoint for
// the operator console.
type WhatsAppHandler struct {
	client     *wa.Client
	deliveries *storage.DeliveriesRepository
}

func NewWhatsAppHandler(client *wa.Client, deliveries *storage.DeliveriesRepository) *WhatsAppHandler {
	return &WhatsAppHandler{client: client, deliveries: deliveries}
}

func (h *WhatsAppHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st, err := h.client.Status(r.Context())
	if err != nil {
		// Bridge down is still a valid answer: not ready.
		st = wa.Status{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ready":            st.Ready,
		"has_pairing_code": st.PairingCode != "",
	})
}

func (h *WhatsAppHandler) PairingCode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	code, err := h.client.PairingCode(r.Context())
	if err != nil {
		http.Error(w, "bridge unavailable", http.StatusServiceUnavailable)
		return
	}
	if code == "" {
		http.Error(w, "no pairing code pending", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"pairing_code": code})
}

type sendRequest struct {
	Phone string `json:"phone"`
	Text  string `json:"text"`
}

func (h *WhatsAppHandler) Send(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	to := phone.Normalize(req.Phone)
	if to == "" || req.Text == "" {
		http.Error(w, "phone and text are required", http.StatusBadRequest)
		return
	}

	err := h.client.Send(r.Context(), to, req.Text)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"to": to, "status": "sent"})
	case errors.Is(err, wa.ErrNotReady):
		http.Error(w, "whatsapp session not ready", http.StatusConflict)
	default:
		http.Error(w, "delivery failed", http.StatusBadGateway)
	}
}

func (h *WhatsAppHandler) Deliveries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	deliveries, err := h.deliveries.ListRecent(r.Context(), limit)
	if err != nil {
		http.Error(w, "failed to load deliveries", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(deliveries)
}
