package message

import (
	"fmt"
	"strings"
)

// CreatedEvent mirrors the booking.appointment.created.v1 payload.
type CreatedEvent struct {
	AppointmentID string `json:"appointment_id"`
	BusinessID    string `json:"business_id"`
	BusinessName  string `json:"business_name"`
	BusinessPhone string `json:"business_phone"`
	ServiceName   string `json:"service_name"`
	StaffName     string `json:"staff_name"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Date          string `json:"date"`
	TimeSlot      string `json:"time_slot"`
}

// StatusEvent mirrors the booking.appointment.status_changed.v1 payload.
type StatusEvent struct {
	AppointmentID string `json:"appointment_id"`
	BusinessID    string `json:"business_id"`
	BusinessName  string `json:"business_name"`
	ServiceName   string `json:"service_name"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Date          string `json:"date"`
	TimeSlot      string `json:"time_slot"`
	OldStatus     string `json:"old_status"`
	NewStatus     string `json:"new_status"`
}

// Created renders the customer confirmation sent right after booking.
func Created(evt CreatedEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Randevunuz alındı - %s\n", evt.BusinessName)
	fmt.Fprintf(&b, "Hizmet: %s\n", evt.ServiceName)
	fmt.Fprintf(&b, "Tarih: %s saat %s", evt.Date, evt.TimeSlot)
	if evt.StaffName != "" {
		fmt.Fprintf(&b, "\nPersonel: %s", evt.StaffName)
	}
	if evt.BusinessPhone != "" {
		fmt.Fprintf(&b, "\nİletişim: %s", evt.BusinessPhone)
	}
	return b.String()
}

// StatusChanged renders the follow-up for a lifecycle transition. Returns ""
// for transitions customers should not be messaged about.
func StatusChanged(evt StatusEvent) string {
	var headline string
	switch evt.NewStatus {
	case "confirmed":
		headline = "Randevunuz onaylandı"
	case "cancelled":
		headline = "Randevunuz iptal edildi"
	case "completed":
		headline = "Randevunuz tamamlandı, teşekkür ederiz"
	default:
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s\n", headline, evt.BusinessName)
	fmt.Fprintf(&b, "Hizmet: %s\n", evt.ServiceName)
	fmt.Fprintf(&b, "Tarih: %s saat %s", evt.Date, evt.TimeSlot)
	return b.String()
}
