package message

import (
	"strings"
	"testing"
)

func TestCreatedIncludesDetails(t *testing.T) {
	text := Created(CreatedEvent{
		BusinessName:  "Salon Ayşe",
		BusinessPhone: "0212 555 11 22",
		ServiceName:   "Saç Kesimi",
		StaffName:     "Fatma",
		Date:          "2026-03-02",
		TimeSlot:      "10:30",
	})
	for _, want := range []string{"Salon Ayşe", "Saç Kesimi", "2026-03-02", "10:30", "Fatma", "0212 555 11 22"} {
		if !strings.Contains(text, want) {
			t.Errorf("message missing %q:\n%s", want, text)
		}
	}
}

func TestCreatedOmitsEmptyStaff(t *testing.T) {
	text := Created(CreatedEvent{
		BusinessName: "Salon",
		ServiceName:  "Manikür",
		Date:         "2026-03-02",
		TimeSlot:     "11:00",
	})
	if strings.Contains(text, "Personel") {
		t.Errorf("message should not mention staff:\n%s", text)
	}
}

func TestStatusChanged(t *testing.T) {
	base := StatusEvent{
		BusinessName: "Salon",
		ServiceName:  "Saç Kesimi",
		Date:         "2026-03-02",
		TimeSlot:     "10:30",
	}

	cases := map[string]string{
		"confirmed": "onaylandı",
		"cancelled": "iptal edildi",
		"completed": "tamamlandı",
	}
	for status, want := range cases {
		evt := base
		evt.NewStatus = status
		if text := StatusChanged(evt); !strings.Contains(text, want) {
			t.Errorf("status %q: message missing %q:\n%s", status, want, text)
		}
	}

	evt := base
	evt.NewStatus = "no_show"
	if text := StatusChanged(evt); text != "" {
		t.Errorf("no_show should produce no message, got:\n%s", text)
	}
}
