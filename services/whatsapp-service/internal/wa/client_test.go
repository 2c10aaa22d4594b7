package wa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusAndPairingCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(Status{Ready: false, PairingCode: "ABCD-1234"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Ready {
		t.Error("expected not ready")
	}
	code, err := c.PairingCode(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if code != "ABCD-1234" {
		t.Errorf("pairing code = %q", code)
	}
	if c.IsReady(context.Background()) {
		t.Error("IsReady should be false")
	}
}

func TestSendSuccess(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/send" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("authorization = %q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	if err := c.Send(context.Background(), "905551234567", "hello"); err != nil {
		t.Fatal(err)
	}
	if got["to"] != "905551234567" || got["text"] != "hello" {
		t.Errorf("payload = %v", got)
	}
}

func TestSendNotReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if err := c.Send(context.Background(), "90555", "x"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("got %v, want ErrNotReady", err)
	}
}

func TestSendDeliveryFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if err := c.Send(context.Background(), "90555", "x"); !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("got %v, want ErrDeliveryFailed", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if err := c.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.Teardown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 2 || calls[0] != "/session/start" || calls[1] != "/session/stop" {
		t.Errorf("calls = %v", calls)
	}
}

func TestUnconfiguredURL(t *testing.T) {
	c := NewClient("", "")
	if _, err := c.Status(context.Background()); err == nil {
		t.Error("expected error for unconfigured bridge url")
	}
}
