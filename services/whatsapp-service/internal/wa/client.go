package wa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNotReady       = errors.New("whatsapp bridge not ready")
	ErrDeliveryFailed = errors.New("whatsapp delivery failed")
)

// Client talks to the WhatsApp bridge process over its local HTTP API. The
// bridge owns the actual session; this side only observes readiness and
// submits sends.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type Status struct {
	Ready       bool   `json:"ready"`
	PairingCode string `json:"pairing_code,omitempty"`
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if c.baseURL == "" {
		return nil, errors.New("whatsapp bridge url not configured")
	}
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.http.Do(req)
}

// Init asks the bridge to start its session. Safe to call when a session is
// already running.
func (c *Client) Init(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/session/start", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("bridge session start returned %d", resp.StatusCode)
	}
	return nil
}

// Teardown asks the bridge to close its session.
func (c *Client) Teardown(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/session/stop", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("bridge session stop returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	resp, err := c.do(ctx, http.MethodGet, "/status", nil)
	if err != nil {
		return Status{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Status{}, fmt.Errorf("bridge status returned %d", resp.StatusCode)
	}
	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return Status{}, err
	}
	return st, nil
}

// IsReady reports whether the bridge has a live session. Any bridge error
// counts as not ready.
func (c *Client) IsReady(ctx context.Context) bool {
	st, err := c.Status(ctx)
	return err == nil && st.Ready
}

// PairingCode returns the code to link a phone to the bridge session. Empty
// when the session is already paired.
func (c *Client) PairingCode(ctx context.Context) (string, error) {
	st, err := c.Status(ctx)
	if err != nil {
		return "", err
	}
	return st.PairingCode, nil
}

// Send submits one text message. A bridge that reports no session maps to
// ErrNotReady; every other non-2xx maps to ErrDeliveryFailed.
func (c *Client) Send(ctx context.Context, to, text string) error {
	resp, err := c.do(ctx, http.MethodPost, "/send", map[string]string{
		"to":   to,
		"text": text,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusServiceUnavailable:
		return ErrNotReady
	default:
		return fmt.Errorf("%w: bridge returned %d", ErrDeliveryFailed, resp.StatusCode)
	}
}
