// Package pushclient calls the push-notification gateway that delivers
// check-in/check-out messages to guardian devices.
package pushclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Delivery reports the gateway's outcome for one notification.
type Delivery struct {
	ID        string `json:"id"`
	Delivered bool   `json:"delivered"`
	Devices   int    `json:"devices"`
}

// Client calls the push gateway. With Skip set it fakes successful delivery,
// which keeps dev environments working without a gateway.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send delivers a notification to all devices registered for a recipient.
func (c *Client) Send(ctx context.Context, recipientID, title, message string) (*Delivery, error) {
	if c.Skip {
		return &Delivery{ID: "skipped", Delivered: true, Devices: 1}, nil
	}
	if recipientID == "" {
		return nil, fmt.Errorf("recipient id required")
	}

	body, _ := json.Marshal(map[string]string{
		"recipient_id": recipientID,
		"title":        title,
		"message":      message,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/notify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("push gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("push gateway error %s: %s", resp.Status, string(bodyBytes))
	}

	var out Delivery
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// Health checks gateway availability.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("push gateway unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway unhealthy: %s", resp.Status)
	}
	return nil
}
