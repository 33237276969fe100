// Package notify delivers fire-and-forget notifications to a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

// Webhook posts notification messages as JSON to a configured URL.
// Delivery is best-effort: failures are returned for the caller to log and
// swallow, never to act on.
type Webhook struct {
	url        string
	httpClient *http.Client
}

// NewWebhook creates a webhook notifier. An empty URL yields a disabled
// notifier whose Notify is a no-op.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:        url,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// SetHTTPClient overrides the HTTP client (for testing).
func (w *Webhook) SetHTTPClient(c *http.Client) {
	w.httpClient = c
}

// Notify sends one message. Errors are advisory only.
func (w *Webhook) Notify(ctx context.Context, message string) error {
	if w.url == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification rejected with HTTP %d", resp.StatusCode)
	}
	return nil
}
