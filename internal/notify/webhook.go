// Package notify delivers admin notifications to an external webhook, e.g. an
// ops chat channel.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Webhook posts JSON payloads of the form {"text": "..."} to a fixed URL.
// It satisfies audit.Notifier.
type Webhook struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewWebhook(url string, logger *slog.Logger) *Webhook {
	return &Webhook{
		url: url,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

func (wh *Webhook) Notify(ctx context.Context, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := wh.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notification webhook returned status %d", resp.StatusCode)
	}

	wh.logger.Debug("notification delivered", "status", resp.StatusCode)
	return nil
}
