package powerautomate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// Client posts batch payloads to a Power Automate webhook. Only the response
// status code is consumed; the body is read solely for error reporting.
type Client struct {
	logger *zap.Logger
	httpc  *http.Client
	url    string
}

// NewClient constructs a webhook client for the given URL.
func NewClient(logger *zap.Logger, httpc *http.Client, url string) *Client {
	return &Client{
		logger: logger,
		httpc:  httpc,
		url:    url,
	}
}

// Send POSTs payload as JSON and fails on any non-2xx status.
func (c *Client) Send(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("webhook.delivery_failed",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, body)
	}

	c.logger.Info("webhook.delivered",
		zap.Int("status", resp.StatusCode),
		zap.Int("payload_bytes", len(data)))

	return nil
}
