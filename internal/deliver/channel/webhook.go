package channel

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// requestTimeout bounds every webhook attempt per spec.md §5's stated
// 10-second external-call budget.
const requestTimeout = 10 * time.Second

// WebhookConfig holds a webhook channel's per-tenant configuration.
type WebhookConfig struct {
	URL        string
	SigningKey string
	Headers    map[string]string
}

// WebhookChannel posts the alert payload as JSON to a tenant-configured
// URL, signing the body with HMAC-SHA256 so the receiver can verify
// authenticity the way spec.md §5 requires.
type WebhookChannel struct {
	cfg    WebhookConfig
	client *http.Client
}

// NewWebhookChannel constructs a WebhookChannel.
func NewWebhookChannel(cfg WebhookConfig) (*WebhookChannel, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook channel: url is required")
	}
	return &WebhookChannel{
		cfg:    cfg,
		client: &http.Client{Timeout: requestTimeout},
	}, nil
}

// Type implements Channel.
func (c *WebhookChannel) Type() Type { return TypeWebhook }

// Send implements Channel. The payload is the message fields flattened
// to JSON; the signature covers the exact bytes sent.
func (c *WebhookChannel) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(webhookPayload{
		Subject:    msg.Subject,
		Body:       msg.Body,
		Recipients: msg.Recipients,
		Metadata:   msg.Metadata,
	})
	if err != nil {
		return fmt.Errorf("webhook channel: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook channel: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
	if c.cfg.SigningKey != "" {
		req.Header.Set("X-Pulse-Signature", signBody(c.cfg.SigningKey, body))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook channel: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("webhook channel: status %d: %s", resp.StatusCode, respBody)
		if resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests {
			return Permanent(err)
		}
		return err
	}

	return nil
}

// Test implements Channel.
func (c *WebhookChannel) Test(ctx context.Context, recipient string) error {
	return c.Send(ctx, Message{
		Subject:    "Pulse notification channel test",
		Body:       "This webhook channel is configured correctly.",
		Recipients: []string{recipient},
	})
}

func signBody(key string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

type webhookPayload struct {
	Subject    string                 `json:"subject"`
	Body       string                 `json:"body"`
	Recipients []string               `json:"recipients,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
