package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const requestTimeout = 5 * time.Second

// Forwarder delivers rate-update payloads to the downstream webhook. A
// missing URL turns every Forward into a logged no-op.
type Forwarder struct {
	url    string
	secret string
	client *http.Client
}

func NewForwarder(url, secret string) *Forwarder {
	return &Forwarder{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: requestTimeout},
	}
}

func (f *Forwarder) Configured() bool {
	return f.url != ""
}

// Forward POSTs the payload as JSON. When a secret is configured the body
// is signed with HMAC-SHA256 in X-Webhook-Signature.
func (f *Forwarder) Forward(ctx context.Context, event string, payload map[string]any) error {
	if !f.Configured() {
		logrus.Debugf("[WEBHOOK] No webhook configured; skipping %s", event)
		return nil
	}

	body, err := json.Marshal(map[string]any{
		"event":     event,
		"payload":   payload,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if f.secret != "" {
		mac := hmac.New(sha256.New, []byte(f.secret))
		mac.Write(body)
		req.Header.Set("X-Webhook-Signature", hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	logrus.Infof("[WEBHOOK] %s forwarded", event)
	return nil
}
