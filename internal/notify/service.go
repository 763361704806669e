// Package notify forwards lead events to the business owner's webhook.
// Delivery is fire-and-forget: failures are logged and swallowed so a dead
// webhook never breaks an estimate, upgrade, or callback request.
package notify

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

	"github.com/ajayprojects/portal/pkg/models"
	"github.com/rs/zerolog/log"
)

// Service posts lead events to a single configured webhook URL.
type Service struct {
	url    string
	secret string
	client *http.Client
}

// NewService creates the lead forwarder. An empty url disables delivery;
// a non-empty secret enables HMAC-SHA256 payload signing.
func NewService(url, secret string) *Service {
	return &Service{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether a webhook URL is configured.
func (s *Service) Enabled() bool { return s.url != "" }

// Publish sends one lead event. Errors are logged, never returned; callers
// fire this from a goroutine with a background context.
func (s *Service) Publish(ctx context.Context, event models.LeadEvent) {
	if s.url == "" {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Warn().Err(err).Str("event", string(event.Kind)).Msg("Cannot marshal lead event")
		return
	}

	if err := s.send(ctx, string(event.Kind), body); err != nil {
		log.Warn().Err(err).Str("event", string(event.Kind)).Str("client", event.ClientName).Msg("Lead webhook delivery failed")
		return
	}
	log.Info().Str("event", string(event.Kind)).Str("client", event.ClientName).Msg("Lead event forwarded")
}

// send posts the event exactly once. Delivery is best-effort; a failed post
// surfaces to Publish for logging and is never reattempted.
func (s *Service) send(ctx context.Context, kind string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Portal-Webhook/1.0")
	req.Header.Set("X-Portal-Event", kind)
	if s.secret != "" {
		mac := hmac.New(sha256.New, []byte(s.secret))
		mac.Write(body)
		req.Header.Set("X-Portal-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook HTTP %d from %s", resp.StatusCode, s.url)
	}
	return nil
}
