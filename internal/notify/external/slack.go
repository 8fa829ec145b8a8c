// Package external implements notify.Notifier over outbound webhooks to
// third-party chat services (Slack, Discord). Each channel is independently
// configurable and independently failable.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/watchpane/sessionwatch/internal/notify"
)

const webhookTimeout = 10 * time.Second

// SlackNotifier posts an incoming-webhook message for every notification.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
	filter     func(notify.Notification) bool
}

type slackPayload struct {
	Text string `json:"text"`
}

// NewSlack returns a SlackNotifier posting to webhookURL. filter, if
// non-nil, is consulted before every send; notifications it rejects are
// silently dropped.
func NewSlack(webhookURL string, filter func(notify.Notification) bool) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: webhookTimeout},
		filter:     filter,
	}
}

var _ notify.Notifier = (*SlackNotifier)(nil)

// Notify implements notify.Notifier.
func (s *SlackNotifier) Notify(n notify.Notification) error {
	if s.filter != nil && !s.filter(n) {
		return nil
	}

	body, err := json.Marshal(slackPayload{Text: fmt.Sprintf("*%s* — %s", n.SessionName, n.Message)})
	if err != nil {
		return fmt.Errorf("slack: marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
