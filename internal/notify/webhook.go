package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/oszuidwest/zwfm-scope/internal/config"
	"github.com/oszuidwest/zwfm-scope/internal/util"
)

// webhookRetry controls redelivery of webhooks that fail with a server error.
var webhookRetry = struct {
	attempts int
	initial  time.Duration
	max      time.Duration
}{attempts: 3, initial: time.Second, max: 4 * time.Second}

// webhookPayload is the JSON body posted for an alert.
type webhookPayload struct {
	Event     string  `json:"event"`
	Timestamp string  `json:"timestamp"`
	File      string  `json:"file,omitzero"`
	Position  float64 `json:"position_sec,omitzero"`
	Duration  float64 `json:"silence_duration,omitzero"`
	Threshold float64 `json:"threshold,omitzero"`
	Message   string  `json:"message,omitzero"`
}

func newWebhookPayload(a Alert) webhookPayload {
	p := webhookPayload{
		Event:     a.Event,
		Timestamp: a.Time.UTC().Format(time.RFC3339),
		File:      a.File,
		Position:  a.Position.Seconds(),
	}
	switch a.Event {
	case EventSilence:
		p.Duration = a.Duration
		p.Threshold = a.Threshold
	case EventRecovered:
		p.Duration = a.Duration
	case EventTest:
		p.Message = "Test notification from ZuidWest FM Scope"
	}
	return p
}

func sendWebhookAlert(cfg *config.Snapshot, a Alert) error {
	return sendWebhook(cfg.WebhookURL, newWebhookPayload(a))
}

// sendWebhook posts payload as JSON to webhookURL.
// Transport errors and 5xx responses are retried with exponential backoff.
func sendWebhook(webhookURL string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return util.WrapError("marshal payload", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	backoff := util.NewBackoff(webhookRetry.initial, webhookRetry.max)

	for attempt := 1; ; attempt++ {
		retry, err := postWebhook(client, webhookURL, body)
		if err == nil || !retry || attempt >= webhookRetry.attempts {
			return err
		}
		time.Sleep(backoff.Next())
	}
}

// postWebhook performs one delivery and reports whether a failure is worth retrying.
func postWebhook(client *http.Client, webhookURL string, body []byte) (bool, error) {
	resp, err := client.Post(webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return true, util.WrapError("send webhook request", err)
	}
	defer util.SafeCloseFunc(resp.Body, "webhook response body")()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode >= 500, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return false, nil
}
