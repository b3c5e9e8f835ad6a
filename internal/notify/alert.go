// Package notify announces silence on the played file by webhook, email and a JSON log.
package notify

import (
	"errors"
	"time"
)

// Event names shared by webhook payloads and the silence log.
const (
	EventSilence   = "silence_start"
	EventRecovered = "silence_end"
	EventTest      = "test"
)

// Errors returned by a test send to a destination that is not set up.
var (
	ErrWebhookNotConfigured = errors.New("webhook URL not configured")
	ErrEmailNotConfigured   = errors.New("SMTP host, username and recipients must be configured")
	ErrLogNotConfigured     = errors.New("log file path not configured")
)

// Alert is one notification about the played file.
type Alert struct {
	Event     string
	Time      time.Time
	File      string        // base name of the loaded file, empty when stopped
	Position  time.Duration // device position in File when the alert was raised
	Duration  float64       // seconds of silence so far, or in total on recovery
	Threshold float64       // dBFS
}
