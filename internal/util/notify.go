package util

import "log/slog"

// LogNotifyResult runs a notification function and logs the outcome.
// Errors are logged internally, so no error is returned.
func LogNotifyResult(fn func() error, notifyType string, enabled bool) {
	if err := fn(); err != nil {
		slog.Error("notification failed", "type", notifyType, "error", err)
		return
	}
	if enabled {
		slog.Info("notification sent", "type", notifyType)
	}
}
