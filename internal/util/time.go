package util

import (
	"fmt"
	"time"
)

// HumanTime renders t in local time in a readable form for messages.
func HumanTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05 MST")
}

// FormatPosition renders a playback position as "m:ss", or "h:mm:ss" past an hour.
func FormatPosition(d time.Duration) string {
	s := int(max(d, 0).Seconds())
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, s/60%60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// FormatUptime renders d as "1h 2m 3s".
func FormatUptime(d time.Duration) string {
	return fmt.Sprintf("%dh %dm %ds", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}

// FormatHumanTime renders an RFC3339 timestamp in the readable message form.
// Values that do not parse are returned unchanged.
func FormatHumanTime(rfc3339 string) string {
	t, err := time.Parse(time.RFC3339, rfc3339)
	if err != nil {
		return rfc3339
	}
	return HumanTime(t)
}
