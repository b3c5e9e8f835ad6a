package notify

import (
	"encoding/json"
	"os"
	"time"

	"github.com/oszuidwest/zwfm-scope/internal/config"
	"github.com/oszuidwest/zwfm-scope/internal/types"
	"github.com/oszuidwest/zwfm-scope/internal/util"
)

// logEntry is the silence log line for a.
func logEntry(a Alert) types.SilenceLogEntry {
	entry := types.SilenceLogEntry{
		Timestamp:   a.Time.UTC().Format(time.RFC3339),
		Event:       a.Event,
		File:        a.File,
		PositionSec: a.Position.Seconds(),
	}
	if a.Event != EventTest {
		entry.DurationSec = a.Duration
		entry.ThresholdDB = a.Threshold
	}
	return entry
}

// appendLogAlert appends a as one JSON line to the configured log file.
func appendLogAlert(cfg *config.Snapshot, a Alert) error {
	data, err := json.Marshal(logEntry(a))
	if err != nil {
		return util.WrapError("marshal log entry", err)
	}
	data = append(data, '\n')

	f, err := os.OpenFile(cfg.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return util.WrapError("open log file", err)
	}
	defer util.SafeCloseFunc(f, "log file")()

	if _, err := f.Write(data); err != nil {
		return util.WrapError("write log entry", err)
	}
	return nil
}
