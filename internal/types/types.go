// Package types provides shared type definitions used across the player.
package types

import "time"

// PlayerState represents the current state of the player.
type PlayerState string

const (
	// StateStopped indicates nothing is loaded.
	StateStopped PlayerState = "stopped"
	// StateStarting indicates the source and device are being opened.
	StateStarting PlayerState = "starting"
	// StateRunning indicates samples are flowing to the consumers.
	StateRunning PlayerState = "running"
	// StateFinished indicates the source ran out and the channels are closed.
	StateFinished PlayerState = "finished"
	// StateStopping indicates the player is shutting down.
	StateStopping PlayerState = "stopping"
)

// Shutdown settings.
const (
	ShutdownTimeout = 3 * time.Second // Time to wait for goroutines before giving up
)

// ChannelStatus contains delivery counters for one consumer channel.
type ChannelStatus struct {
	Name    string `json:"name"`
	Policy  string `json:"policy"`
	Sent    uint64 `json:"sent"`
	Dropped uint64 `json:"dropped,omitzero"`
	Closed  bool   `json:"closed,omitzero"`
	Queued  int    `json:"queued"`
}

// PlayerStatus contains a summary of the player's current operational state.
type PlayerStatus struct {
	State      PlayerState     `json:"state"`
	File       string          `json:"file,omitzero"`
	SampleRate int             `json:"sample_rate,omitzero"`
	Playing    bool            `json:"playing"`
	Uptime     string          `json:"uptime,omitzero"`
	Position   float64         `json:"position_sec"`
	LastError  string          `json:"last_error,omitzero"`
	Rendered   uint64          `json:"rendered"`
	Underruns  uint64          `json:"underruns"`
	Channels   []ChannelStatus `json:"channels,omitzero"`
	Recording  string          `json:"recording,omitzero"`
}

// SilenceLevel represents the silence detection state.
type SilenceLevel string

const (
	SilenceLevelNone   SilenceLevel = ""       // No silence detected
	SilenceLevelActive SilenceLevel = "active" // Silence confirmed (duration threshold exceeded)
)

// AudioLevels contains the current meter reading.
type AudioLevels struct {
	Left            float64      `json:"left"`                      // Normalized level (0 to 1)
	Right           float64      `json:"right"`                     // Normalized level, mirrors Left
	PeakLeft        float64      `json:"peak_left"`                 // Held peak level
	PeakRight       float64      `json:"peak_right"`                // Held peak level
	DB              float64      `json:"db"`                        // Level in dBFS
	Silence         bool         `json:"silence,omitzero"`          // True if audio below threshold
	SilenceDuration float64      `json:"silence_duration,omitzero"` // Silence duration in seconds
	SilenceLevel    SilenceLevel `json:"silence_level,omitzero"`    // "active" when in confirmed silence state
}

// Playback locates a moment in the played file.
type Playback struct {
	File     string
	Position time.Duration
}

// SilenceLogEntry is one line of the JSON silence log.
type SilenceLogEntry struct {
	Timestamp   string  `json:"timestamp"`
	Event       string  `json:"event"`
	File        string  `json:"file,omitzero"`
	PositionSec float64 `json:"position_sec,omitzero"`
	DurationSec float64 `json:"duration_sec,omitzero"`
	ThresholdDB float64 `json:"threshold_db,omitzero"`
}

// VersionInfo contains version information for the frontend.
type VersionInfo struct {
	Current     string `json:"current"`
	Latest      string `json:"latest,omitzero"`
	UpdateAvail bool   `json:"update_available"`
	Commit      string `json:"commit,omitzero"`
	BuildTime   string `json:"build_time,omitzero"`
}

// WSTestResult is sent to the client after a notification test.
type WSTestResult struct {
	Type     string `json:"type"`
	TestType string `json:"test_type"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitzero"`
}

// WSSilenceLogResult carries the tail of the silence log to the client.
type WSSilenceLogResult struct {
	Type    string            `json:"type"`
	Success bool              `json:"success"`
	Entries []SilenceLogEntry `json:"entries,omitzero"`
	Path    string            `json:"path,omitzero"`
	Error   string            `json:"error,omitzero"`
}
