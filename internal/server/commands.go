package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/oszuidwest/zwfm-scope/internal/config"
	"github.com/oszuidwest/zwfm-scope/internal/types"
	"github.com/oszuidwest/zwfm-scope/internal/util"
)

// silenceLogEntries is how many log lines view_silence_log returns.
const silenceLogEntries = 100

// WSCommand is a command received from a WebSocket client.
type WSCommand struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Controller is the playback surface the web interface drives.
type Controller interface {
	Start(path string) error
	Stop() error
	TogglePlayback() bool
}

// CommandHandler processes WebSocket commands.
type CommandHandler struct {
	cfg          *config.Config
	player       Controller
	testTriggers map[string]func() error
}

// NewCommandHandler creates a new command handler.
func NewCommandHandler(cfg *config.Config, player Controller, testTriggers map[string]func() error) *CommandHandler {
	return &CommandHandler{
		cfg:          cfg,
		player:       player,
		testTriggers: testTriggers,
	}
}

// Handle performs the requested action. reply queues a message for the
// client that sent cmd; it may be called from another goroutine.
func (h *CommandHandler) Handle(cmd WSCommand, reply func(any), triggerStatusUpdate func()) {
	switch cmd.Type {
	case "toggle_playback":
		playing := h.player.TogglePlayback()
		slog.Info("toggle_playback", "playing", playing)
	case "play":
		h.handlePlay(cmd)
	case "stop":
		if err := h.player.Stop(); err != nil {
			slog.Error("stop: failed to stop player", "error", err)
		}
	case "update_settings":
		h.handleUpdateSettings(cmd)
	case "test_webhook", "test_log", "test_email":
		h.handleTest(reply, cmd.Type)
	case "view_silence_log":
		h.handleViewSilenceLog(reply)
	default:
		slog.Warn("unknown WebSocket command type", "type", cmd.Type)
	}

	triggerStatusUpdate()
}

func (h *CommandHandler) handlePlay(cmd WSCommand) {
	var req struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(cmd.Data, &req); err != nil {
		slog.Warn("play: invalid JSON data", "error", err)
		return
	}
	if err := util.ValidateRequired("path", req.Path); err != nil {
		slog.Warn("play: validation failed", "error", err.Message)
		return
	}
	if err := util.ValidateMaxLength("path", req.Path, 4096); err != nil {
		slog.Warn("play: validation failed", "error", err.Message)
		return
	}
	if err := h.player.Start(req.Path); err != nil {
		slog.Error("play: failed to start playback", "path", req.Path, "error", err)
	}
}

// updateFloatSetting validates and updates a float64 setting.
func updateFloatSetting(value *float64, minVal, maxVal float64, name string, setter func(float64) error) {
	if value == nil {
		return
	}
	v := *value
	if err := util.ValidateRangeFloat(name, v, minVal, maxVal); err != nil {
		slog.Warn("update_settings: validation failed", "setting", name, "error", err.Message)
		return
	}
	slog.Info("update_settings: changing setting", "setting", name, "value", v)
	if err := setter(v); err != nil {
		slog.Error("update_settings: failed to save", "error", err)
	}
}

// updateStringSetting updates a string setting.
func updateStringSetting(value *string, name string, setter func(string) error) {
	if value == nil {
		return
	}
	slog.Info("update_settings: changing setting", "setting", name)
	if err := setter(*value); err != nil {
		slog.Error("update_settings: failed to save", "error", err)
	}
}

type settingsUpdate struct {
	SilenceThreshold *float64 `json:"silence_threshold"`
	SilenceDuration  *float64 `json:"silence_duration"`
	SilenceRecovery  *float64 `json:"silence_recovery"`
	SilenceWebhook   *string  `json:"silence_webhook"`
	SilenceLogPath   *string  `json:"silence_log_path"`
	EmailSMTPHost    *string  `json:"email_smtp_host"`
	EmailSMTPPort    *int     `json:"email_smtp_port"`
	EmailFromName    *string  `json:"email_from_name"`
	EmailUsername    *string  `json:"email_username"`
	EmailPassword    *string  `json:"email_password"`
	EmailRecipients  *string  `json:"email_recipients"`
	RecordingEnabled *bool    `json:"recording_enabled"`
}

func (s *settingsUpdate) touchesEmail() bool {
	return s.EmailSMTPHost != nil || s.EmailSMTPPort != nil ||
		s.EmailFromName != nil || s.EmailUsername != nil ||
		s.EmailPassword != nil || s.EmailRecipients != nil
}

func (h *CommandHandler) handleUpdateSettings(cmd WSCommand) {
	var settings settingsUpdate
	if err := json.Unmarshal(cmd.Data, &settings); err != nil {
		slog.Warn("update_settings: invalid JSON data", "error", err)
		return
	}

	updateFloatSetting(settings.SilenceThreshold, -60, 0, "silence threshold", h.cfg.SetSilenceThreshold)
	updateFloatSetting(settings.SilenceDuration, 1, 300, "silence duration", h.cfg.SetSilenceDuration)
	updateFloatSetting(settings.SilenceRecovery, 1, 60, "silence recovery", h.cfg.SetSilenceRecovery)
	updateStringSetting(settings.SilenceWebhook, "webhook URL", h.cfg.SetWebhookURL)
	updateStringSetting(settings.SilenceLogPath, "log path", h.cfg.SetLogPath)

	if settings.RecordingEnabled != nil {
		// Takes effect on the next Start.
		slog.Info("update_settings: changing setting", "setting", "recording", "value", *settings.RecordingEnabled)
		if err := h.cfg.SetRecordingEnabled(*settings.RecordingEnabled); err != nil {
			slog.Error("update_settings: failed to save", "error", err)
		}
	}

	if settings.touchesEmail() {
		// Keep current values for fields not being updated.
		cur := h.cfg.Snapshot()
		host, port, fromName := cur.EmailSMTPHost, cur.EmailSMTPPort, cur.EmailFromName
		username, password, recipients := cur.EmailUsername, cur.EmailPassword, cur.EmailRecipients
		if settings.EmailSMTPHost != nil {
			host = *settings.EmailSMTPHost
		}
		if settings.EmailSMTPPort != nil {
			port = max(1, min(*settings.EmailSMTPPort, 65535))
		}
		if settings.EmailFromName != nil {
			fromName = *settings.EmailFromName
		}
		if settings.EmailUsername != nil {
			username = *settings.EmailUsername
		}
		if settings.EmailPassword != nil {
			password = *settings.EmailPassword
		}
		if settings.EmailRecipients != nil {
			recipients = *settings.EmailRecipients
		}

		slog.Info("update_settings: updating email configuration")
		if err := h.cfg.SetEmailConfig(host, port, fromName, username, password, recipients); err != nil {
			slog.Error("update_settings: failed to save email config", "error", err)
		}
	}
}

// handleTest runs a notification test and replies with the result.
// testCmd has the form "test_<type>", e.g. "test_email".
func (h *CommandHandler) handleTest(reply func(any), testCmd string) {
	testType := strings.TrimPrefix(testCmd, "test_")
	trigger, ok := h.testTriggers[testType]
	if !ok {
		slog.Warn("unknown test type", "command", testCmd)
		return
	}

	go func() {
		result := types.WSTestResult{
			Type:     "test_result",
			TestType: testType,
			Success:  true,
		}

		if err := trigger(); err != nil {
			slog.Error("test failed", "command", testCmd, "error", err)
			result.Success = false
			result.Error = err.Error()
		} else {
			slog.Info("test succeeded", "command", testCmd)
		}
		reply(result)
	}()
}

// handleViewSilenceLog replies with the newest silence log entries.
func (h *CommandHandler) handleViewSilenceLog(reply func(any)) {
	logPath := h.cfg.Snapshot().LogPath

	go func() {
		result := types.WSSilenceLogResult{
			Type:    "silence_log_result",
			Success: true,
		}

		if logPath == "" {
			result.Success = false
			result.Error = "Log file path not configured"
			reply(result)
			return
		}

		entries, err := readSilenceLog(logPath, silenceLogEntries)
		if err != nil {
			result.Success = false
			result.Error = err.Error()
		} else {
			result.Entries = entries
			result.Path = logPath
		}
		reply(result)
	}()
}

// readSilenceLog reads the last maxEntries entries, newest first.
func readSilenceLog(logPath string, maxEntries int) ([]types.SilenceLogEntry, error) {
	data, err := os.ReadFile(logPath)
	if os.IsNotExist(err) {
		return []types.SilenceLogEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return []types.SilenceLogEntry{}, nil
	}
	lines := strings.Split(text, "\n")
	lines = lines[max(0, len(lines)-maxEntries):]

	entries := make([]types.SilenceLogEntry, 0, len(lines))
	for _, line := range lines {
		var entry types.SilenceLogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue // skip malformed
		}
		entries = append(entries, entry)
	}

	slices.Reverse(entries)
	return entries, nil
}
