// Package config provides application configuration management.
package config

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oszuidwest/zwfm-scope/internal/util"
)

// Configuration defaults.
const (
	DefaultWebPort          = 8080
	DefaultWebUsername      = "admin"
	DefaultWebPassword      = "scope"
	DefaultAudioBackend     = "oto"
	DefaultAudioBufferMS    = 50
	DefaultChannelCapacity  = 4800
	DefaultScopeCapacity    = 8192
	DefaultScopeDecimation  = 128
	DefaultScopeFrameRate   = 30
	DefaultMeterAlpha       = 0.00005
	DefaultMeterRangeDB     = 70.0
	DefaultSilenceThreshold = -40.0
	DefaultSilenceDuration  = 15.0
	DefaultSilenceRecovery  = 5.0
	DefaultEmailSMTPPort    = 587
	DefaultEmailFromName    = "ZuidWest FM Scope"
	DefaultRecordingDir     = "recordings"
	DefaultRetentionDays    = 7
)

// WebConfig contains web server configuration.
type WebConfig struct {
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// AudioConfig contains audio output configuration.
type AudioConfig struct {
	Backend         string `json:"backend"`
	BufferMS        int    `json:"buffer_ms,omitempty"`
	ChannelCapacity int    `json:"channel_capacity,omitempty"`
}

// ScopeConfig contains waveform display configuration.
type ScopeConfig struct {
	Capacity   int `json:"capacity,omitempty"`
	Decimation int `json:"decimation,omitempty"`
	FrameRate  int `json:"frame_rate,omitempty"`
}

// MeterConfig contains level meter tuning.
type MeterConfig struct {
	Alpha   float64 `json:"alpha,omitempty"`
	RangeDB float64 `json:"range_db,omitempty"`
}

// SilenceDetectionConfig contains silence detection configuration.
type SilenceDetectionConfig struct {
	ThresholdDB     float64 `json:"threshold_db,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	RecoverySeconds float64 `json:"recovery_seconds,omitempty"`
}

// EmailConfig contains email notification configuration.
type EmailConfig struct {
	Host       string `json:"host,omitempty"`
	Port       int    `json:"port,omitempty"`
	FromName   string `json:"from_name,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	Recipients string `json:"recipients,omitempty"`
}

// NotificationsConfig contains all notification configuration.
type NotificationsConfig struct {
	WebhookURL string      `json:"webhook_url,omitempty"`
	LogPath    string      `json:"log_path,omitempty"`
	Email      EmailConfig `json:"email,omitempty"`
}

// RecordingConfig contains configuration for the WAV tap.
type RecordingConfig struct {
	Enabled       bool   `json:"enabled"`
	Directory     string `json:"directory,omitempty"`
	RetentionDays int    `json:"retention_days,omitempty"`
}

// Config holds all application configuration. It is safe for concurrent use.
type Config struct {
	Web              WebConfig              `json:"web"`
	Audio            AudioConfig            `json:"audio"`
	Scope            ScopeConfig            `json:"scope"`
	Meter            MeterConfig            `json:"meter"`
	SilenceDetection SilenceDetectionConfig `json:"silence_detection,omitempty"`
	Notifications    NotificationsConfig    `json:"notifications,omitempty"`
	Recording        RecordingConfig        `json:"recording"`

	mu       sync.RWMutex
	filePath string
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	return &Config{
		Web: WebConfig{
			Port:     DefaultWebPort,
			Username: DefaultWebUsername,
			Password: DefaultWebPassword,
		},
		Audio: AudioConfig{
			Backend:         DefaultAudioBackend,
			BufferMS:        DefaultAudioBufferMS,
			ChannelCapacity: DefaultChannelCapacity,
		},
		Scope: ScopeConfig{
			Capacity:   DefaultScopeCapacity,
			Decimation: DefaultScopeDecimation,
			FrameRate:  DefaultScopeFrameRate,
		},
		Meter: MeterConfig{
			Alpha:   DefaultMeterAlpha,
			RangeDB: DefaultMeterRangeDB,
		},
		Recording: RecordingConfig{
			Directory:     DefaultRecordingDir,
			RetentionDays: DefaultRetentionDays,
		},
		filePath: filePath,
	}
}

// Load reads config from file, creating a default if none exists.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return c.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return util.WrapError("parse config", err)
	}

	c.applyDefaults()
	return c.validateLocked()
}

// applyDefaults sets default values for zero-value fields.
func (c *Config) applyDefaults() {
	c.Web.Port = cmp.Or(c.Web.Port, DefaultWebPort)
	c.Web.Username = cmp.Or(c.Web.Username, DefaultWebUsername)
	c.Web.Password = cmp.Or(c.Web.Password, DefaultWebPassword)
	c.Audio.Backend = cmp.Or(c.Audio.Backend, DefaultAudioBackend)
	c.Audio.BufferMS = cmp.Or(c.Audio.BufferMS, DefaultAudioBufferMS)
	c.Audio.ChannelCapacity = cmp.Or(c.Audio.ChannelCapacity, DefaultChannelCapacity)
	c.Scope.Capacity = cmp.Or(c.Scope.Capacity, DefaultScopeCapacity)
	c.Scope.Decimation = cmp.Or(c.Scope.Decimation, DefaultScopeDecimation)
	c.Scope.FrameRate = cmp.Or(c.Scope.FrameRate, DefaultScopeFrameRate)
	c.Meter.Alpha = cmp.Or(c.Meter.Alpha, DefaultMeterAlpha)
	c.Meter.RangeDB = cmp.Or(c.Meter.RangeDB, DefaultMeterRangeDB)
	c.Recording.Directory = cmp.Or(c.Recording.Directory, DefaultRecordingDir)
}

// validateLocked checks the loaded values. Caller must hold c.mu.
func (c *Config) validateLocked() error {
	checks := []*util.ValidationError{
		util.ValidateRange("web.port", c.Web.Port, 1, 65535),
		util.ValidateOneOf("audio.backend", c.Audio.Backend, "oto", "headless"),
		util.ValidateRange("audio.buffer_ms", c.Audio.BufferMS, 1, 2000),
		util.ValidateRange("audio.channel_capacity", c.Audio.ChannelCapacity, 1, 1<<24),
		util.ValidateRange("scope.capacity", c.Scope.Capacity, 1, 1<<20),
		util.ValidateRange("scope.decimation", c.Scope.Decimation, 1, 1<<16),
		util.ValidateRange("scope.frame_rate", c.Scope.FrameRate, 1, 240),
		util.ValidateRangeFloat("meter.alpha", c.Meter.Alpha, 1e-9, 0.999999),
		util.ValidateRangeFloat("meter.range_db", c.Meter.RangeDB, 1, 200),
	}
	for _, v := range checks {
		if v != nil {
			return util.WrapError("validate config", v)
		}
	}
	return nil
}

// Save writes the configuration to file.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

// saveLocked persists configuration. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return util.WrapError("marshal config", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.WrapError("create config directory", err)
	}

	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return util.WrapError("write config", err)
	}

	return nil
}

// WebPort returns the web server port.
func (c *Config) WebPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Web.Port
}

// WebUser returns the web authentication username.
func (c *Config) WebUser() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Web.Username
}

// WebPassword returns the web authentication password.
func (c *Config) WebPassword() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Web.Password
}

// SetSilenceThreshold updates the silence detection threshold and saves the configuration.
func (c *Config) SetSilenceThreshold(threshold float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SilenceDetection.ThresholdDB = threshold
	return c.saveLocked()
}

// SetSilenceDuration updates the silence duration and saves the configuration.
func (c *Config) SetSilenceDuration(seconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SilenceDetection.DurationSeconds = seconds
	return c.saveLocked()
}

// SetSilenceRecovery updates the silence recovery time and saves the configuration.
func (c *Config) SetSilenceRecovery(seconds float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SilenceDetection.RecoverySeconds = seconds
	return c.saveLocked()
}

// SetWebhookURL updates the webhook URL and saves the configuration.
func (c *Config) SetWebhookURL(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.WebhookURL = url
	return c.saveLocked()
}

// SetLogPath updates the log file path and saves the configuration.
func (c *Config) SetLogPath(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.LogPath = path
	return c.saveLocked()
}

// SetEmailConfig updates all email configuration fields and saves.
func (c *Config) SetEmailConfig(host string, port int, fromName, username, password, recipients string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.Email = EmailConfig{
		Host:       host,
		Port:       port,
		FromName:   fromName,
		Username:   username,
		Password:   password,
		Recipients: recipients,
	}
	return c.saveLocked()
}

// SetRecordingEnabled toggles the WAV tap and saves. It applies from the next start.
func (c *Config) SetRecordingEnabled(enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Recording.Enabled = enabled
	return c.saveLocked()
}

// Snapshot contains a point-in-time copy of all configuration values.
// Use this instead of multiple individual getters to reduce mutex contention.
type Snapshot struct {
	// Web
	WebPort     int
	WebUser     string
	WebPassword string

	// Audio
	AudioBackend    string
	AudioBufferMS   int
	ChannelCapacity int

	// Scope
	ScopeCapacity   int
	ScopeDecimation int
	ScopeFrameRate  int

	// Meter
	MeterAlpha   float64
	MeterRangeDB float64

	// Silence Detection
	SilenceThreshold float64
	SilenceDuration  float64
	SilenceRecovery  float64

	// Notifications
	WebhookURL string
	LogPath    string

	// Email
	EmailSMTPHost   string
	EmailSMTPPort   int
	EmailFromName   string
	EmailUsername   string
	EmailPassword   string
	EmailRecipients string

	// Recording
	RecordingEnabled   bool
	RecordingDir       string
	RecordingRetention int
}

// Snapshot returns a point-in-time copy of all configuration values.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		WebPort:     c.Web.Port,
		WebUser:     c.Web.Username,
		WebPassword: c.Web.Password,

		AudioBackend:    cmp.Or(c.Audio.Backend, DefaultAudioBackend),
		AudioBufferMS:   cmp.Or(c.Audio.BufferMS, DefaultAudioBufferMS),
		ChannelCapacity: cmp.Or(c.Audio.ChannelCapacity, DefaultChannelCapacity),

		ScopeCapacity:   cmp.Or(c.Scope.Capacity, DefaultScopeCapacity),
		ScopeDecimation: cmp.Or(c.Scope.Decimation, DefaultScopeDecimation),
		ScopeFrameRate:  cmp.Or(c.Scope.FrameRate, DefaultScopeFrameRate),

		MeterAlpha:   cmp.Or(c.Meter.Alpha, DefaultMeterAlpha),
		MeterRangeDB: cmp.Or(c.Meter.RangeDB, DefaultMeterRangeDB),

		SilenceThreshold: cmp.Or(c.SilenceDetection.ThresholdDB, DefaultSilenceThreshold),
		SilenceDuration:  cmp.Or(c.SilenceDetection.DurationSeconds, DefaultSilenceDuration),
		SilenceRecovery:  cmp.Or(c.SilenceDetection.RecoverySeconds, DefaultSilenceRecovery),

		WebhookURL: c.Notifications.WebhookURL,
		LogPath:    c.Notifications.LogPath,

		EmailSMTPHost:   c.Notifications.Email.Host,
		EmailSMTPPort:   cmp.Or(c.Notifications.Email.Port, DefaultEmailSMTPPort),
		EmailFromName:   cmp.Or(c.Notifications.Email.FromName, DefaultEmailFromName),
		EmailUsername:   c.Notifications.Email.Username,
		EmailPassword:   c.Notifications.Email.Password,
		EmailRecipients: c.Notifications.Email.Recipients,

		RecordingEnabled:   c.Recording.Enabled,
		RecordingDir:       cmp.Or(c.Recording.Directory, DefaultRecordingDir),
		RecordingRetention: c.Recording.RetentionDays,
	}
}

// HasWebhook returns true if a webhook URL is configured.
func (s *Snapshot) HasWebhook() bool {
	return s.WebhookURL != ""
}

// HasEmail returns true if email notifications are configured.
func (s *Snapshot) HasEmail() bool {
	return s.EmailSMTPHost != "" && s.EmailRecipients != ""
}

// HasLogPath returns true if a log path is configured.
func (s *Snapshot) HasLogPath() bool {
	return s.LogPath != ""
}
