package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the full file schema. All durations are Go duration strings
// (e.g. "500ms", "10s", "2m").
type Config struct {
	Gateway     GatewayConfig     `json:"gateway"`
	Tracker     TrackerConfig     `json:"tracker"`
	Dispatch    DispatchConfig    `json:"dispatch,omitempty"`
	Storage     StorageConfig     `json:"storage"`
	Logging     LoggingConfig     `json:"logging"`
	Dashboard   DashboardConfig   `json:"dashboard,omitempty"`
	Maintenance MaintenanceConfig `json:"maintenance,omitempty"`
}

// GatewayConfig points at the platform bridge.
type GatewayConfig struct {
	URL            string `json:"url"`
	Token          string `json:"token,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty"` // default 10s
	PingInterval   string `json:"ping_interval,omitempty"`   // default 20s
	EventBuffer    int    `json:"event_buffer,omitempty"`
}

type TrackerConfig struct {
	// Game is the tracked game name, matched case-insensitively.
	Game string `json:"game"`
	// CooldownWindow between repeat notifications per (member, guild).
	// Default "120s".
	CooldownWindow string `json:"cooldown_window,omitempty"`
}

type DispatchConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"`
	// LogRetention bounds the persisted notification log. Default "168h".
	LogRetention string `json:"log_retention,omitempty"`
}

type StorageConfig struct {
	Driver      string `json:"driver"` // "sqlite" or "memory"
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level"`
	Console bool          `json:"console"`
	File    LoggingFile   `json:"file,omitempty"`
	Alerts  LoggingAlerts `json:"alerts,omitempty"`
	Recent  LoggingRecent `json:"recent,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// LoggingAlerts forwards WARN+ records to a Telegram operator chat.
type LoggingAlerts struct {
	Enabled    bool   `json:"enabled"`
	Token      string `json:"token,omitempty"`
	ChatID     int64  `json:"chat_id,omitempty"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// LoggingRecent bounds the in-memory ring served by /api/logs.
type LoggingRecent struct {
	Size int `json:"size,omitempty"`
}

type DashboardConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default "127.0.0.1:8080"
}

type MaintenanceConfig struct {
	Enabled bool `json:"enabled"`
	// CooldownSweep cron spec or interval, default "@every 5m".
	CooldownSweep string `json:"cooldown_sweep,omitempty"`
	// LogPrune schedule for the notification log, default "@every 1h".
	LogPrune string `json:"log_prune,omitempty"`
}

// Validate checks cross-field requirements; duration fields are checked
// where they are parsed.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Gateway.URL) == "" {
		return errors.New("gateway.url is required")
	}
	if strings.TrimSpace(c.Tracker.Game) == "" {
		return errors.New("tracker.game is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "sqlite", "sqlite3":
		if strings.TrimSpace(c.Storage.Path) == "" {
			return errors.New("storage.path is required for the sqlite driver")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if c.Logging.Alerts.Enabled {
		if strings.TrimSpace(c.Logging.Alerts.Token) == "" {
			return errors.New("logging.alerts.token is required when alerts are enabled")
		}
		if c.Logging.Alerts.ChatID == 0 {
			return errors.New("logging.alerts.chat_id is required when alerts are enabled")
		}
	}
	if c.Dashboard.Enabled && strings.TrimSpace(c.Dashboard.Addr) == "" {
		return errors.New("dashboard.addr is required when the dashboard is enabled")
	}
	for _, d := range []struct{ path, raw string }{
		{"gateway.request_timeout", c.Gateway.RequestTimeout},
		{"gateway.ping_interval", c.Gateway.PingInterval},
		{"tracker.cooldown_window", c.Tracker.CooldownWindow},
		{"dispatch.log_retention", c.Dispatch.LogRetention},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
	} {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			return err
		}
	}
	return nil
}

// ParseDurationField parses a Go duration string from the config file.
// Empty or blank means unset and yields zero without error; negative
// durations are rejected.
func ParseDurationField(path, raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	case d < 0:
		return 0, fmt.Errorf("%s: negative duration %q", path, raw)
	}
	return d, nil
}

// ParseDurationOrDefault is ParseDurationField with a fallback for
// unset values.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil || d > 0 {
		return d, err
	}
	return def, nil
}
