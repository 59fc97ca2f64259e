package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validJSON = `{
  "gateway": {"url": "ws://127.0.0.1:9800/ws", "token": "secret"},
  "tracker": {"game": "Sea of Thieves", "cooldown_window": "120s"},
  "storage": {"driver": "sqlite", "path": "./grebbot.db"},
  "logging": {"level": "info", "console": true},
  "dashboard": {"enabled": true, "addr": "127.0.0.1:8080"}
}`

func TestLoadJSON(t *testing.T) {
	m := NewManager(writeConfig(t, "config.json", validJSON))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gateway.URL != "ws://127.0.0.1:9800/ws" {
		t.Errorf("gateway url: %q", cfg.Gateway.URL)
	}
	if cfg.Tracker.Game != "Sea of Thieves" || cfg.Tracker.CooldownWindow != "120s" {
		t.Errorf("tracker: %+v", cfg.Tracker)
	}
	if got := m.Get(); got != cfg {
		t.Errorf("Get did not return the committed config")
	}
}

func TestLoadYAML(t *testing.T) {
	m := NewManager(writeConfig(t, "config.yaml", `
gateway:
  url: ws://127.0.0.1:9800/ws
tracker:
  game: Sea of Thieves
storage:
  driver: memory
logging:
  level: debug
  console: true
`))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "memory" || cfg.Logging.Level != "debug" {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	m := NewManager(writeConfig(t, "config.json",
		`{"gateway": {"url": "ws://x"}, "tracker": {"game": "g"}, "storage": {"driver": "memory"}, "logging": {"level": "info"}, "bogus": 1}`))
	if _, err := m.Load(); err == nil {
		t.Fatal("unknown top-level field should be rejected")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing gateway url", func(c *Config) { c.Gateway.URL = "" }, "gateway.url"},
		{"missing game", func(c *Config) { c.Tracker.Game = " " }, "tracker.game"},
		{"sqlite without path", func(c *Config) { c.Storage.Path = "" }, "storage.path"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mongo" }, "storage.driver"},
		{"alerts without token", func(c *Config) {
			c.Logging.Alerts = LoggingAlerts{Enabled: true, ChatID: 1}
		}, "alerts.token"},
		{"dashboard without addr", func(c *Config) {
			c.Dashboard = DashboardConfig{Enabled: true}
		}, "dashboard.addr"},
		{"bad duration", func(c *Config) { c.Tracker.CooldownWindow = "two minutes" }, "cooldown_window"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{
				Gateway: GatewayConfig{URL: "ws://x"},
				Tracker: TrackerConfig{Game: "Sea of Thieves"},
				Storage: StorageConfig{Driver: "sqlite", Path: "./db"},
			}
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("want error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidatorGatesCommit(t *testing.T) {
	m := NewManager(writeConfig(t, "config.json", validJSON))
	m.SetValidator(func(_ context.Context, cfg *Config) error {
		if cfg.Tracker.Game == "Sea of Thieves" {
			return errors.New("rejected by validator")
		}
		return nil
	})

	if _, err := m.Load(); err == nil || !strings.Contains(err.Error(), "rejected by validator") {
		t.Fatalf("validator should gate Load, got %v", err)
	}
	if m.Get() != nil {
		t.Fatal("rejected config must not be committed")
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	d, err := ParseDurationOrDefault("x", "", 42)
	if err != nil || d != 42 {
		t.Fatalf("empty should default: d=%v err=%v", d, err)
	}
	if _, err := ParseDurationField("x", "-5s"); err == nil {
		t.Fatal("negative duration should be rejected")
	}
}
