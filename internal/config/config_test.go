package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	want := Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            6790,
			BasePath:        "/wd/hub",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Logger: LoggerConfig{Level: "info", Format: "console"},
		Finder: FinderConfig{PollInterval: 100 * time.Millisecond},
		Timeouts: TimeoutsConfig{
			WaitForIdle:          10 * time.Second,
			ActionAcknowledgment: 3 * time.Second,
			ScrollAcknowledgment: 200 * time.Millisecond,
			WaitForSelector:      10 * time.Second,
		},
	}
	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.Server.Addr(); got != "0.0.0.0:6790" {
		t.Errorf("Addr() = %q", got)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("UIA_SERVER_PORT", "7000")
	t.Setenv("UIA_FINDER_POLL_INTERVAL", "250ms")
	t.Setenv("UIA_LOGGER_FORMAT", "json")

	cfg, err := NewConfigFromViper(New())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Finder.PollInterval != 250*time.Millisecond {
		t.Errorf("poll interval = %v", cfg.Finder.PollInterval)
	}
	if cfg.Logger.Format != "json" {
		t.Errorf("format = %q", cfg.Logger.Format)
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	data := `server:
  port: 4723
  base_path: /
timeouts:
  action_acknowledgment: 500ms
platform:
  fixture: screens/login.xml
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	v := New()
	if err := ReadFile(v, path); err != nil {
		t.Fatal(err)
	}
	cfg, err := NewConfigFromViper(v)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 4723 || cfg.Server.BasePath != "/" {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Platform.Fixture != "screens/login.xml" {
		t.Errorf("fixture = %q", cfg.Platform.Fixture)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Server.Host != "0.0.0.0" || cfg.Timeouts.WaitForIdle != 10*time.Second {
		t.Errorf("defaults lost: %+v %+v", cfg.Server, cfg.Timeouts)
	}
	settings := cfg.SessionDefaults()
	if settings.ActionAcknowledgmentTimeout != 500*time.Millisecond {
		t.Errorf("session action ack = %v", settings.ActionAcknowledgmentTimeout)
	}
	if !settings.ShouldUseCompactResponses || settings.ScreenshotScale != 1 {
		t.Errorf("non-timeout session defaults changed: %+v", settings)
	}
}

func TestReadFile_Missing(t *testing.T) {
	if err := ReadFile(New(), ""); err != nil {
		t.Errorf("optional config lookup failed: %v", err)
	}
	if err := ReadFile(New(), filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("explicit missing config file accepted")
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"base path", func(c *Config) { c.Server.BasePath = "wd/hub" }, "server.base_path"},
		{"level", func(c *Config) { c.Logger.Level = "loud" }, "logger.level"},
		{"format", func(c *Config) { c.Logger.Format = "xml" }, "logger.format"},
		{"poll interval", func(c *Config) { c.Finder.PollInterval = 0 }, "finder.poll_interval"},
		{"implicit wait", func(c *Config) { c.Finder.ImplicitWait = -time.Second }, "finder.implicit_wait"},
		{"timeout", func(c *Config) { c.Timeouts.ScrollAcknowledgment = -1 }, "timeouts.scroll_acknowledgment"},
	}
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error mentioning %s", err, tt.want)
			}
		})
	}
}
