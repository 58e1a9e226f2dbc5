// Package config loads the server configuration through viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/mj1618/uiautomator-server/internal/session"
)

// EnvPrefix prefixes every environment override, e.g. UIA_SERVER_PORT.
const EnvPrefix = "UIA"

// Config holds the entire application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   yaml:"server"`
	Logger   LoggerConfig   `mapstructure:"logger"   yaml:"logger"`
	Finder   FinderConfig   `mapstructure:"finder"   yaml:"finder"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts"`
	Platform PlatformConfig `mapstructure:"platform" yaml:"platform"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"             yaml:"host"`
	Port            int           `mapstructure:"port"             yaml:"port"`
	BasePath        string        `mapstructure:"base_path"        yaml:"base_path"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoggerConfig configures the zap logger.
type LoggerConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// FinderConfig configures element lookups.
type FinderConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	ImplicitWait time.Duration `mapstructure:"implicit_wait" yaml:"implicit_wait"`
}

// TimeoutsConfig seeds the timeout settings of new sessions.
type TimeoutsConfig struct {
	WaitForIdle          time.Duration `mapstructure:"wait_for_idle"         yaml:"wait_for_idle"`
	ActionAcknowledgment time.Duration `mapstructure:"action_acknowledgment" yaml:"action_acknowledgment"`
	ScrollAcknowledgment time.Duration `mapstructure:"scroll_acknowledgment" yaml:"scroll_acknowledgment"`
	WaitForSelector      time.Duration `mapstructure:"wait_for_selector"     yaml:"wait_for_selector"`
}

// PlatformConfig selects the platform bridge.
type PlatformConfig struct {
	// Fixture is a hierarchy dump served by the in-memory bridge.
	Fixture string `mapstructure:"fixture" yaml:"fixture"`
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	// -- Server --
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 6790)
	v.SetDefault("server.base_path", "/wd/hub")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.shutdown_timeout", "10s")

	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")

	// -- Finder --
	v.SetDefault("finder.poll_interval", "100ms")
	v.SetDefault("finder.implicit_wait", "0s")

	// -- Session timeouts --
	d := session.DefaultSettings()
	v.SetDefault("timeouts.wait_for_idle", d.WaitForIdleTimeout.String())
	v.SetDefault("timeouts.action_acknowledgment", d.ActionAcknowledgmentTimeout.String())
	v.SetDefault("timeouts.scroll_acknowledgment", d.ScrollAcknowledgmentTimeout.String())
	v.SetDefault("timeouts.wait_for_selector", d.WaitForSelectorTimeout.String())

	v.SetDefault("platform.fixture", "")
}

// New returns a viper instance with defaults and environment overrides
// registered. Flags and a config file are bound by the caller.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile merges the YAML config file at path into v. An empty path looks
// for an optional uiautomator-server.yaml in the working directory.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("uiautomator-server")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && path == "" {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// NewDefaultConfig returns the configuration with every default applied.
func NewDefaultConfig() *Config {
	cfg, err := NewConfigFromViper(New())
	if err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return cfg
}

// NewConfigFromViper decodes and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("server.base_path must start with /, got %q", c.Server.BasePath)
	}
	if _, err := zapcore.ParseLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("logger.level: %w", err)
	}
	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}
	if c.Finder.PollInterval <= 0 {
		return fmt.Errorf("finder.poll_interval must be positive")
	}
	if c.Finder.ImplicitWait < 0 {
		return fmt.Errorf("finder.implicit_wait must not be negative")
	}
	for name, d := range map[string]time.Duration{
		"timeouts.wait_for_idle":         c.Timeouts.WaitForIdle,
		"timeouts.action_acknowledgment": c.Timeouts.ActionAcknowledgment,
		"timeouts.scroll_acknowledgment": c.Timeouts.ScrollAcknowledgment,
		"timeouts.wait_for_selector":     c.Timeouts.WaitForSelector,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

// SessionDefaults returns the settings new sessions start with.
func (c *Config) SessionDefaults() session.Settings {
	s := session.DefaultSettings()
	s.WaitForIdleTimeout = c.Timeouts.WaitForIdle
	s.ActionAcknowledgmentTimeout = c.Timeouts.ActionAcknowledgment
	s.ScrollAcknowledgmentTimeout = c.Timeouts.ScrollAcknowledgment
	s.WaitForSelectorTimeout = c.Timeouts.WaitForSelector
	return s
}
