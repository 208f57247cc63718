// internal/config/config.go

// Package config loads the application configuration from file and
// environment via viper and maps it onto the session's construction surface.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/websession/pkg/engine"
	"github.com/xkilldash9x/websession/pkg/session"
)

// EnvPrefix is the prefix for environment variable overrides
// (e.g. WEBSESSION_ENGINE_KIND).
const EnvPrefix = "WEBSESSION"

// Config is the full application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Session SessionConfig `mapstructure:"session"`
}

// LoggerConfig configures the global zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	ServiceName string `mapstructure:"service_name"`
	AddSource   bool   `mapstructure:"add_source"`

	// File output with rotation; empty LogFile disables it.
	LogFile    string `mapstructure:"log_file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// EngineConfig configures the browser engine.
type EngineConfig struct {
	ExecPath string `mapstructure:"exec_path"`
	Kind     string `mapstructure:"kind"`
}

// SessionConfig configures the HTTP side of the session.
type SessionConfig struct {
	DefaultTimeout     time.Duration     `mapstructure:"default_timeout"`
	RequestTimeout     time.Duration     `mapstructure:"request_timeout"`
	Headers            map[string]string `mapstructure:"headers"`
	Proxies            map[string]string `mapstructure:"proxies"`
	InsecureSkipVerify bool              `mapstructure:"insecure_skip_verify"`
}

// SetDefaults registers the default values on a viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "websession")
	v.SetDefault("engine.kind", string(engine.KindChromeHeadless))
	v.SetDefault("session.default_timeout", 5*time.Second)
	v.SetDefault("session.request_timeout", 30*time.Second)
}

// Load reads the configuration from the given file (optional) plus
// environment overrides, and validates it.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars carry it.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the session would fail on later anyway.
func (c *Config) Validate() error {
	switch engine.Kind(c.Engine.Kind) {
	case engine.KindChrome, engine.KindChromeHeadless:
	default:
		return fmt.Errorf("engine.kind must be %q or %q, got %q",
			engine.KindChrome, engine.KindChromeHeadless, c.Engine.Kind)
	}
	if c.Session.DefaultTimeout < 0 {
		return fmt.Errorf("session.default_timeout must not be negative")
	}
	return nil
}

// SessionConfig maps the loaded configuration onto the session package's
// construction surface.
func (c *Config) ToSessionConfig() session.Config {
	return session.Config{
		EngineExecPath:     c.Engine.ExecPath,
		EngineKind:         engine.Kind(c.Engine.Kind),
		DefaultTimeout:     c.Session.DefaultTimeout,
		RequestTimeout:     c.Session.RequestTimeout,
		Headers:            c.Session.Headers,
		Proxies:            c.Session.Proxies,
		InsecureSkipVerify: c.Session.InsecureSkipVerify,
	}
}
