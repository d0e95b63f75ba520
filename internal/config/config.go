// Package config provides configuration loading using koanf.
// Precedence: environment variables over compiled defaults.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/openforum/chatsync/internal/domain"
)

// Config holds the full client configuration.
type Config struct {
	// Environment identifier: "local", "dev", "prod"
	Environment string `koanf:"environment"`

	// Logging configuration
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	// Component configurations
	Chat   ChatConfig   `koanf:"chat"`
	Roster RosterConfig `koanf:"roster"`

	// OpenTelemetry configuration
	OTEL OTELConfig `koanf:"otel"`
}

// ChatConfig holds the synchronization engine's connection parameters.
type ChatConfig struct {
	// Host is the chat server authority used to build the connection URL
	// {ws|wss}://{host}/ws/chat/{userId}/. Required in production.
	Host string `koanf:"host"`

	// TLS selects wss:// over ws://.
	TLS bool `koanf:"tls"`

	DialTimeout  time.Duration `koanf:"dial_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	Reconnect ReconnectConfig `koanf:"reconnect"`
}

// ReconnectConfig holds the bounded exponential backoff knobs.
type ReconnectConfig struct {
	InitialBackoff time.Duration `koanf:"initial_backoff"`
	MaxBackoff     time.Duration `koanf:"max_backoff"`
	MaxAttempts    int           `koanf:"max_attempts"`
}

// RosterConfig holds the initial conversation-list loader parameters.
type RosterConfig struct {
	// BaseURL of the HTTP API serving the conversation list. Defaults to
	// the chat host over http(s) when empty.
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// OTELConfig holds OpenTelemetry configuration.
type OTELConfig struct {
	Endpoint    string `koanf:"endpoint"` // Empty disables OTLP export
	ServiceName string `koanf:"service_name"`
}

// defaults returns a Config with compiled default values.
func defaults() *Config {
	return &Config{
		Environment: "local",
		LogLevel:    "info",
		LogFormat:   "json",

		Chat: ChatConfig{
			Host:         "localhost:8000",
			DialTimeout:  domain.DialTimeout,
			WriteTimeout: domain.WriteTimeout,
			Reconnect: ReconnectConfig{
				InitialBackoff: domain.ReconnectInitialBackoff,
				MaxBackoff:     domain.ReconnectMaxBackoff,
				MaxAttempts:    domain.ReconnectMaxAttempts,
			},
		},
		Roster: RosterConfig{
			Timeout: domain.RosterTimeout,
		},
		OTEL: OTELConfig{
			ServiceName: "chatsync",
		},
	}
}

// Load loads configuration following the precedence:
// 1. Environment variables (highest), e.g. CHAT_HOST, CHAT_RECONNECT_MAX_ATTEMPTS
// 2. Compiled defaults (lowest)
func Load(ctx context.Context) (*Config, error) {
	k := koanf.New(".")

	cfg := defaults()

	// Delimiter: _ maps to . for nested config
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(s), "_", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validateRequired(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateRequired checks that required configuration is present.
func validateRequired(cfg *Config) error {
	// In local environment, every field has a sensible default.
	if cfg.Environment == "local" {
		return nil
	}

	if cfg.Environment == "prod" {
		if cfg.Chat.Host == "" {
			return fmt.Errorf("%w: chat.host", domain.ErrConfigRequired)
		}
	}

	return nil
}

// IsLocal returns true if running in local development environment.
func (c *Config) IsLocal() bool {
	return c.Environment == "local"
}

// IsProd returns true if running in production environment.
func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}
