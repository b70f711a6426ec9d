// Package config loads and validates the application configuration from YAML
// with environment variable substitution.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Version  string         `yaml:"version"`
	Server   ServerConfig   `yaml:"server"`
	API      APIConfig      `yaml:"api"`
	Security SecurityConfig `yaml:"security"`
	Session  SessionConfig  `yaml:"session"`
	Database DatabaseConfig `yaml:"database"`
	Provider ProviderConfig `yaml:"provider"`
	AI       AIConfig       `yaml:"ai"`
	Notify   NotifyConfig   `yaml:"notify"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	HTTPPort        int           `yaml:"http_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`
}

// APIConfig contains API surface configuration.
type APIConfig struct {
	BasePath  string          `yaml:"base_path"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig contains per-IP rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// SecurityConfig holds the process-wide encryption key. Immutable after
// startup.
type SecurityConfig struct {
	// EncryptionKey is the hex-encoded 32-byte key for sealing credentials.
	EncryptionKey string `yaml:"encryption_key"`
}

// SessionConfig controls the application's own bearer tokens.
type SessionConfig struct {
	SigningSecret string        `yaml:"signing_secret"`
	TTL           time.Duration `yaml:"ttl"`
}

// DatabaseConfig contains SQLite configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"`
	// AuditRetention is how long audit events are kept before the
	// periodic sweep removes them. Zero keeps them forever.
	AuditRetention time.Duration `yaml:"audit_retention"`
	SweepInterval  time.Duration `yaml:"sweep_interval"`
}

// ProviderConfig contains the video provider OAuth and API settings.
type ProviderConfig struct {
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	RedirectURL  string        `yaml:"redirect_url"`
	Timeout      time.Duration `yaml:"timeout"`
	// RefreshBuffer is the lead time before expiry at which an access
	// secret is treated as stale.
	RefreshBuffer time.Duration `yaml:"refresh_buffer"`

	// Endpoint overrides, used by tests. Empty means provider defaults.
	AuthURL     string `yaml:"auth_url"`
	TokenURL    string `yaml:"token_url"`
	RevokeURL   string `yaml:"revoke_url"`
	UserInfoURL string `yaml:"userinfo_url"`
	APIBaseURL  string `yaml:"api_base_url"`
}

// AIConfig contains the text-generation service settings.
type AIConfig struct {
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// NotifyConfig contains optional operator alerting settings.
type NotifyConfig struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
}

// Validate checks the configuration for semantic errors.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Session.Validate(); err != nil {
		return err
	}
	if err := c.Provider.Validate(); err != nil {
		return err
	}
	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("security.encryption_key is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.API.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("api.rate_limit.requests_per_minute must not be negative")
	}
	return nil
}

// Validate checks server configuration.
func (s *ServerConfig) Validate() error {
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port must be between 1 and 65535, got %d", s.HTTPPort)
	}
	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("server.log_level must be one of debug, info, warn, error")
	}
	return nil
}

// Validate checks session configuration.
func (s *SessionConfig) Validate() error {
	if s.SigningSecret == "" {
		return fmt.Errorf("session.signing_secret is required")
	}
	if s.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	return nil
}

// Validate checks provider configuration.
func (p *ProviderConfig) Validate() error {
	if p.ClientID == "" {
		return fmt.Errorf("provider.client_id is required")
	}
	if p.ClientSecret == "" {
		return fmt.Errorf("provider.client_secret is required")
	}
	if p.RedirectURL == "" {
		return fmt.Errorf("provider.redirect_url is required")
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("provider.timeout must be positive")
	}
	if p.RefreshBuffer <= 0 {
		return fmt.Errorf("provider.refresh_buffer must be positive")
	}
	return nil
}
