package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const validYAML = `
version: "1"
server:
  http_port: 9090
  log_level: debug
security:
  encryption_key: "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
session:
  signing_secret: "test-signing-secret"
  ttl: 48h
database:
  path: ./data/app.db
provider:
  client_id: client-123
  client_secret: secret-456
  redirect_url: http://localhost:9090/auth/callback
ai:
  api_key: ai-key
`

func TestParseValid(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.HTTPPort)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, 48*time.Hour, cfg.Session.TTL)
	require.Equal(t, "client-123", cfg.Provider.ClientID)

	// Defaults survive partial YAML.
	require.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	require.Equal(t, 5*time.Minute, cfg.Provider.RefreshBuffer)
	require.Equal(t, 15*time.Second, cfg.Provider.Timeout)
	require.Equal(t, "/api", cfg.API.BasePath)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("server: [not a map"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to parse YAML")
}

func TestValidateRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no encryption key", func(c *Config) { c.Security.EncryptionKey = "" }, "encryption_key"},
		{"no signing secret", func(c *Config) { c.Session.SigningSecret = "" }, "signing_secret"},
		{"no db path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"no client id", func(c *Config) { c.Provider.ClientID = "" }, "client_id"},
		{"no client secret", func(c *Config) { c.Provider.ClientSecret = "" }, "client_secret"},
		{"no redirect", func(c *Config) { c.Provider.RedirectURL = "" }, "redirect_url"},
		{"bad port", func(c *Config) { c.Server.HTTPPort = 99999 }, "http_port"},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "verbose" }, "log_level"},
		{"bad session ttl", func(c *Config) { c.Session.TTL = 0 }, "ttl"},
		{"bad refresh buffer", func(c *Config) { c.Provider.RefreshBuffer = 0 }, "refresh_buffer"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Parse([]byte(validYAML))
			require.NoError(t, err)
			tc.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoaderEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_PROVIDER_SECRET", "from-env")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  http_port: 8080
security:
  encryption_key: "k"
session:
  signing_secret: "s"
database:
  path: ./app.db
provider:
  client_id: cid
  client_secret: ${TEST_PROVIDER_SECRET}
  redirect_url: http://localhost/cb
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	loader := NewLoader(path)
	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Provider.ClientSecret)
	require.Same(t, cfg, loader.Get())
}

func TestLoaderMissingFile(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := loader.Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "config file not found")
}

func TestLoaderReloadFiresCallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o600))

	loader := NewLoader(path)
	_, err := loader.Load()
	require.NoError(t, err)

	var got *Config
	loader.SetOnChange(func(c *Config) { got = c })

	_, err = loader.Reload()
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 9090, got.Server.HTTPPort)
}
