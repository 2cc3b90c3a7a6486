package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o600))
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultHeartbeatInterval, cfg.Server.HeartbeatInterval)
	assert.Equal(t, DefaultRateLimitWindow, cfg.RateLimit.Window)
	assert.Equal(t, 300*time.Second, cfg.Cache.TTL())
	assert.Equal(t, filepath.Join(dir, "token.json"), cfg.Storage.TokenFile)
	assert.Equal(t, "http://localhost:3000", cfg.Server.PublicURL)
	assert.False(t, cfg.Server.IsDevelopment())
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
server:
  port: 8080
  environment: development
  heartbeatInterval: 10s
rateLimit:
  window: 1m
  tokenLimit: 5
cache:
  ttlSeconds: 60
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, 10*time.Second, cfg.Server.HeartbeatInterval)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 5, cfg.RateLimit.TokenLimit)
	assert.Equal(t, DefaultIPLimit, cfg.RateLimit.IPLimit)
	assert.Equal(t, 60, cfg.Cache.TTLSeconds)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "server:\n  port: 8080\n")

	t.Setenv("FITGATE_PORT", "9090")
	t.Setenv("FITGATE_CLIENT_ID", "client")
	t.Setenv("FITGATE_ENCRYPTION_KEY", testKey)
	t.Setenv("FITGATE_PUBLIC_URL", "https://fit.example.com/")
	t.Setenv("FITGATE_CACHE_TTL_SECONDS", "30")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "client", cfg.OAuth.ClientID)
	assert.Equal(t, testKey, cfg.Storage.EncryptionKey)
	assert.Equal(t, "https://fit.example.com", cfg.Server.PublicURL)
	assert.Equal(t, 30, cfg.Cache.TTLSeconds)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "server: [unclosed")

	_, err := LoadConfig(dir)
	require.Error(t, err)

	var cfgErr ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "parse", cfgErr.ErrorType)
	assert.Contains(t, cfgErr.DetailedError(), "Suggestions:")
}

func TestLoadConfig_InvalidEnv(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "port", key: "FITGATE_PORT", value: "not-a-number"},
		{name: "cache ttl", key: "FITGATE_CACHE_TTL_SECONDS", value: "5m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := LoadConfig(t.TempDir())
			require.Error(t, err)

			var cfgErr ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, "env", cfgErr.ErrorType)
		})
	}
}

func TestLoadConfig_EnvZeroCacheTTLDisablesCache(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "cache:\n  ttlSeconds: 60\n")
	t.Setenv("FITGATE_CACHE_TTL_SECONDS", "0")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Cache.TTLSeconds)
	assert.Equal(t, time.Duration(0), cfg.Cache.TTL())
}
