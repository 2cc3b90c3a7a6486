package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() GatewayConfig {
	cfg := GetDefaultConfig()
	cfg.OAuth.ClientID = "client"
	cfg.OAuth.ClientSecret = "secret"
	cfg.OAuth.RedirectURI = "http://localhost:3000/auth/callback"
	cfg.Server.BearerToken = "bearer"
	cfg.Storage.EncryptionKey = testKey
	cfg.Storage.TokenFile = "/tmp/token.json"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*GatewayConfig)
		wantField string
	}{
		{"valid", func(*GatewayConfig) {}, ""},
		{"missing client id", func(c *GatewayConfig) { c.OAuth.ClientID = "" }, "oauth.clientId"},
		{"relative redirect", func(c *GatewayConfig) { c.OAuth.RedirectURI = "/auth/callback" }, "oauth.redirectUri"},
		{"missing bearer", func(c *GatewayConfig) { c.Server.BearerToken = "" }, "server.bearerToken"},
		{"short key", func(c *GatewayConfig) { c.Storage.EncryptionKey = "abcd" }, "storage.encryptionKey"},
		{"non-hex key", func(c *GatewayConfig) { c.Storage.EncryptionKey = strings.Repeat("zz", 32) }, "storage.encryptionKey"},
		{"bad port", func(c *GatewayConfig) { c.Server.Port = 70000 }, "server.port"},
		{"bad environment", func(c *GatewayConfig) { c.Server.Environment = "staging" }, "server.environment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.wantField, verrs[0].Field)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	err := GetDefaultConfig().Validate()

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.GreaterOrEqual(t, len(verrs), 5)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidateStorage(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Storage.TokenFile = "/tmp/token.json"
	assert.Error(t, cfg.ValidateStorage())

	cfg.Storage.EncryptionKey = testKey
	assert.NoError(t, cfg.ValidateStorage())
}

func TestEncryptionKey(t *testing.T) {
	cfg := validConfig()
	key, err := cfg.EncryptionKey()
	require.NoError(t, err)
	assert.Len(t, key, EncryptionKeyLength)
	assert.Equal(t, byte(0x1f), key[31])
}
