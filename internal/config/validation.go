package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// EncryptionKeyLength is the AES-256 key size in bytes.
const EncryptionKeyLength = 32

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ParseEncryptionKey decodes a 64 character hex string into a 32 byte key.
func ParseEncryptionKey(s string) ([]byte, error) {
	if len(s) != EncryptionKeyLength*2 {
		return nil, fmt.Errorf("encryption key must be %d hex characters, got %d", EncryptionKeyLength*2, len(s))
	}
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid hex: %w", err)
	}
	return key, nil
}

// EncryptionKey returns the decoded storage key.
func (c GatewayConfig) EncryptionKey() ([]byte, error) {
	return ParseEncryptionKey(c.Storage.EncryptionKey)
}

// ValidateStorage checks the settings needed to read or clear the credential
// file. CLI commands that never talk to the upstream API only need these.
func (c GatewayConfig) ValidateStorage() error {
	var errs ValidationErrors
	c.validateStorage(&errs)
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Validate checks everything the serve command needs. It returns
// ValidationErrors listing every problem found.
func (c GatewayConfig) Validate() error {
	var errs ValidationErrors

	if c.OAuth.ClientID == "" {
		errs.Add("oauth.clientId", "is required (FITGATE_CLIENT_ID)")
	}
	if c.OAuth.ClientSecret == "" {
		errs.Add("oauth.clientSecret", "is required (FITGATE_CLIENT_SECRET)")
	}
	if c.OAuth.RedirectURI == "" {
		errs.Add("oauth.redirectUri", "is required (FITGATE_REDIRECT_URI)")
	} else if u, err := url.Parse(c.OAuth.RedirectURI); err != nil || u.Scheme == "" || u.Host == "" {
		errs.Add("oauth.redirectUri", "must be an absolute URL", c.OAuth.RedirectURI)
	}
	if c.Server.BearerToken == "" {
		errs.Add("server.bearerToken", "is required (FITGATE_BEARER_TOKEN)")
	}
	c.validateStorage(&errs)

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs.Add("server.port", "must be between 1 and 65535", c.Server.Port)
	}
	if !slices.Contains([]string{EnvironmentDevelopment, EnvironmentProduction}, c.Server.Environment) {
		errs.Add("server.environment", "must be development or production", c.Server.Environment)
	}
	if c.Server.MaxSessions < 1 {
		errs.Add("server.maxSessions", "must be positive", c.Server.MaxSessions)
	}
	if c.Server.HeartbeatInterval <= 0 {
		errs.Add("server.heartbeatInterval", "must be positive", c.Server.HeartbeatInterval)
	}
	if c.RateLimit.Window <= 0 {
		errs.Add("rateLimit.window", "must be positive", c.RateLimit.Window)
	}
	if c.RateLimit.TokenLimit < 1 || c.RateLimit.IPLimit < 1 {
		errs.Add("rateLimit", "limits must be positive")
	}
	if c.Cache.TTLSeconds < 0 {
		errs.Add("cache.ttlSeconds", "must not be negative", c.Cache.TTLSeconds)
	}
	if c.Upstream.BaseURL == "" {
		errs.Add("upstream.baseUrl", "is required")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func (c GatewayConfig) validateStorage(errs *ValidationErrors) {
	if c.Storage.EncryptionKey == "" {
		errs.Add("storage.encryptionKey", "is required (FITGATE_ENCRYPTION_KEY, generate one with 'fitgate keygen')")
	} else if _, err := c.EncryptionKey(); err != nil {
		errs.Add("storage.encryptionKey", err.Error())
	}
	if c.Storage.TokenFile == "" {
		errs.Add("storage.tokenFile", "is required")
	}
}
