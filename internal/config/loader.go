package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fitgate/pkg/logging"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/fitgate"
	configFileName = "config.yaml"
)

// envOverrides are the FITGATE_* variables layered on top of the file.
// Unset variables leave the file or default value untouched. Numeric
// fields are strict so a malformed value fails startup.
type envOverrides struct {
	ClientID        string `env:"FITGATE_CLIENT_ID"`
	ClientSecret    string `env:"FITGATE_CLIENT_SECRET"`
	RedirectURI     string `env:"FITGATE_REDIRECT_URI"`
	BearerToken     string `env:"FITGATE_BEARER_TOKEN"`
	EncryptionKey   string `env:"FITGATE_ENCRYPTION_KEY"`
	Port            int    `env:"FITGATE_PORT,strict"`
	Host            string `env:"FITGATE_HOST"`
	LogLevel        string `env:"FITGATE_LOG_LEVEL"`
	CORSOrigin      string `env:"FITGATE_CORS_ORIGIN"`
	CacheTTLSeconds int    `env:"FITGATE_CACHE_TTL_SECONDS,strict"`
	TokenFile       string `env:"FITGATE_TOKEN_FILE"`
	Environment     string `env:"FITGATE_ENVIRONMENT"`
	PublicURL       string `env:"FITGATE_PUBLIC_URL"`
}

// GetDefaultConfigDir returns ~/.config/fitgate.
func GetDefaultConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads configuration from configDir/config.yaml, then applies
// FITGATE_* environment overrides. A missing file is not an error.
func LoadConfig(configDir string) (GatewayConfig, error) {
	config := GetDefaultConfig()

	configFilePath := filepath.Join(configDir, configFileName)
	data, err := os.ReadFile(configFilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logging.Info("Config", "No config.yaml found at %s, using defaults", configFilePath)
	case err != nil:
		return GatewayConfig{}, NewIOError(configFilePath, err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return GatewayConfig{}, NewParseError(configFilePath, err)
		}
		logging.Info("Config", "Loaded configuration from %s", configFilePath)
	}

	if err := applyEnv(&config); err != nil {
		return GatewayConfig{}, err
	}

	if config.Storage.TokenFile == "" {
		config.Storage.TokenFile = filepath.Join(configDir, tokenFileName)
	}
	if config.Server.PublicURL == "" {
		config.Server.PublicURL = fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)
	}
	config.Server.PublicURL = strings.TrimRight(config.Server.PublicURL, "/")

	return config, nil
}

func applyEnv(config *GatewayConfig) error {
	var env envOverrides
	if err := envdecode.Decode(&env); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return NewEnvError(err)
	}

	setString(&config.OAuth.ClientID, env.ClientID)
	setString(&config.OAuth.ClientSecret, env.ClientSecret)
	setString(&config.OAuth.RedirectURI, env.RedirectURI)
	setString(&config.Server.BearerToken, env.BearerToken)
	setString(&config.Storage.EncryptionKey, env.EncryptionKey)
	setString(&config.Server.Host, env.Host)
	setString(&config.Logging.Level, env.LogLevel)
	setString(&config.Server.CORSOrigin, env.CORSOrigin)
	setString(&config.Storage.TokenFile, env.TokenFile)
	setString(&config.Server.Environment, env.Environment)
	setString(&config.Server.PublicURL, env.PublicURL)
	// Presence, not the decoded value, decides: FITGATE_CACHE_TTL_SECONDS=0
	// disables the cache.
	if os.Getenv("FITGATE_PORT") != "" {
		config.Server.Port = env.Port
	}
	if os.Getenv("FITGATE_CACHE_TTL_SECONDS") != "" {
		config.Cache.TTLSeconds = env.CacheTTLSeconds
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
