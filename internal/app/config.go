package app

import (
	"fmt"

	"fitgate/internal/config"
)

// Config holds the application configuration
type Config struct {
	// Debug settings
	Debug bool

	// Custom configuration directory (optional)
	// When empty, ~/.config/fitgate is used
	ConfigPath string

	// Port overrides the configured listen port when non-zero
	Port int

	// Version is reported to MCP clients as the server version
	Version string

	// Gateway configuration, populated during bootstrap
	Gateway *config.GatewayConfig
}

// NewConfig creates a new application configuration
func NewConfig(debug bool, configPath string, port int, version string) *Config {
	return &Config{
		Debug:      debug,
		ConfigPath: configPath,
		Port:       port,
		Version:    version,
	}
}

// LoadGatewayConfig loads the gateway configuration from cfg.ConfigPath, or
// from the default directory when it is empty, and applies flag overrides.
func LoadGatewayConfig(cfg *Config) (config.GatewayConfig, error) {
	dir := cfg.ConfigPath
	if dir == "" {
		var err error
		dir, err = config.GetDefaultConfigDir()
		if err != nil {
			return config.GatewayConfig{}, err
		}
	}

	gw, err := config.LoadConfig(dir)
	if err != nil {
		return config.GatewayConfig{}, err
	}
	if cfg.Port != 0 {
		derived := fmt.Sprintf("http://%s:%d", gw.Server.Host, gw.Server.Port)
		gw.Server.Port = cfg.Port
		if gw.Server.PublicURL == derived {
			gw.Server.PublicURL = fmt.Sprintf("http://%s:%d", gw.Server.Host, cfg.Port)
		}
	}
	if cfg.Debug {
		gw.Logging.Level = "debug"
	}
	return gw, nil
}
