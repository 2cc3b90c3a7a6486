package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"k8s.io/utils/clock"

	"fitgate/internal/config"
	"fitgate/pkg/logging"
)

// Application represents the gateway process. It owns the configuration and
// every running component.
//
// The Application follows a two-phase initialization pattern:
//  1. Bootstrap phase: load configuration, initialize logging, wire services
//  2. Execution phase: start background tasks and serve HTTP until cancelled
//
// Example usage:
//
//	cfg := app.NewConfig(false, "", 0, version)
//	application, err := app.NewApplication(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to create application: %w", err)
//	}
//	return application.Run(ctx)
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance with the provided configuration.
// This function performs the complete bootstrap sequence:
//
//  1. Loads the gateway configuration (file, environment, flags)
//  2. Configures logging from the resolved level
//  3. Validates the configuration
//  4. Initializes the credential store, OAuth manager, tools and HTTP server
//
// If cfg.Gateway is already set, loading is skipped and that configuration
// is used as is.
func NewApplication(cfg *Config) (*Application, error) {
	return newApplication(cfg, clock.RealClock{}, os.Stderr)
}

func newApplication(cfg *Config, clk clock.WithTicker, logOutput io.Writer) (*Application, error) {
	if cfg.Gateway == nil {
		gw, err := LoadGatewayConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load fitgate configuration: %w", err)
		}
		cfg.Gateway = &gw
	}

	level, ok := logging.ParseLevel(cfg.Gateway.Logging.Level)
	if !ok {
		level = logging.LevelInfo
	}
	if cfg.Debug {
		level = logging.LevelDebug
	}
	logging.Init(level, logOutput)
	if !ok {
		logging.Warn("Bootstrap", "Unknown log level %q, using info", cfg.Gateway.Logging.Level)
	}

	if err := cfg.Gateway.Validate(); err != nil {
		logging.Error("Bootstrap", err, "Invalid configuration")
		return nil, err
	}
	if cfg.Gateway.Server.IsDevelopment() {
		logging.Warn("Bootstrap", "Running in development mode: error details are exposed to clients")
	}

	services, err := InitializeServices(cfg, clk)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// Services exposes the wired components.
func (a *Application) Services() *Services {
	return a.services
}

// Gateway returns the resolved configuration.
func (a *Application) Gateway() config.GatewayConfig {
	return *a.config.Gateway
}

// Run executes the application until ctx is cancelled or the HTTP server
// fails. Shutdown closes open streams and stops every background task.
func (a *Application) Run(ctx context.Context) error {
	return runServer(ctx, a.config, a.services)
}
