package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"fitgate/internal/app"
)

// servePort overrides the configured listen port when non-zero.
var servePort int

// serveCmd starts the gateway.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the fitgate HTTP gateway",
	Long: `Starts the gateway and serves MCP over HTTP until interrupted.

Endpoints:
  GET  /health          liveness and connection state (no auth)
  GET  /auth/authorize  start the upstream OAuth flow in a browser
  GET  /auth/callback   OAuth redirect target
  GET  /auth/status     credential status (bearer token)
  POST /auth/disconnect forget the stored credential (bearer token)
  GET  /sse             classic SSE transport (bearer token)
  POST /messages        classic SSE transport messages (bearer token)
  POST /mcp, POST /sse  single-endpoint transport (bearer token)

Configuration:
  fitgate reads config.yaml from the --config directory (default
  ~/.config/fitgate) and FITGATE_* environment variables. At minimum
  FITGATE_CLIENT_ID, FITGATE_CLIENT_SECRET, FITGATE_REDIRECT_URI,
  FITGATE_BEARER_TOKEN and FITGATE_ENCRYPTION_KEY must be set.
  Generate an encryption key with 'fitgate keygen'.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

// runServe is the main entry point for the serve command
func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(debug, configPath, servePort, GetVersion())

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides config and FITGATE_PORT)")
}
