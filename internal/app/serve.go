package app

import (
	"context"
	"net"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"fitgate/pkg/logging"
)

// shutdownTimeout bounds how long in-flight requests may take to finish.
const shutdownTimeout = 10 * time.Second

// runServer starts the background sweeps and the token file watcher, serves
// HTTP and tears everything down when ctx ends.
//
// Readiness and shutdown are reported to systemd when the process runs
// under a unit with Type=notify; elsewhere the notifications are no-ops.
func runServer(ctx context.Context, cfg *Config, services *Services) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	services.States.Start()
	services.Cache.Start()
	services.TokenLimiter.Start()
	services.IPLimiter.Start()
	defer func() {
		services.OAuth.Stop()
		services.Cache.Stop()
		services.TokenLimiter.Stop()
		services.IPLimiter.Stop()
	}()

	if err := services.Tokens.Watch(ctx); err != nil {
		logging.Warn("Bootstrap", "Token file watcher disabled: %v", err)
	}

	ln, err := net.Listen("tcp", services.Server.Addr())
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to listen on %s", services.Server.Addr())
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- services.Server.Serve(ln)
	}()

	logging.Info("Bootstrap", "fitgate %s ready at %s", cfg.Version, cfg.Gateway.Server.PublicURL)
	logging.Info("Bootstrap", "Connect the upstream account at %s/auth/authorize", cfg.Gateway.Server.PublicURL)
	notifySystemd(daemon.SdNotifyReady)

	select {
	case <-ctx.Done():
		logging.Info("Bootstrap", "Shutting down")
	case err := <-serveErr:
		if err != nil {
			logging.Error("Bootstrap", err, "HTTP server failed")
			return err
		}
	}

	notifySystemd(daemon.SdNotifyStopping)
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := services.Server.Shutdown(shutdownCtx); err != nil {
		logging.Error("Bootstrap", err, "Graceful shutdown did not complete")
		return err
	}
	logging.Info("Bootstrap", "Shutdown complete")
	return nil
}

func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		logging.Warn("Bootstrap", "systemd notification failed: %v", err)
		return
	}
	if sent {
		logging.Debug("Bootstrap", "Notified systemd: %s", state)
	}
}
