// Package app provides application bootstrap and lifecycle management for
// fitgate.
//
// # Bootstrap
//
// NewApplication performs the startup sequence:
//
//  1. Load configuration: defaults, then ~/.config/fitgate/config.yaml (or
//     the --config directory), then FITGATE_* environment variables, then
//     command-line flags
//  2. Initialize logging at the configured level (--debug forces debug)
//  3. Validate the configuration, reporting every problem at once
//  4. Wire services in dependency order: credential store, PKCE state
//     registry, OAuth manager, upstream data client, result cache, tool
//     registry, rate limiters, HTTP server
//
// # Run
//
// Run starts the background sweeps (PKCE states, cache entries, rate
// windows) and the token file watcher, then serves HTTP. Readiness is
// reported to systemd through sd_notify when NOTIFY_SOCKET is set.
//
// When the context is cancelled the server stops accepting connections,
// closes every SSE stream, waits for in-flight requests and stops the
// sweeps.
//
// # Storage-only use
//
// CLI commands that only touch the stored credential (auth status, auth
// logout) use LoadGatewayConfig and NewTokenStore, which validate the
// storage settings alone.
package app
