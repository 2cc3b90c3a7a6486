// Package logging provides the structured logging used across fitgate.
//
// It is a thin layer over Go's slog package that tags every record with a
// subsystem name so log lines can be filtered per component.
//
// # Usage
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Bootstrap", "Listening on %s", addr)
//	logging.Debug("OAuth", "Refreshing token (expires %s)", expiresAt)
//	logging.Warn("Session", "Heartbeat write failed for %s", logging.TruncateSessionID(id))
//	logging.Error("TokenStore", err, "Failed to persist credential")
//
// # Subsystems
//
//   - Bootstrap: application start and shutdown
//   - Config: configuration loading and validation
//   - OAuth: authorization, code exchange and refresh
//   - TokenStore: encrypted credential persistence
//   - Session: MCP session registry and SSE streams
//   - RateLimit: abuse guards
//   - Provider: upstream fitness API calls
//   - Tools: MCP tool registry and handlers
//   - Cache: tool result cache
//   - HTTP: access log
//
// # Audit Logging
//
// Security-relevant operations are logged through Audit:
//
//	logging.Audit(logging.AuditEvent{
//	    Action:  "token_refresh",
//	    Outcome: "success",
//	})
//
// Audit records are emitted at INFO level with an [AUDIT] prefix. Access and
// refresh tokens are never logged; session IDs are truncated.
package logging
