// Package ratelimit provides the fixed-window abuse guards in front of the
// MCP surface: one Limiter keyed by bearer token, one by source IP.
package ratelimit
