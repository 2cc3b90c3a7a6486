// Package server is the gateway's HTTP surface: the MCP session layer and
// the guards in front of it.
//
// Two MCP transports share one JSON-RPC 2.0 dispatcher:
//
//   - Classic SSE. GET /sse opens a stream and announces
//     "/messages?sessionId=<id>" in an endpoint event. Requests posted there
//     are acknowledged with 202 and their responses are written to the
//     stream as message events. A post for a session with no open stream is
//     answered inline.
//   - Single endpoint. POST /sse or POST /mcp answers each message in the
//     HTTP response.
//
// Notifications never receive a JSON-RPC response on either transport.
//
// Every MCP route and the credential-revealing /auth routes require the
// configured bearer token and pass through a per-token limiter. A per-IP
// limiter sits in front of everything.
package server
