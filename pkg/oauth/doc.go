// Package oauth provides OAuth 2.1 primitives shared by the gateway and its
// CLI: PKCE verifier/challenge generation (RFC 7636) and CSRF state tokens.
//
//	pkce, err := oauth.GeneratePKCE()
//	state, err := oauth.GenerateState()
//
// The server-side authorization lifecycle lives in internal/oauth.
package oauth
