// Package oauth connects fitgate to the upstream fitness API on behalf of
// its single user.
//
// # Flow
//
//  1. The user opens /auth/authorize and is redirected to the upstream
//     consent page with a PKCE challenge and a CSRF state.
//  2. The upstream redirects back to /auth/callback with a code.
//  3. The state is consumed, the code and verifier are exchanged for a
//     credential, and the credential is written to the encrypted token file.
//  4. Every upstream data call asks Manager.GetValidAccessToken for a
//     token, which refreshes transparently within five minutes of expiry.
//
// # Components
//
//   - Cipher: AES-256-GCM sealing of token strings
//   - TokenStore: the encrypted credential file plus an in-memory copy
//   - StateStore: single-use pending authorizations with a one hour expiry
//   - Client: authorize URL, code exchange and refresh via golang.org/x/oauth2
//   - Manager: the credential lifecycle
//   - Handler: the /auth HTTP endpoints
//
// # Security
//
// Access and refresh tokens are encrypted at rest and never logged; the
// Credential type redacts itself when formatted. Unknown and expired states
// are reported identically. Callback pages carry restrictive security
// headers.
package oauth
