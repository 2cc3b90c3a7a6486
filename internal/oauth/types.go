package oauth

import (
	"fmt"
	"time"
)

// Credential is the single upstream OAuth credential the gateway holds.
// It is replaced wholesale on refresh and never mutated in place.
type Credential struct {
	AccessToken  string
	RefreshToken string

	// ExpiresAt is the issue time plus the lifetime the token endpoint
	// reported. It is persisted as epoch milliseconds.
	ExpiresAt time.Time

	TokenType string
	Scope     string
}

// String redacts both tokens so a Credential can be passed to a logger.
func (c *Credential) String() string {
	if c == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Credential{access_token: [REDACTED], refresh: %t, expires_at: %s, scope: %q}",
		c.RefreshToken != "", c.ExpiresAt.Format(time.RFC3339), c.Scope)
}

// GoString implements fmt.GoStringer so %#v is redacted too.
func (c *Credential) GoString() string {
	return c.String()
}

// PendingAuthorization is one in-flight authorize/callback round trip.
type PendingAuthorization struct {
	CodeVerifier string
	State        string
	ExpiresAt    time.Time
}

// AuthorizationRequest is what the registry hands back for embedding in the
// authorize redirect. The verifier stays server-side.
type AuthorizationRequest struct {
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// AuthState is the credential lifecycle as seen by the orchestrator.
type AuthState int

const (
	StateUnauthenticated AuthState = iota
	StateAuthorizing
	StateAuthenticated
	StateRefreshing
)

func (s AuthState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthorizing:
		return "authorizing"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON status payloads.
func (s AuthState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is the side-effect free view of the stored credential used by
// health and diagnostic surfaces.
type Status struct {
	Connected       bool       `json:"connected"`
	State           AuthState  `json:"state"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	Scope           string     `json:"scope,omitempty"`
	HasRefreshToken bool       `json:"hasRefreshToken"`
}
