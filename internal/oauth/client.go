package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"k8s.io/utils/clock"

	"fitgate/internal/config"
	"fitgate/internal/fault"
	"fitgate/pkg/logging"
)

const (
	// DefaultHTTPTimeout bounds every call to the token endpoint.
	DefaultHTTPTimeout = 30 * time.Second

	// defaultTokenLifetime is assumed when the token endpoint reports no
	// lifetime at all.
	defaultTokenLifetime = time.Hour
)

// Client talks to the upstream authorization server.
type Client struct {
	config     *oauth2.Config
	httpClient *http.Client
	clock      clock.PassiveClock
}

// NewClient creates an OAuth client from configuration. A nil httpClient
// gets one with DefaultHTTPTimeout.
func NewClient(cfg config.OAuthConfig, httpClient *http.Client, clk clock.PassiveClock) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Client{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizeURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
		clock:      clk,
	}
}

// Configured reports whether the client id and redirect URI are set.
func (c *Client) Configured() bool {
	return c.config.ClientID != "" && c.config.RedirectURL != ""
}

// AuthCodeURL composes the upstream authorize URL for req.
func (c *Client) AuthCodeURL(req *AuthorizationRequest) string {
	return c.config.AuthCodeURL(req.State,
		oauth2.SetAuthURLParam("code_challenge", req.CodeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", req.CodeChallengeMethod),
	)
}

// ExchangeCode trades an authorization code and its PKCE verifier for a
// credential. Rejections by the authorization server are authorization
// denied faults; transport failures are upstream unavailable.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*Credential, error) {
	issuedAt := c.clock.Now()
	tok, err := c.config.Exchange(c.withHTTPClient(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < http.StatusInternalServerError {
			logging.Debug("OAuth", "Code exchange rejected: status=%d error=%s", re.Response.StatusCode, re.ErrorCode)
			return nil, fault.Wrap(fault.KindAuthorizationDenied, err, "authorization server rejected the code")
		}
		return nil, fault.Wrap(fault.KindUpstreamUnavailable, err, "token endpoint unavailable")
	}

	cred := c.credentialFromToken(tok, issuedAt)
	logging.Debug("OAuth", "Exchanged authorization code (expires %s)", cred.ExpiresAt.Format(time.RFC3339))
	return cred, nil
}

// RefreshToken obtains a new credential with a refresh token. Any failure
// is a refresh failure; the caller should require re-authentication.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Credential, error) {
	issuedAt := c.clock.Now()
	src := c.config.TokenSource(c.withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, fault.Wrap(fault.KindRefreshFailed, err, "token refresh failed")
	}

	cred := c.credentialFromToken(tok, issuedAt)
	if cred.RefreshToken == "" {
		cred.RefreshToken = refreshToken
	}
	return cred, nil
}

func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func (c *Client) credentialFromToken(tok *oauth2.Token, issuedAt time.Time) *Credential {
	cred := &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		cred.Scope = scope
	}

	switch lifetime, ok := expiresIn(tok); {
	case ok:
		cred.ExpiresAt = issuedAt.Add(lifetime)
	case !tok.Expiry.IsZero():
		cred.ExpiresAt = tok.Expiry
	default:
		cred.ExpiresAt = issuedAt.Add(defaultTokenLifetime)
	}
	return cred
}

// expiresIn reads the reported lifetime from the raw token response.
func expiresIn(tok *oauth2.Token) (time.Duration, bool) {
	var seconds int64
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		seconds = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		seconds = n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		seconds = n
	default:
		if tok.ExpiresIn <= 0 {
			return 0, false
		}
		seconds = tok.ExpiresIn
	}
	if seconds < 0 {
		seconds = 0
	}
	return time.Duration(seconds) * time.Second, true
}
