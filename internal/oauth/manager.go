package oauth

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"fitgate/internal/fault"
	"fitgate/pkg/logging"
)

// refreshKey is the singleflight key; there is only ever one credential.
const refreshKey = "refresh"

// Manager drives the authorize, callback, exchange and refresh lifecycle and
// hands out valid access tokens to everything that calls the upstream API.
type Manager struct {
	client *Client
	states *StateStore
	tokens *TokenStore

	refreshGroup singleflight.Group

	mu    sync.RWMutex
	state AuthState
	// known is false until this process has observed a transition; a
	// credential left by an earlier process then reads as authenticated.
	known bool
}

// NewManager wires the orchestrator to its stores.
func NewManager(client *Client, states *StateStore, tokens *TokenStore) *Manager {
	return &Manager{
		client: client,
		states: states,
		tokens: tokens,
		state:  StateUnauthenticated,
	}
}

func (m *Manager) setState(s AuthState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.known = true
	if m.state != s {
		logging.Debug("OAuth", "State %s -> %s", m.state, s)
		m.state = s
	}
}

func (m *Manager) currentState() (AuthState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, m.known
}

// BuildAuthorizeRedirect starts an authorization attempt and returns the
// upstream URL the browser should be sent to.
func (m *Manager) BuildAuthorizeRedirect() (string, error) {
	if !m.client.Configured() {
		return "", fault.New(fault.KindConfiguration, "OAuth client id and redirect URI must be configured")
	}

	req, err := m.states.Begin()
	if err != nil {
		return "", fault.Wrap(fault.KindInternal, err, "failed to start authorization")
	}

	if state, _ := m.currentState(); state == StateUnauthenticated {
		m.setState(StateAuthorizing)
	}
	logging.Info("OAuth", "Starting authorization flow")
	return m.client.AuthCodeURL(req), nil
}

// HandleCallback completes an authorization attempt. An unknown and an
// expired state produce the same fault so callers learn nothing about which
// case occurred.
func (m *Manager) HandleCallback(ctx context.Context, code, state, errParam string) error {
	if errParam != "" {
		logging.Audit(logging.AuditEvent{Action: "authorization", Outcome: "denied", Details: errParam})
		return fault.Newf(fault.KindAuthorizationDenied, "authorization denied: %s", errParam)
	}

	verifier, err := m.states.Consume(state)
	if err != nil {
		if errors.Is(err, ErrStateExpired) {
			logging.Warn("OAuth", "Callback with expired state")
		} else {
			logging.Warn("OAuth", "Callback with unknown state")
		}
		logging.Audit(logging.AuditEvent{Action: "authorization", Outcome: "invalid_state"})
		return fault.New(fault.KindInvalidState, "invalid or expired state parameter (CSRF protection)")
	}

	if code == "" {
		return fault.New(fault.KindAuthorizationDenied, "callback is missing the authorization code")
	}

	cred, err := m.client.ExchangeCode(ctx, code, verifier)
	if err != nil {
		logging.Error("OAuth", err, "Failed to exchange authorization code")
		return err
	}
	if err := m.tokens.Save(cred); err != nil {
		return err
	}

	m.setState(StateAuthenticated)
	logging.Audit(logging.AuditEvent{Action: "authorization", Outcome: "success"})
	logging.Info("OAuth", "Authorization complete, token valid until %s", cred.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}

// Refresh exchanges refreshToken for a new credential and persists it. The
// previous refresh token is kept when the server does not rotate it.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*Credential, error) {
	m.setState(StateRefreshing)

	cred, err := m.client.RefreshToken(ctx, refreshToken)
	if err != nil {
		m.setState(StateUnauthenticated)
		logging.Audit(logging.AuditEvent{Action: "token_refresh", Outcome: "failure"})
		logging.Error("OAuth", err, "Token refresh failed")
		return nil, err
	}
	if err := m.tokens.Save(cred); err != nil {
		m.setState(StateAuthenticated)
		return nil, err
	}

	m.setState(StateAuthenticated)
	logging.Audit(logging.AuditEvent{Action: "token_refresh", Outcome: "success"})
	return cred, nil
}

// GetValidAccessToken returns an access token that is not expiring soon,
// refreshing first when needed. Concurrent callers share one refresh.
func (m *Manager) GetValidAccessToken(ctx context.Context) (string, error) {
	cred, err := m.tokens.Load()
	if err != nil {
		return "", err
	}
	if cred == nil {
		m.setState(StateUnauthenticated)
		return "", fault.New(fault.KindNotAuthenticated, "not authenticated; visit /auth/authorize to connect")
	}
	if m.tokens.IsValid(cred) && !m.tokens.IsExpiringSoon(cred) {
		return cred.AccessToken, nil
	}
	if !m.tokens.HasRefresh(cred) {
		m.setState(StateUnauthenticated)
		return "", fault.New(fault.KindReauthenticationRequired, "access token expired and no refresh token is available")
	}

	result, err, shared := m.refreshGroup.Do(refreshKey, func() (interface{}, error) {
		// Another caller may have refreshed while we waited.
		if latest, err := m.tokens.Load(); err == nil && latest != nil &&
			m.tokens.IsValid(latest) && !m.tokens.IsExpiringSoon(latest) {
			return latest, nil
		}
		// The refresh outlives a cancelled caller so that waiters sharing
		// it still get a result; the HTTP client timeout bounds it.
		return m.Refresh(context.WithoutCancel(ctx), cred.RefreshToken)
	})
	if err != nil {
		if fault.Is(err, fault.KindRefreshFailed) {
			return "", fault.Wrap(fault.KindReauthenticationRequired, err, "re-authentication required")
		}
		return "", err
	}
	if shared {
		logging.Debug("OAuth", "Shared in-flight token refresh")
	}
	return result.(*Credential).AccessToken, nil
}

// Status reports the stored credential without refreshing it.
func (m *Manager) Status() (*Status, error) {
	cred, err := m.tokens.Load()
	if err != nil {
		return nil, err
	}

	state, known := m.currentState()
	status := &Status{State: state}
	if cred == nil {
		if state == StateAuthenticated {
			// Cleared outside this process.
			status.State = StateUnauthenticated
		}
		return status, nil
	}

	expiresAt := cred.ExpiresAt
	status.Connected = m.tokens.IsValid(cred)
	status.ExpiresAt = &expiresAt
	status.Scope = cred.Scope
	status.HasRefreshToken = m.tokens.HasRefresh(cred)
	if !known {
		status.State = StateAuthenticated
	}
	return status, nil
}

// Disconnect forgets the stored credential.
func (m *Manager) Disconnect() error {
	if err := m.tokens.Clear(); err != nil {
		return err
	}
	m.setState(StateUnauthenticated)
	logging.Info("OAuth", "Disconnected from upstream API")
	return nil
}

// Stop stops the state registry sweep.
func (m *Manager) Stop() {
	m.states.Stop()
	logging.Info("OAuth", "OAuth manager stopped")
}
