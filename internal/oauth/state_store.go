package oauth

import (
	"errors"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"fitgate/pkg/logging"
	pkce "fitgate/pkg/oauth"
)

const (
	// DefaultStateTTL leaves room for slow, human-interactive approval.
	DefaultStateTTL = time.Hour

	// DefaultStateSweepInterval is how often expired entries are purged.
	DefaultStateSweepInterval = 5 * time.Minute
)

var (
	// ErrStateNotFound means the state was never issued or was already
	// consumed.
	ErrStateNotFound = errors.New("oauth state not found")

	// ErrStateExpired means the state was issued but is past its expiry.
	ErrStateExpired = errors.New("oauth state expired")
)

// StateStore holds pending authorizations keyed by CSRF state. Entries are
// single-use.
type StateStore struct {
	mu      sync.Mutex
	pending map[string]*PendingAuthorization

	ttl           time.Duration
	sweepInterval time.Duration
	clock         clock.PassiveClock

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewStateStore creates a state store. Call Start to run the periodic sweep.
func NewStateStore(ttl time.Duration, clk clock.PassiveClock) *StateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &StateStore{
		pending:       make(map[string]*PendingAuthorization),
		ttl:           ttl,
		sweepInterval: DefaultStateSweepInterval,
		clock:         clk,
		stopCleanup:   make(chan struct{}),
	}
}

// Begin creates a pending authorization and returns the values to embed in
// the authorize redirect.
func (ss *StateStore) Begin() (*AuthorizationRequest, error) {
	challenge, err := pkce.GeneratePKCE()
	if err != nil {
		return nil, err
	}
	state, err := pkce.GenerateState()
	if err != nil {
		return nil, err
	}

	ss.mu.Lock()
	ss.pending[state] = &PendingAuthorization{
		CodeVerifier: challenge.CodeVerifier,
		State:        state,
		ExpiresAt:    ss.clock.Now().Add(ss.ttl),
	}
	ss.mu.Unlock()

	logging.Debug("OAuth", "Began authorization (state expires in %s)", ss.ttl)

	return &AuthorizationRequest{
		State:               state,
		CodeChallenge:       challenge.CodeChallenge,
		CodeChallengeMethod: challenge.CodeChallengeMethod,
	}, nil
}

// Consume removes the entry for state and returns its verifier. The lookup
// and delete happen under one lock, so concurrent callbacks carrying the
// same state see at most one success. An expired entry is still removed.
func (ss *StateStore) Consume(state string) (string, error) {
	ss.mu.Lock()
	entry, ok := ss.pending[state]
	delete(ss.pending, state)
	ss.mu.Unlock()

	if !ok {
		return "", ErrStateNotFound
	}
	if !ss.clock.Now().Before(entry.ExpiresAt) {
		return "", ErrStateExpired
	}
	return entry.CodeVerifier, nil
}

// Len returns the number of pending authorizations.
func (ss *StateStore) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.pending)
}

// Sweep removes all expired entries and returns how many were removed.
func (ss *StateStore) Sweep() int {
	now := ss.clock.Now()

	ss.mu.Lock()
	defer ss.mu.Unlock()

	count := 0
	for state, entry := range ss.pending {
		if !now.Before(entry.ExpiresAt) {
			delete(ss.pending, state)
			count++
		}
	}

	if count > 0 {
		logging.Debug("OAuth", "Cleaned up %d expired states", count)
	}
	return count
}

// Start runs the periodic sweep until Stop is called.
func (ss *StateStore) Start() {
	go ss.cleanupLoop()
}

// Stop stops the background sweep. It is safe to call more than once.
func (ss *StateStore) Stop() {
	ss.stopOnce.Do(func() { close(ss.stopCleanup) })
}

func (ss *StateStore) cleanupLoop() {
	ticker := time.NewTicker(ss.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ss.Sweep()
		case <-ss.stopCleanup:
			return
		}
	}
}
