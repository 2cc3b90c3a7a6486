package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"sync/atomic"

	"fitgate/pkg/logging"
)

// outboundBuffer bounds how many responses may queue behind a slow stream.
const outboundBuffer = 16

var (
	// ErrTooManySessions is returned by Open when the registry is full.
	ErrTooManySessions = errors.New("too many open sessions")

	// ErrSessionClosed is returned by Send once the stream has gone away.
	ErrSessionClosed = errors.New("session closed")
)

// Session is one classic SSE stream. Responses to requests posted for the
// session are queued on it and written by the stream's own goroutine.
type Session struct {
	ID string

	outbound    chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	initialized atomic.Bool
}

// Send queues msg for the stream. It fails once the session is closed.
func (s *Session) Send(ctx context.Context, msg []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.outbound <- msg:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Outbound yields queued messages.
func (s *Session) Outbound() <-chan []byte { return s.outbound }

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} { return s.done }

// MarkInitialized records the client's notifications/initialized.
func (s *Session) MarkInitialized() { s.initialized.Store(true) }

// Initialized reports whether the client completed the handshake.
func (s *Session) Initialized() bool { return s.initialized.Load() }

func (s *Session) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// SessionRegistry tracks open SSE sessions by id.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	limit    int
}

// NewSessionRegistry creates a registry holding at most limit sessions. A
// non-positive limit means unbounded.
func NewSessionRegistry(limit int) *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*Session),
		limit:    limit,
	}
}

// Open mints a session with a fresh 128-bit id and registers it.
func (r *SessionRegistry) Open() (*Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:       id,
		outbound: make(chan []byte, outboundBuffer),
		done:     make(chan struct{}),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.limit > 0 && len(r.sessions) >= r.limit {
		return nil, ErrTooManySessions
	}
	r.sessions[id] = s
	logging.Debug("Session", "Opened session %s (%d open)", logging.TruncateSessionID(id), len(r.sessions))
	return s, nil
}

// Get returns the open session with the given id.
func (r *SessionRegistry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove unregisters and closes a session. Removing an unknown id is a
// no-op.
func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if ok {
		s.close()
		logging.Debug("Session", "Closed session %s (%d open)", logging.TruncateSessionID(id), n)
	}
}

// Len returns the number of open sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll closes every session, ending their streams.
func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
	if len(sessions) > 0 {
		logging.Info("Session", "Closed %d open sessions", len(sessions))
	}
}

func newSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
