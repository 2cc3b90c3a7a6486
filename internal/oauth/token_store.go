package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/natefinch/atomic"
	"k8s.io/utils/clock"

	"fitgate/internal/fault"
	"fitgate/pkg/logging"
)

const (
	// DefaultExpiryBuffer is how long before expiry a token counts as
	// expiring soon.
	DefaultExpiryBuffer = 5 * time.Minute

	tokenFileMode = 0o600
	tokenDirMode  = 0o700
)

// persistedCredential is the on-disk layout. Both token fields hold
// Cipher output; the rest is plaintext.
type persistedCredential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
}

// TokenStoreConfig configures a TokenStore.
type TokenStoreConfig struct {
	Path         string
	Cipher       *Cipher
	Clock        clock.PassiveClock
	ExpiryBuffer time.Duration
}

// TokenStore persists the single upstream credential in an encrypted file
// and keeps a decrypted copy in memory.
type TokenStore struct {
	mu     sync.RWMutex
	cached *Credential

	path         string
	cipher       *Cipher
	clock        clock.PassiveClock
	expiryBuffer time.Duration
}

// NewTokenStore creates a token store. Nothing is read until Load.
func NewTokenStore(cfg TokenStoreConfig) *TokenStore {
	if cfg.Clock == nil {
		cfg.Clock = clock.RealClock{}
	}
	if cfg.ExpiryBuffer <= 0 {
		cfg.ExpiryBuffer = DefaultExpiryBuffer
	}
	return &TokenStore{
		path:         filepath.Clean(cfg.Path),
		cipher:       cfg.Cipher,
		clock:        cfg.Clock,
		expiryBuffer: cfg.ExpiryBuffer,
	}
}

// Path returns the credential file location.
func (ts *TokenStore) Path() string {
	return ts.path
}

// Save encrypts and writes cred, then updates the cache. The file is
// replaced atomically so a crash never leaves a half-written credential.
func (ts *TokenStore) Save(cred *Credential) error {
	access, err := ts.cipher.Encrypt(cred.AccessToken)
	if err != nil {
		return err
	}
	refresh := ""
	if cred.RefreshToken != "" {
		if refresh, err = ts.cipher.Encrypt(cred.RefreshToken); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(persistedCredential{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    cred.ExpiresAt.UnixMilli(),
		TokenType:    cred.TokenType,
		Scope:        cred.Scope,
	}, "", "  ")
	if err != nil {
		return fault.Wrap(fault.KindPersistence, err, "failed to encode credential")
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(ts.path), tokenDirMode); err != nil {
		return fault.Wrap(fault.KindPersistence, err, "failed to create token directory")
	}
	if err := atomic.WriteFile(ts.path, bytes.NewReader(data)); err != nil {
		return fault.Wrap(fault.KindPersistence, err, "failed to write token file")
	}
	if err := os.Chmod(ts.path, tokenFileMode); err != nil {
		return fault.Wrap(fault.KindPersistence, err, "failed to restrict token file permissions")
	}

	saved := *cred
	ts.cached = &saved

	logging.Audit(logging.AuditEvent{
		Action:  "token_stored",
		Outcome: "success",
		Target:  ts.path,
		Details: "expires_at=" + cred.ExpiresAt.UTC().Format(time.RFC3339),
	})
	return nil
}

// Load returns the stored credential, or nil with no error when nothing has
// been stored. A file that cannot be decrypted yields a decryption fault,
// which is distinct from absent.
func (ts *TokenStore) Load() (*Credential, error) {
	ts.mu.RLock()
	if ts.cached != nil {
		cred := *ts.cached
		ts.mu.RUnlock()
		return &cred, nil
	}
	ts.mu.RUnlock()

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.cached != nil {
		cred := *ts.cached
		return &cred, nil
	}

	data, err := os.ReadFile(ts.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fault.Wrap(fault.KindPersistence, err, "failed to read token file")
	}

	var stored persistedCredential
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fault.Wrap(fault.KindDecryption, err, "token file is corrupt")
	}

	access, err := ts.cipher.Decrypt(stored.AccessToken)
	if err != nil {
		logging.Audit(logging.AuditEvent{Action: "token_decrypt", Outcome: "failure", Target: ts.path})
		return nil, err
	}
	refresh := ""
	if stored.RefreshToken != "" {
		if refresh, err = ts.cipher.Decrypt(stored.RefreshToken); err != nil {
			logging.Audit(logging.AuditEvent{Action: "token_decrypt", Outcome: "failure", Target: ts.path})
			return nil, err
		}
	}

	ts.cached = &Credential{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.UnixMilli(max(stored.ExpiresAt, 0)),
		TokenType:    stored.TokenType,
		Scope:        stored.Scope,
	}
	logging.Debug("TokenStore", "Loaded credential from %s", ts.path)

	cred := *ts.cached
	return &cred, nil
}

// Clear removes the stored credential. Clearing an empty store is not an
// error.
func (ts *TokenStore) Clear() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.cached = nil
	if err := os.Remove(ts.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fault.Wrap(fault.KindPersistence, err, "failed to delete token file")
	}

	logging.Audit(logging.AuditEvent{Action: "token_cleared", Outcome: "success", Target: ts.path})
	return nil
}

// Invalidate drops the in-memory copy so the next Load rereads the file.
func (ts *TokenStore) Invalidate() {
	ts.mu.Lock()
	ts.cached = nil
	ts.mu.Unlock()
}

// IsValid reports whether cred has not yet expired.
func (ts *TokenStore) IsValid(cred *Credential) bool {
	return cred != nil && ts.clock.Now().Before(cred.ExpiresAt)
}

// IsExpiringSoon reports whether cred is within the expiry buffer.
func (ts *TokenStore) IsExpiringSoon(cred *Credential) bool {
	if cred == nil {
		return true
	}
	return !ts.clock.Now().Before(cred.ExpiresAt.Add(-ts.expiryBuffer))
}

// HasRefresh reports whether cred carries a refresh token.
func (ts *TokenStore) HasRefresh(cred *Credential) bool {
	return cred != nil && cred.RefreshToken != ""
}

// Watch invalidates the cache whenever the token file changes on disk, so a
// CLI logout or a restored backup takes effect in a running server. The
// watcher stops when ctx is cancelled.
func (ts *TokenStore) Watch(ctx context.Context) error {
	dir := filepath.Dir(ts.path)
	if err := os.MkdirAll(dir, tokenDirMode); err != nil {
		return fault.Wrap(fault.KindPersistence, err, "failed to create token directory")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fault.Wrap(fault.KindInternal, err, "failed to create file watcher")
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fault.Wrap(fault.KindInternal, err, "failed to watch token directory")
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != ts.path {
					continue
				}
				if event.Has(fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename) {
					logging.Debug("TokenStore", "Token file changed (%s), invalidating cache", event.Op)
					ts.Invalidate()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.Warn("TokenStore", "File watcher error: %v", err)
			}
		}
	}()

	logging.Debug("TokenStore", "Watching %s for external changes", dir)
	return nil
}
