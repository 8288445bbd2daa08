// Package token holds the bearer credential bound to the current session.
package token

import (
	"encoding/hex"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// Lifecycle holds at most one (session id, credential) pair.
// A credential is only handed out for the session it was bound to, so a
// token issued for a replaced session can never reach the provider.
type Lifecycle struct {
	mu        sync.RWMutex
	sessionID string
	token     string
}

// New returns an empty Lifecycle.
func New() *Lifecycle {
	return &Lifecycle{}
}

// Bind atomically replaces the held pair.
func (l *Lifecycle) Bind(sessionID, token string) {
	l.mu.Lock()
	l.sessionID = sessionID
	l.token = token
	l.mu.Unlock()
}

// Current returns the credential if it is bound to sessionID.
func (l *Lifecycle) Current(sessionID string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.token == "" || sessionID == "" || l.sessionID != sessionID {
		return "", false
	}
	return l.token, true
}

// Invalidate drops the credential if it is still bound to sessionID.
// It reports whether anything was dropped.
func (l *Lifecycle) Invalidate(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sessionID != sessionID || l.token == "" {
		return false
	}
	l.token = ""
	return true
}

// Clear empties the Lifecycle.
func (l *Lifecycle) Clear() {
	l.Bind("", "")
}

// BoundTo returns the session id the credential is bound to.
func (l *Lifecycle) BoundTo() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sessionID
}

// Fingerprint returns a short, log-safe identifier for a token.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}
