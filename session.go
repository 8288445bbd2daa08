package tempmail

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	localPartLength = 10
	passwordLength  = 16

	localAlphabet    = "abcdefghijklmnopqrstuvwxyz0123456789"
	passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Session is one provisioned disposable mailbox. Values are immutable
// snapshots; a replaced or expired session is never modified.
type Session struct {
	ID        string
	Address   string
	Domain    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether now is past the session's expiry.
func (s Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Remaining returns the time left before expiry, or zero.
func (s Session) Remaining(now time.Time) time.Duration {
	if d := s.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// IsExpired reports whether now is past session's expiry. It has no side
// effects.
func IsExpired(session Session, now time.Time) bool {
	return session.IsExpired(now)
}

// randomString draws n characters from alphabet using crypto/rand.
func randomString(n int, alphabet string) (string, error) {
	size := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generate random string: %w", err)
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}

// generateCredentials returns a random local part and password.
func generateCredentials() (local, password string, err error) {
	if local, err = randomString(localPartLength, localAlphabet); err != nil {
		return "", "", err
	}
	if password, err = randomString(passwordLength, passwordAlphabet); err != nil {
		return "", "", err
	}
	return local, password, nil
}
