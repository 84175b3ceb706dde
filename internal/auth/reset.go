package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DefaultResetTTL is how long a password reset token stays redeemable.
const DefaultResetTTL = 15 * time.Minute

// ResetToken is a freshly issued reset token. Plain is emailed to the user;
// only Hash is persisted.
type ResetToken struct {
	Plain     string
	Hash      string
	ExpiresAt time.Time
}

// NewResetToken generates 32 random bytes, hex-encoded, valid for ttl.
func NewResetToken(ttl time.Duration) (ResetToken, error) {
	if ttl <= 0 {
		ttl = DefaultResetTTL
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return ResetToken{}, err
	}
	plain := hex.EncodeToString(buf)
	return ResetToken{
		Plain:     plain,
		Hash:      HashResetToken(plain),
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// HashResetToken returns the SHA-256 hex digest of a reset token.
func HashResetToken(plain string) string {
	h := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(h[:])
}
