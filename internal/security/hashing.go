// Package security implements the credential-protection primitives: password
// hashing, keyed email hashing, field encryption, signed bearer tokens, and
// PEM key loading. Key material is validated at construction time; per-call
// failures are reported as recoverable errors.
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrMissingKey is returned by constructors when key material is absent or unusable.
var ErrMissingKey = errors.New("missing or invalid key material")

// Hasher hashes and verifies passwords using bcrypt. Callers must not log or
// persist plaintext passwords. Two hashes of the same password differ; only
// Compare can verify a stored hash.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher with the given bcrypt cost (4–31). Cost 12 is a
// reasonable default for interactive login.
func NewHasher(cost int) *Hasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash produces a bcrypt hash of password. Returns the hash as a string
// suitable for storage.
func (h *Hasher) Hash(password []byte) (string, error) {
	b, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare verifies password against the stored hash using bcrypt's own
// constant-time comparison. Returns nil if they match.
func (h *Hasher) Compare(hash string, password []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), password)
}

// EmailHasher produces a deterministic keyed hash of an email address so rows
// can be looked up by hash without persisting the plaintext address. The key
// keeps the hash resistant to offline brute-force of the address space.
type EmailHasher struct {
	key []byte
}

// NewEmailHasher returns an EmailHasher using the given HMAC key.
// An empty key is a configuration error.
func NewEmailHasher(key []byte) (*EmailHasher, error) {
	if len(key) == 0 {
		return nil, ErrMissingKey
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &EmailHasher{key: k}, nil
}

// NormalizeEmail lowercases and trims the address so equivalent inputs hash
// identically.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Hash returns the hex-encoded HMAC-SHA256 of the normalized address.
func (e *EmailHasher) Hash(email string) string {
	mac := hmac.New(sha256.New, e.key)
	mac.Write([]byte(NormalizeEmail(email)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the hash for email and compares it to storedHash in
// constant time. Returns true only on an exact match.
func (e *EmailHasher) Verify(email, storedHash string) bool {
	computed := e.Hash(email)
	return hmac.Equal([]byte(computed), []byte(storedHash))
}
