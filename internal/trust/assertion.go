package trust

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// HeaderName carries the signed identity assertion between services behind
// the edge. The edge strips any inbound value before setting its own.
const HeaderName = "X-Internal-Session"

// ErrInvalidAssertion is returned for every assertion that fails parsing,
// signature verification, or its validity window.
var ErrInvalidAssertion = errors.New("invalid internal assertion")

// Assertion is the identity a verified header resolves to.
type Assertion struct {
	UserID    string `json:"uid"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Signer mints short-lived assertions signed with the edge's private key.
type Signer struct {
	key *rsa.PrivateKey
	ttl time.Duration
}

// NewSigner returns a Signer minting assertions valid for ttl.
func NewSigner(key *rsa.PrivateKey, ttl time.Duration) (*Signer, error) {
	if key == nil {
		return nil, errors.New("trust: nil signing key")
	}
	if ttl <= 0 {
		return nil, errors.New("trust: non-positive assertion ttl")
	}
	return &Signer{key: key, ttl: ttl}, nil
}

// Sign builds the header value payload.signature for the given identity.
func (s *Signer) Sign(userID, role, sessionID string, now time.Time) (string, error) {
	payload, err := json.Marshal(Assertion{
		UserID:    userID,
		Role:      role,
		SessionID: sessionID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	})
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(payload) + "." + base64.RawURLEncoding.EncodeToString(sig), nil
}

// Verifier checks assertions against the edge's public key.
type Verifier struct {
	key *rsa.PublicKey
}

// NewVerifier returns a Verifier for assertions minted by the matching Signer.
func NewVerifier(key *rsa.PublicKey) (*Verifier, error) {
	if key == nil {
		return nil, errors.New("trust: nil verification key")
	}
	return &Verifier{key: key}, nil
}

// Verify parses and authenticates a header value. The assertion must carry a
// valid signature and now must fall inside [iat, exp). Every failure maps to
// ErrInvalidAssertion.
func (v *Verifier) Verify(header string, now time.Time) (*Assertion, error) {
	parts := strings.Split(header, ".")
	if len(parts) != 2 {
		return nil, ErrInvalidAssertion
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrInvalidAssertion
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidAssertion
	}
	digest := sha256.Sum256(payload)
	if err := rsa.VerifyPKCS1v15(v.key, crypto.SHA256, digest[:], sig); err != nil {
		return nil, ErrInvalidAssertion
	}
	var a Assertion
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, ErrInvalidAssertion
	}
	if a.UserID == "" || a.SessionID == "" {
		return nil, ErrInvalidAssertion
	}
	ts := now.Unix()
	if ts < a.IssuedAt || ts >= a.ExpiresAt {
		return nil, ErrInvalidAssertion
	}
	return &a, nil
}
