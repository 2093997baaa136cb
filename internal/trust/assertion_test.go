package trust

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"jobhive/backend/internal/security"
)

func newTestPair(t *testing.T, ttl time.Duration) (*Signer, *Verifier) {
	t.Helper()
	priv, err := security.ParseRSAPrivateKey(security.TestPrivateKeyPEM)
	if err != nil {
		t.Fatalf("parse private key: %v", err)
	}
	pub, err := security.ParseRSAPublicKey(security.TestPublicKeyPEM)
	if err != nil {
		t.Fatalf("parse public key: %v", err)
	}
	signer, err := NewSigner(priv, ttl)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	verifier, err := NewVerifier(pub)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return signer, verifier
}

func TestSignVerifyRoundTrip(t *testing.T) {
	signer, verifier := newTestPair(t, 30*time.Second)
	now := time.Now().UTC()

	header, err := signer.Sign("user-1", "worker", "session-1", now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if parts := strings.Split(header, "."); len(parts) != 2 {
		t.Fatalf("header %q should have exactly two segments", header)
	}

	a, err := verifier.Verify(header, now.Add(time.Second))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if a.UserID != "user-1" || a.Role != "worker" || a.SessionID != "session-1" {
		t.Errorf("assertion = %+v", a)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	signer, verifier := newTestPair(t, 30*time.Second)
	now := time.Now().UTC()

	header, err := signer.Sign("user-1", "worker", "session-1", now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := verifier.Verify(header, now.Add(30*time.Second)); !errors.Is(err, ErrInvalidAssertion) {
		t.Errorf("assertion at exact expiry accepted, err = %v", err)
	}
	if _, err := verifier.Verify(header, now.Add(time.Minute)); !errors.Is(err, ErrInvalidAssertion) {
		t.Errorf("expired assertion accepted, err = %v", err)
	}
}

func TestVerifyRejectsFutureIssuedAt(t *testing.T) {
	signer, verifier := newTestPair(t, 30*time.Second)
	now := time.Now().UTC()

	header, err := signer.Sign("user-1", "worker", "session-1", now.Add(time.Minute))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := verifier.Verify(header, now); !errors.Is(err, ErrInvalidAssertion) {
		t.Errorf("assertion issued in the future accepted, err = %v", err)
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	signer, verifier := newTestPair(t, 30*time.Second)
	now := time.Now().UTC()

	header, err := signer.Sign("user-1", "worker", "session-1", now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	parts := strings.Split(header, ".")
	payload, _ := base64.RawURLEncoding.DecodeString(parts[0])
	forged := []byte(strings.Replace(string(payload), `"worker"`, `"admin!"`, 1))
	tampered := base64.RawURLEncoding.EncodeToString(forged) + "." + parts[1]

	if _, err := verifier.Verify(tampered, now); !errors.Is(err, ErrInvalidAssertion) {
		t.Errorf("role-swapped assertion accepted, err = %v", err)
	}
}

func TestVerifyRejectsMalformedHeaders(t *testing.T) {
	signer, verifier := newTestPair(t, 30*time.Second)
	now := time.Now().UTC()

	header, err := signer.Sign("user-1", "worker", "session-1", now)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	parts := strings.Split(header, ".")

	for _, h := range []string{
		"",
		"justonesegment",
		"a.b.c",
		parts[0],                 // missing signature
		parts[0] + ".",           // empty signature
		"!!!." + parts[1],        // invalid base64 payload
		parts[0] + "." + "!!!!",  // invalid base64 signature
		parts[1] + "." + parts[0], // segments swapped
	} {
		if _, err := verifier.Verify(h, now); !errors.Is(err, ErrInvalidAssertion) {
			t.Errorf("Verify(%q): err = %v, want ErrInvalidAssertion", h, err)
		}
	}
}
