package security

import (
	"strings"
	"testing"
	"time"
)

func TestTokenProvider_IssueAndValidate(t *testing.T) {
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	token, jti, exp, err := p.Issue("u1", "worker", "stamp-1", "s1", TokenKindAccess)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" || jti == "" {
		t.Fatal("token or jti empty")
	}
	if exp.Before(time.Now()) {
		t.Fatal("expires at in the past")
	}

	claims, err := p.Validate(token, TokenKindAccess)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "u1" || claims.Role != "worker" || claims.Stamp != "stamp-1" || claims.SessionID != "s1" {
		t.Errorf("claims mismatch: %+v", claims)
	}
}

func TestTokenProvider_WrongKind(t *testing.T) {
	p, _ := NewTestTokenProvider()
	refresh, _, _, err := p.Issue("u1", "worker", "stamp-1", "s1", TokenKindRefresh)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := p.Validate(refresh, TokenKindAccess); err != ErrInvalidToken {
		t.Fatalf("refresh token as access: want ErrInvalidToken, got %v", err)
	}
	// The kind is still introspectable for the "wrong token type" hint.
	if kind, ok := p.InspectKind(refresh); !ok || kind != TokenKindRefresh {
		t.Fatalf("InspectKind: got %q, %v", kind, ok)
	}
}

func TestTokenProvider_TamperAnySegment(t *testing.T) {
	p, _ := NewTestTokenProvider()
	token, _, _, _ := p.Issue("u1", "worker", "stamp-1", "s1", TokenKindAccess)
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("token should have 3 segments, got %d", len(parts))
	}
	for i := range parts {
		mutated := make([]string, 3)
		copy(mutated, parts)
		seg := []byte(mutated[i])
		if seg[0] == 'A' {
			seg[0] = 'B'
		} else {
			seg[0] = 'A'
		}
		mutated[i] = string(seg)
		if _, err := p.Validate(strings.Join(mutated, "."), TokenKindAccess); err != ErrInvalidToken {
			t.Fatalf("segment %d: tampered token should be invalid, got %v", i, err)
		}
	}
}

func TestTokenProvider_Expired(t *testing.T) {
	p, err := NewTokenProvider(TestTokenSecret, "test-issuer", "test-audience", -time.Minute, -time.Minute)
	if err != nil {
		t.Fatalf("NewTokenProvider: %v", err)
	}
	token, _, _, _ := p.Issue("u1", "worker", "stamp-1", "s1", TokenKindAccess)
	if _, err := p.Validate(token, TokenKindAccess); err != ErrInvalidToken {
		t.Fatalf("expired token: want ErrInvalidToken, got %v", err)
	}
	if _, ok := p.InspectKind(token); ok {
		t.Fatal("InspectKind should reject expired tokens")
	}
}

func TestTokenProvider_WrongIssuerAudience(t *testing.T) {
	other, _ := NewTokenProvider(TestTokenSecret, "other-issuer", "other-audience", time.Minute, time.Hour)
	token, _, _, _ := other.Issue("u1", "worker", "stamp-1", "s1", TokenKindAccess)

	p, _ := NewTestTokenProvider()
	if _, err := p.Validate(token, TokenKindAccess); err != ErrInvalidToken {
		t.Fatalf("foreign issuer/audience: want ErrInvalidToken, got %v", err)
	}
}

func TestTokenProvider_Garbage(t *testing.T) {
	p, _ := NewTestTokenProvider()
	for _, tok := range []string{"", "garbage", "a.b", "a.b.c.d", "!!.!!.!!"} {
		if _, err := p.Validate(tok, TokenKindAccess); err != ErrInvalidToken {
			t.Fatalf("%q: want ErrInvalidToken, got %v", tok, err)
		}
	}
}

func TestTokenProvider_ShortSecret(t *testing.T) {
	if _, err := NewTokenProvider([]byte("short"), "i", "a", time.Minute, time.Hour); err == nil {
		t.Fatal("short secret should be a configuration error")
	}
}

func TestNewSecurityStamp_Unique(t *testing.T) {
	a, err := NewSecurityStamp()
	if err != nil {
		t.Fatalf("NewSecurityStamp: %v", err)
	}
	b, _ := NewSecurityStamp()
	if a == b || len(a) != 32 {
		t.Fatalf("stamps should be unique 16-byte hex values: %q %q", a, b)
	}
}
