package domain

import (
	"testing"
	"time"
)

func testSession(now time.Time) *Session {
	return &Session{
		ID:                "s1",
		UserID:            "u1",
		Role:              "worker",
		CreatedAt:         now,
		UpdatedAt:         now,
		ExpiresAt:         now.Add(2 * time.Hour),
		AbsoluteExpiresAt: now.Add(7 * 24 * time.Hour),
	}
}

func TestSession_Validate(t *testing.T) {
	now := time.Now()
	s := testSession(now)
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	bad := testSession(now)
	bad.AbsoluteExpiresAt = now.Add(time.Hour) // before sliding expiry
	if err := bad.Validate(); err == nil {
		t.Fatal("absolute before sliding should be invalid")
	}
}

func TestSession_IsExpired(t *testing.T) {
	now := time.Now()
	s := testSession(now)

	if s.IsExpired(now) {
		t.Fatal("fresh session should not be expired")
	}
	if !s.IsExpired(now.Add(2 * time.Hour)) {
		t.Fatal("session at its sliding deadline should be expired")
	}
	if !s.IsExpired(now.Add(8 * 24 * time.Hour)) {
		t.Fatal("session past the absolute ceiling should be expired")
	}
}

func TestSession_RevokedReadsAsExpired(t *testing.T) {
	now := time.Now()
	s := testSession(now)
	if !s.Revoke(now.Add(time.Minute)) {
		t.Fatal("first revoke should succeed")
	}
	// ExpiresAt is still in the future, but the session must read as dead.
	if !s.IsExpired(now.Add(2 * time.Minute)) {
		t.Fatal("revoked session must be expired regardless of ExpiresAt")
	}
}

func TestSession_RevokeIdempotent(t *testing.T) {
	now := time.Now()
	s := testSession(now)
	if !s.Revoke(now) {
		t.Fatal("first revoke should succeed")
	}
	first := *s.RevokedAt
	if s.Revoke(now.Add(time.Hour)) {
		t.Fatal("second revoke should be a no-op")
	}
	if !s.RevokedAt.Equal(first) {
		t.Fatal("second revoke must not move RevokedAt")
	}
}

func TestSession_ShouldRefresh(t *testing.T) {
	now := time.Now()
	s := testSession(now)

	// 2h window, 50% trigger: refresh fires from 1h on (inclusive).
	if s.ShouldRefresh(now.Add(30*time.Minute), 50) {
		t.Fatal("25% elapsed should not trigger refresh")
	}
	if !s.ShouldRefresh(now.Add(time.Hour), 50) {
		t.Fatal("exactly 50% elapsed should trigger refresh (inclusive)")
	}
	if !s.ShouldRefresh(now.Add(90*time.Minute), 50) {
		t.Fatal("75% elapsed should trigger refresh")
	}
}

func TestSession_ShouldRefresh_DeadSessions(t *testing.T) {
	now := time.Now()
	s := testSession(now)
	if s.ShouldRefresh(now.Add(3*time.Hour), 50) {
		t.Fatal("expired session should not refresh")
	}
	s2 := testSession(now)
	s2.Revoke(now)
	if s2.ShouldRefresh(now.Add(time.Hour), 50) {
		t.Fatal("revoked session should not refresh")
	}
}

func TestSession_ExtendCappedAtAbsolute(t *testing.T) {
	now := time.Now()
	s := testSession(now)
	s.AbsoluteExpiresAt = now.Add(3 * time.Hour)

	// Repeated extensions never push past the ceiling.
	for i := 1; i <= 10; i++ {
		at := now.Add(time.Duration(i) * 30 * time.Minute)
		s.Extend(at, 2*time.Hour)
		if s.ExpiresAt.After(s.AbsoluteExpiresAt) {
			t.Fatalf("extension %d pushed ExpiresAt past the absolute ceiling", i)
		}
	}
	if !s.ExpiresAt.Equal(s.AbsoluteExpiresAt) {
		t.Fatalf("ExpiresAt should saturate at the ceiling, got %v", s.ExpiresAt)
	}
}

func TestSession_ExtendOnlyMovesForward(t *testing.T) {
	now := time.Now()
	s := testSession(now)
	deadline := s.ExpiresAt

	// A tiny window from now would land before the current deadline.
	s.Extend(now, time.Minute)
	if !s.ExpiresAt.Equal(deadline) {
		t.Fatalf("deadline moved backwards: %v", s.ExpiresAt)
	}
}

func TestSession_RemainingValidity(t *testing.T) {
	now := time.Now()
	s := testSession(now)
	if got := s.RemainingValidity(now); got != 2*time.Hour {
		t.Fatalf("want 2h, got %v", got)
	}
	s.ExpiresAt = now.Add(10 * 24 * time.Hour) // beyond the ceiling
	if got := s.RemainingValidity(now); got != 7*24*time.Hour {
		t.Fatalf("ceiling should bound validity, got %v", got)
	}
}
