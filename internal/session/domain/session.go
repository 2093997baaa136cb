// Package domain defines the authoritative session record and its lifecycle
// rules. A session moves Active -> Revoked (terminal) or lapses into Expired,
// which is derived from the clock rather than stored.
package domain

import (
	"errors"
	"time"
)

// Session is the authoritative record of a logged-in browser or device.
// The persistent store owns the truth; cache entries are disposable views.
type Session struct {
	ID         string
	UserID     string
	Role       string
	RememberMe bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
	// ExpiresAt is the sliding deadline; it moves forward on refresh but
	// never past AbsoluteExpiresAt.
	ExpiresAt time.Time
	// AbsoluteExpiresAt is the hard ceiling fixed at creation.
	AbsoluteExpiresAt time.Time
	// RevokedAt is nil while the session is live. Revocation is terminal.
	RevokedAt *time.Time
}

// Validate checks structural invariants. Used on create and by tests.
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("session: id is required")
	}
	if s.UserID == "" {
		return errors.New("session: user id is required")
	}
	if s.AbsoluteExpiresAt.Before(s.ExpiresAt) {
		return errors.New("session: absolute expiry must not precede sliding expiry")
	}
	return nil
}

// IsRevoked reports whether the session was terminally revoked.
func (s *Session) IsRevoked() bool {
	return s.RevokedAt != nil
}

// IsExpired reports whether the session must be treated as dead at now:
// revoked, past the sliding deadline, or past the absolute ceiling. A revoked
// session reads as expired even when ExpiresAt is still in the future.
func (s *Session) IsExpired(now time.Time) bool {
	if s.IsRevoked() {
		return true
	}
	return !now.Before(s.ExpiresAt) || !now.Before(s.AbsoluteExpiresAt)
}

// ShouldRefresh reports whether enough of the current sliding window has
// elapsed for a refresh to extend the session. triggerPct is the percentage
// of the window (measured from the last extension at UpdatedAt) that must
// have passed; the comparison is inclusive (elapsed >= trigger). Revoked or
// expired sessions never refresh.
func (s *Session) ShouldRefresh(now time.Time, triggerPct int) bool {
	if s.IsExpired(now) {
		return false
	}
	window := s.ExpiresAt.Sub(s.UpdatedAt)
	if window <= 0 {
		return false
	}
	elapsed := now.Sub(s.UpdatedAt)
	if elapsed < 0 {
		return false
	}
	return elapsed*100 >= window*time.Duration(triggerPct)
}

// Extend pushes the sliding deadline to now+window, capped at the absolute
// ceiling. The deadline only moves forward; an extension that would land
// before the current deadline leaves it unchanged. UpdatedAt marks the start
// of the new window.
func (s *Session) Extend(now time.Time, window time.Duration) {
	next := now.Add(window)
	if next.After(s.AbsoluteExpiresAt) {
		next = s.AbsoluteExpiresAt
	}
	if next.After(s.ExpiresAt) {
		s.ExpiresAt = next
	}
	s.UpdatedAt = now
}

// Revoke marks the session terminally revoked. Returns false without side
// effects when the session is already revoked.
func (s *Session) Revoke(now time.Time) bool {
	if s.IsRevoked() {
		return false
	}
	t := now
	s.RevokedAt = &t
	s.UpdatedAt = now
	return true
}

// RemainingValidity returns how long the session stays valid from now,
// honoring both deadlines. Non-positive for dead sessions.
func (s *Session) RemainingValidity(now time.Time) time.Duration {
	deadline := s.ExpiresAt
	if s.AbsoluteExpiresAt.Before(deadline) {
		deadline = s.AbsoluteExpiresAt
	}
	return deadline.Sub(now)
}
