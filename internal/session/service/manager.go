// Package service implements the session manager: the single owner of the
// session lifecycle. The Postgres repository is authoritative; the cache is a
// read-through shortcut whose entries never outlive their session's validity
// by more than a configured ceiling.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"jobhive/backend/internal/cache"
	"jobhive/backend/internal/session/domain"
	"jobhive/backend/internal/session/repository"
)

const cacheKeyPrefix = "session:"

// Config carries the session lifetime policy.
type Config struct {
	// SlidingTTL is the initial sliding window for a standard login.
	SlidingTTL time.Duration
	// RememberSlidingTTL is the sliding window for remember-me logins.
	RememberSlidingTTL time.Duration
	// AbsoluteTTL is the hard ceiling for a standard login.
	AbsoluteTTL time.Duration
	// RememberAbsoluteTTL is the hard ceiling for remember-me logins.
	RememberAbsoluteTTL time.Duration
	// RefreshTriggerPct is the elapsed-window percentage at which a refresh
	// extends the session (inclusive comparison).
	RefreshTriggerPct int
	// CacheCeiling caps the TTL of cached session entries.
	CacheCeiling time.Duration
}

// Manager owns session records. All mutations go through the repository as
// single atomic row writes; cache entries are evicted on mutation and
// re-primed lazily on the next read-through.
type Manager struct {
	repo  repository.Repository
	cache *cache.Store
	cfg   Config
}

// NewManager returns a Manager over the given repository and cache.
func NewManager(repo repository.Repository, cacheStore *cache.Store, cfg Config) *Manager {
	return &Manager{repo: repo, cache: cacheStore, cfg: cfg}
}

func (m *Manager) slidingTTL(rememberMe bool) time.Duration {
	if rememberMe {
		return m.cfg.RememberSlidingTTL
	}
	return m.cfg.SlidingTTL
}

func (m *Manager) absoluteTTL(rememberMe bool) time.Duration {
	if rememberMe {
		return m.cfg.RememberAbsoluteTTL
	}
	return m.cfg.AbsoluteTTL
}

// cacheTTL bounds a cache entry by the session's remaining validity and the
// configured ceiling. Non-positive means "do not cache".
func (m *Manager) cacheTTL(s *domain.Session, now time.Time) time.Duration {
	remaining := s.RemainingValidity(now)
	if remaining <= 0 {
		return 0
	}
	if m.cfg.CacheCeiling > 0 && remaining > m.cfg.CacheCeiling {
		return m.cfg.CacheCeiling
	}
	return remaining
}

func (m *Manager) prime(ctx context.Context, s *domain.Session, now time.Time) {
	if ttl := m.cacheTTL(s, now); ttl > 0 {
		m.cache.Set(ctx, cacheKeyPrefix+s.ID, s, ttl)
	}
}

// Create persists a new session for the user with the configured sliding
// window and absolute cap, primes the cache, and returns the session.
func (m *Manager) Create(ctx context.Context, userID, role string, rememberMe bool) (*domain.Session, error) {
	now := time.Now().UTC()
	s := &domain.Session{
		ID:                uuid.New().String(),
		UserID:            userID,
		Role:              role,
		RememberMe:        rememberMe,
		CreatedAt:         now,
		UpdatedAt:         now,
		ExpiresAt:         now.Add(m.slidingTTL(rememberMe)),
		AbsoluteExpiresAt: now.Add(m.absoluteTTL(rememberMe)),
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := m.repo.Create(ctx, s); err != nil {
		return nil, err
	}
	m.prime(ctx, s, now)
	return s, nil
}

// Get is the cache-aside read: cache hit wins; on miss the authoritative row
// is loaded and re-cached with a bounded TTL. Returns (nil, nil) when the
// session does not exist. The returned record may be revoked or expired;
// callers must check IsExpired before trusting it.
func (m *Manager) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	var cached domain.Session
	if m.cache.Get(ctx, cacheKeyPrefix+sessionID, &cached) {
		return &cached, nil
	}
	s, err := m.repo.GetByID(ctx, sessionID)
	if err != nil || s == nil {
		return nil, err
	}
	m.prime(ctx, s, time.Now().UTC())
	return s, nil
}

// Refresh loads the authoritative row and, when the elapsed sliding-window
// fraction has reached the trigger threshold, extends the deadline (capped at
// the absolute ceiling), persists it, and evicts the cache entry so the next
// read goes through to the store. Returns (nil, nil) for missing, expired, or
// revoked sessions; callers must treat that as logged-out.
func (m *Manager) Refresh(ctx context.Context, sessionID string) (*domain.Session, error) {
	s, err := m.repo.GetByID(ctx, sessionID)
	if err != nil || s == nil {
		return nil, err
	}
	now := time.Now().UTC()
	if s.IsExpired(now) {
		return nil, nil
	}
	if s.ShouldRefresh(now, m.cfg.RefreshTriggerPct) {
		s.Extend(now, m.slidingTTL(s.RememberMe))
		if err := m.repo.Update(ctx, s); err != nil {
			return nil, err
		}
		// Evict rather than re-prime: post-refresh reads must never see
		// the stale pre-extension entry.
		m.cache.Remove(ctx, cacheKeyPrefix+sessionID)
	}
	return s, nil
}

// Revoke terminally revokes the session. Idempotent: revoking a revoked or
// missing session is a no-op returning false.
func (m *Manager) Revoke(ctx context.Context, sessionID string) (bool, error) {
	s, err := m.repo.GetByID(ctx, sessionID)
	if err != nil || s == nil {
		return false, err
	}
	if !s.Revoke(time.Now().UTC()) {
		return false, nil
	}
	if err := m.repo.Update(ctx, s); err != nil {
		return false, err
	}
	m.cache.Remove(ctx, cacheKeyPrefix+sessionID)
	return true, nil
}

// Delete hard-deletes the session row and evicts its cache entry.
func (m *Manager) Delete(ctx context.Context, sessionID string) (bool, error) {
	existed, err := m.repo.Delete(ctx, sessionID)
	if err != nil {
		return false, err
	}
	m.cache.Remove(ctx, cacheKeyPrefix+sessionID)
	return existed, nil
}

// DeleteAllExcept hard-deletes every session of the user except keepID
// (empty deletes all) and evicts each affected cache entry.
func (m *Manager) DeleteAllExcept(ctx context.Context, userID, keepID string) (int, error) {
	ids, err := m.repo.DeleteAllByUser(ctx, userID, keepID)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		m.cache.Remove(ctx, cacheKeyPrefix+id)
	}
	return len(ids), nil
}

// RevokeAllExcept revokes every live session of the user except keepID and
// evicts each affected cache entry.
func (m *Manager) RevokeAllExcept(ctx context.Context, userID, keepID string) (int, error) {
	ids, err := m.repo.RevokeAllByUser(ctx, userID, keepID, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		m.cache.Remove(ctx, cacheKeyPrefix+id)
	}
	return len(ids), nil
}

// List returns one page of the user's sessions straight from the
// authoritative store; listing never consults the cache.
func (m *Manager) List(ctx context.Context, q repository.ListQuery) ([]*domain.Session, error) {
	return m.repo.List(ctx, q)
}
