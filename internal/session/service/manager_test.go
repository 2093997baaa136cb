package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"jobhive/backend/internal/cache"
	"jobhive/backend/internal/session/domain"
	"jobhive/backend/internal/session/repository"
)

type memSessionRepo struct {
	mu sync.Mutex
	m  map[string]*domain.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{m: map[string]*domain.Session{}}
}

func (r *memSessionRepo) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *memSessionRepo) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.m[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) Update(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.m[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.m[id]
	delete(r.m, id)
	return ok, nil
}

func (r *memSessionRepo) DeleteAllByUser(ctx context.Context, userID, keepID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, s := range r.m {
		if s.UserID == userID && id != keepID {
			ids = append(ids, id)
			delete(r.m, id)
		}
	}
	return ids, nil
}

func (r *memSessionRepo) RevokeAllByUser(ctx context.Context, userID, keepID string, at time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, s := range r.m {
		if s.UserID == userID && id != keepID && !s.IsRevoked() {
			t := at
			s.RevokedAt = &t
			s.UpdatedAt = at
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *memSessionRepo) List(ctx context.Context, q repository.ListQuery) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.m {
		if s.UserID != q.UserID {
			continue
		}
		if q.ActiveOnly && s.IsExpired(time.Now()) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if q.Ascending {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if !q.AfterCreatedAt.IsZero() {
		filtered := out[:0]
		for _, s := range out {
			if q.Ascending && s.CreatedAt.After(q.AfterCreatedAt) {
				filtered = append(filtered, s)
			}
			if !q.Ascending && s.CreatedAt.Before(q.AfterCreatedAt) {
				filtered = append(filtered, s)
			}
		}
		out = filtered
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func testConfig() Config {
	return Config{
		SlidingTTL:          2 * time.Hour,
		RememberSlidingTTL:  720 * time.Hour,
		AbsoluteTTL:         7 * 24 * time.Hour,
		RememberAbsoluteTTL: 90 * 24 * time.Hour,
		RefreshTriggerPct:   50,
		CacheCeiling:        15 * time.Minute,
	}
}

func newTestManager(t *testing.T) (*Manager, *memSessionRepo, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := newMemSessionRepo()
	return NewManager(repo, cache.New(rdb, "test"), testConfig()), repo, mr
}

func TestManager_CreateLifetimes(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	s, err := m.Create(ctx, "u1", "worker", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := s.ExpiresAt.Sub(s.CreatedAt); got != 2*time.Hour {
		t.Errorf("sliding window: want 2h, got %v", got)
	}
	if got := s.AbsoluteExpiresAt.Sub(s.CreatedAt); got != 7*24*time.Hour {
		t.Errorf("absolute cap: want 168h, got %v", got)
	}

	remembered, _ := m.Create(ctx, "u1", "worker", true)
	if got := remembered.ExpiresAt.Sub(remembered.CreatedAt); got != 720*time.Hour {
		t.Errorf("remember-me sliding window: want 720h, got %v", got)
	}
}

func TestManager_GetReadsThroughAndPrimes(t *testing.T) {
	m, repo, _ := newTestManager(t)
	ctx := context.Background()

	s, _ := m.Create(ctx, "u1", "worker", false)

	// Create primed the cache; the row can vanish and Get still hits.
	repo.mu.Lock()
	delete(repo.m, s.ID)
	repo.mu.Unlock()

	got, err := m.Get(ctx, s.ID)
	if err != nil || got == nil {
		t.Fatalf("Get after prime: %v, %v", got, err)
	}
	if got.UserID != "u1" {
		t.Errorf("got %+v", got)
	}
}

func TestManager_GetMissLoadsStoreAndReprimes(t *testing.T) {
	m, repo, mr := newTestManager(t)
	ctx := context.Background()

	s, _ := m.Create(ctx, "u1", "worker", false)
	mr.FlushAll() // drop the primed entry

	got, err := m.Get(ctx, s.ID)
	if err != nil || got == nil {
		t.Fatalf("Get on cache miss: %v, %v", got, err)
	}

	// The read-through must have re-primed the cache.
	repo.mu.Lock()
	delete(repo.m, s.ID)
	repo.mu.Unlock()
	if again, _ := m.Get(ctx, s.ID); again == nil {
		t.Fatal("second Get should be served from the re-primed cache")
	}
}

func TestManager_CacheTTLCappedAtCeiling(t *testing.T) {
	m, _, mr := newTestManager(t)
	ctx := context.Background()

	s, _ := m.Create(ctx, "u1", "worker", false)
	ttl := mr.TTL("test:" + cacheKeyPrefix + s.ID)
	if ttl <= 0 || ttl > 15*time.Minute {
		t.Fatalf("cache TTL should be capped at the 15m ceiling, got %v", ttl)
	}
}

func TestManager_CacheTTLCappedAtRemainingValidity(t *testing.T) {
	m, repo, mr := newTestManager(t)
	ctx := context.Background()

	now := time.Now().UTC()
	s := &domain.Session{
		ID: "short", UserID: "u1", Role: "worker",
		CreatedAt: now, UpdatedAt: now,
		ExpiresAt:         now.Add(90 * time.Second), // less than the ceiling
		AbsoluteExpiresAt: now.Add(time.Hour),
	}
	_ = repo.Create(ctx, s)
	mr.FlushAll()

	if got, _ := m.Get(ctx, "short"); got == nil {
		t.Fatal("Get should find the row")
	}
	ttl := mr.TTL("test:" + cacheKeyPrefix + "short")
	if ttl <= 0 || ttl > 90*time.Second {
		t.Fatalf("cache TTL must not outlive the session's validity, got %v", ttl)
	}
}

func TestManager_RefreshExtendsAndEvicts(t *testing.T) {
	m, repo, mr := newTestManager(t)
	ctx := context.Background()

	// Session halfway through its 2h window.
	now := time.Now().UTC()
	s := &domain.Session{
		ID: "s1", UserID: "u1", Role: "worker",
		CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour),
		ExpiresAt:         now.Add(time.Hour),
		AbsoluteExpiresAt: now.Add(7 * 24 * time.Hour),
	}
	_ = repo.Create(ctx, s)
	mr.Set("test:"+cacheKeyPrefix+"s1", "stale")

	got, err := m.Refresh(ctx, "s1")
	if err != nil || got == nil {
		t.Fatalf("Refresh: %v, %v", got, err)
	}
	if !got.ExpiresAt.After(s.ExpiresAt) {
		t.Fatal("refresh at the trigger threshold should extend the deadline")
	}
	if mr.Exists("test:" + cacheKeyPrefix + "s1") {
		t.Fatal("refresh must evict the cache entry, not leave stale data")
	}
}

func TestManager_RefreshBelowTriggerLeavesDeadline(t *testing.T) {
	m, repo, _ := newTestManager(t)
	ctx := context.Background()

	now := time.Now().UTC()
	s := &domain.Session{
		ID: "s1", UserID: "u1", Role: "worker",
		CreatedAt: now.Add(-10 * time.Minute), UpdatedAt: now.Add(-10 * time.Minute),
		ExpiresAt:         now.Add(110 * time.Minute),
		AbsoluteExpiresAt: now.Add(7 * 24 * time.Hour),
	}
	_ = repo.Create(ctx, s)

	got, err := m.Refresh(ctx, "s1")
	if err != nil || got == nil {
		t.Fatalf("Refresh: %v, %v", got, err)
	}
	if !got.ExpiresAt.Equal(s.ExpiresAt) {
		t.Fatal("refresh below the trigger threshold must not move the deadline")
	}
}

func TestManager_RefreshDeadSessionsReturnNil(t *testing.T) {
	m, repo, _ := newTestManager(t)
	ctx := context.Background()

	now := time.Now().UTC()
	expired := &domain.Session{
		ID: "old", UserID: "u1",
		CreatedAt: now.Add(-3 * time.Hour), UpdatedAt: now.Add(-3 * time.Hour),
		ExpiresAt:         now.Add(-time.Hour),
		AbsoluteExpiresAt: now.Add(4 * 24 * time.Hour),
	}
	_ = repo.Create(ctx, expired)

	if got, err := m.Refresh(ctx, "old"); err != nil || got != nil {
		t.Fatalf("expired session: want nil, got %v, %v", got, err)
	}
	if got, err := m.Refresh(ctx, "missing"); err != nil || got != nil {
		t.Fatalf("missing session: want nil, got %v, %v", got, err)
	}
}

func TestManager_RepeatedRefreshNeverPassesAbsolute(t *testing.T) {
	m, repo, _ := newTestManager(t)
	ctx := context.Background()

	now := time.Now().UTC()
	absolute := now.Add(time.Hour)
	s := &domain.Session{
		ID: "s1", UserID: "u1",
		CreatedAt: now.Add(-time.Hour), UpdatedAt: now.Add(-time.Hour),
		ExpiresAt:         now.Add(30 * time.Minute),
		AbsoluteExpiresAt: absolute,
	}
	_ = repo.Create(ctx, s)

	for i := 0; i < 5; i++ {
		got, err := m.Refresh(ctx, "s1")
		if err != nil {
			t.Fatalf("Refresh %d: %v", i, err)
		}
		if got == nil {
			break
		}
		if got.ExpiresAt.After(absolute) {
			t.Fatalf("refresh %d pushed deadline past the absolute cap", i)
		}
	}
}

func TestManager_RevokeIdempotent(t *testing.T) {
	m, _, _ := newTestManager(t)
	ctx := context.Background()

	s, _ := m.Create(ctx, "u1", "worker", false)

	ok, err := m.Revoke(ctx, s.ID)
	if err != nil || !ok {
		t.Fatalf("first Revoke: %v, %v", ok, err)
	}
	ok, err = m.Revoke(ctx, s.ID)
	if err != nil || ok {
		t.Fatalf("second Revoke should be a no-op returning false: %v, %v", ok, err)
	}

	// The revoked record is still readable, and reads as expired.
	got, _ := m.Get(ctx, s.ID)
	if got == nil || !got.IsExpired(time.Now()) {
		t.Fatal("revoked session should read as expired")
	}
}

func TestManager_RevokeEvictsCache(t *testing.T) {
	m, _, mr := newTestManager(t)
	ctx := context.Background()

	s, _ := m.Create(ctx, "u1", "worker", false)
	if !mr.Exists("test:" + cacheKeyPrefix + s.ID) {
		t.Fatal("create should prime the cache")
	}
	if ok, _ := m.Revoke(ctx, s.ID); !ok {
		t.Fatal("Revoke failed")
	}
	if mr.Exists("test:" + cacheKeyPrefix + s.ID) {
		t.Fatal("revoke must evict the cache entry")
	}
}

func TestManager_DeleteAllExceptEvictsEveryKey(t *testing.T) {
	m, _, mr := newTestManager(t)
	ctx := context.Background()

	keep, _ := m.Create(ctx, "u1", "worker", false)
	s2, _ := m.Create(ctx, "u1", "worker", false)
	s3, _ := m.Create(ctx, "u1", "worker", true)
	other, _ := m.Create(ctx, "u2", "employer", false)

	n, err := m.DeleteAllExcept(ctx, "u1", keep.ID)
	if err != nil || n != 2 {
		t.Fatalf("DeleteAllExcept: n=%d err=%v", n, err)
	}
	for _, id := range []string{s2.ID, s3.ID} {
		if mr.Exists("test:" + cacheKeyPrefix + id) {
			t.Fatalf("session %s cache entry should be evicted", id)
		}
	}
	if !mr.Exists("test:" + cacheKeyPrefix + keep.ID) {
		t.Fatal("kept session cache entry should survive")
	}
	if got, _ := m.Get(ctx, other.ID); got == nil {
		t.Fatal("another user's session must be untouched")
	}
}

func TestManager_CacheDownStillServesFromStore(t *testing.T) {
	m, _, mr := newTestManager(t)
	ctx := context.Background()

	s, err := m.Create(ctx, "u1", "worker", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	mr.Close() // cache is now unreachable for every subsequent call

	got, err := m.Get(ctx, s.ID)
	if err != nil || got == nil {
		t.Fatalf("Get with dead cache: %v, %v", got, err)
	}
	if got.UserID != "u1" {
		t.Errorf("got %+v", got)
	}
	if ok, err := m.Revoke(ctx, s.ID); err != nil || !ok {
		t.Fatalf("Revoke with dead cache: %v, %v", ok, err)
	}
}
