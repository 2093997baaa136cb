package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type payload struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "jh"), mr
}

func TestStore_SetGetRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if !s.Set(ctx, "sess:1", payload{UserID: "u1", Role: "worker"}, time.Minute) {
		t.Fatal("Set should succeed")
	}
	var got payload
	if !s.Get(ctx, "sess:1", &got) {
		t.Fatal("Get should hit")
	}
	if got.UserID != "u1" || got.Role != "worker" {
		t.Errorf("got %+v", got)
	}
}

func TestStore_TTLExpiry(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	s.Set(ctx, "sess:1", payload{UserID: "u1"}, time.Minute)
	mr.FastForward(2 * time.Minute)

	var got payload
	if s.Get(ctx, "sess:1", &got) {
		t.Fatal("entry should have expired")
	}
}

func TestStore_RemoveAndExists(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s.Set(ctx, "sess:1", payload{UserID: "u1"}, 0)
	if !s.Exists(ctx, "sess:1") {
		t.Fatal("Exists should report the entry")
	}
	if !s.Remove(ctx, "sess:1") {
		t.Fatal("Remove should report a deleted entry")
	}
	if s.Remove(ctx, "sess:1") {
		t.Fatal("second Remove should report nothing deleted")
	}
	if s.Exists(ctx, "sess:1") {
		t.Fatal("entry should be gone")
	}
}

func TestStore_InvalidKeysRejectedLocally(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	mr.Close() // any backend round-trip would now fail loudly

	for _, key := range []string{"", "   ", "\t"} {
		if s.Set(ctx, key, payload{}, 0) || s.Get(ctx, key, &payload{}) || s.Remove(ctx, key) || s.Exists(ctx, key) {
			t.Fatalf("key %q should be rejected without a backend call", key)
		}
	}
}

func TestStore_BackendDownDegrades(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()
	mr.Close()

	var got payload
	if s.Set(ctx, "k", payload{UserID: "u1"}, time.Minute) {
		t.Fatal("Set should degrade to false")
	}
	if s.Get(ctx, "k", &got) {
		t.Fatal("Get should degrade to miss")
	}
	if s.Remove(ctx, "k") {
		t.Fatal("Remove should degrade to false")
	}
	if s.Exists(ctx, "k") {
		t.Fatal("Exists should degrade to false")
	}
	if err := s.Ping(ctx); err == nil {
		t.Fatal("Ping should report the dead backend")
	}
}

func TestStore_DisabledNilClient(t *testing.T) {
	s := New(nil, "jh")
	ctx := context.Background()

	if s.Enabled() {
		t.Fatal("nil client should be disabled")
	}
	if s.Set(ctx, "k", payload{}, 0) || s.Get(ctx, "k", &payload{}) || s.Remove(ctx, "k") || s.Exists(ctx, "k") {
		t.Fatal("disabled store operations should all no-op")
	}
}
