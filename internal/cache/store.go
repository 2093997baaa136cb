// Package cache provides a TTL'd key/value store over Redis for cache-aside
// reads. The cache is a disposable hint: every failure to reach or use the
// backend degrades the call to a miss or no-op instead of an error, so a dead
// cache only costs callers an extra read against the authoritative store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store wraps a Redis client with the degrade-to-disabled contract.
// A nil client disables the store entirely; all operations become local no-ops.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// New returns a Store namespacing keys under prefix. client may be nil to run
// without a cache.
func New(client redis.UniversalClient, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// NewClient dials Redis at addr and verifies connectivity. Returns nil (cache
// disabled) when addr is empty; returns an error only for a configured but
// unreachable backend so startup can log it.
func NewClient(addr, password string) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Enabled reports whether a backend client is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

func (s *Store) key(key string) string {
	return s.prefix + ":" + key
}

func validKey(key string) bool {
	return strings.TrimSpace(key) != ""
}

// Set stores value as JSON under key with the given TTL (0 means no expiry).
// Returns false, without touching the backend, for invalid keys or
// unserializable values; returns false on any backend failure.
func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	if !s.Enabled() || !validKey(key) {
		return false
	}
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("cache: marshal %q: %v", key, err)
		return false
	}
	if err := s.client.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		log.Printf("cache: set %q: %v", key, err)
		return false
	}
	return true
}

// Get loads the JSON value at key into dest (a pointer). Returns false on
// miss, invalid key, decode failure, or backend failure.
func (s *Store) Get(ctx context.Context, key string, dest any) bool {
	if !s.Enabled() || !validKey(key) {
		return false
	}
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("cache: get %q: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Printf("cache: unmarshal %q: %v", key, err)
		return false
	}
	return true
}

// Remove deletes key. Returns true only if an entry existed and was removed.
func (s *Store) Remove(ctx context.Context, key string) bool {
	if !s.Enabled() || !validKey(key) {
		return false
	}
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		log.Printf("cache: del %q: %v", key, err)
		return false
	}
	return n > 0
}

// Exists reports whether key is present. Returns false on any failure.
func (s *Store) Exists(ctx context.Context, key string) bool {
	if !s.Enabled() || !validKey(key) {
		return false
	}
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		log.Printf("cache: exists %q: %v", key, err)
		return false
	}
	return n > 0
}

// Ping returns a point-in-time backend availability check for health reporting.
func (s *Store) Ping(ctx context.Context) error {
	if !s.Enabled() {
		return errors.New("cache disabled")
	}
	return s.client.Ping(ctx).Err()
}
