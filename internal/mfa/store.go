// Package mfa keeps short-lived multi-factor login state: pending TOTP secrets
// and in-flight passkey ceremonies.
package mfa

import (
	"context"
	"sync"
	"time"
)

// Store holds opaque values with a time to live.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get reports false for missing or expired keys.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryStore keeps entries in process memory. It suits single-instance deployments.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	now   func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryEntry), now: time.Now}
}

// Set stores value until ttl elapses. Expired entries are swept on every write.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, entry := range s.items {
		if now.After(entry.expires) {
			delete(s.items, k)
		}
	}
	copied := append([]byte(nil), value...)
	s.items[key] = memoryEntry{value: copied, expires: now.Add(ttl)}
	return nil
}

// Get returns the value if present and not expired.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	if s.now().After(entry.expires) {
		delete(s.items, key)
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

// Delete removes a key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}
