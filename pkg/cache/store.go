// Package cache stores embedding vectors so repeated texts (re-indexed
// reviews, repeated questions) skip the encoder. Stores are byte-oriented
// with a per-entry TTL; CachedEncoder layers the vector codec on top.
package cache

import (
	"sync"
	"time"
)

// Store is a key-value backend with TTL support.
type Store interface {
	// Get returns nil, nil when the key is missing or expired.
	Get(key string) ([]byte, error)

	// Set stores value under key. A ttl <= 0 means no expiry.
	Set(key string, value []byte, ttl time.Duration) error

	Delete(key string) error
	Close() error
}

// InMemoryStore is a map-backed Store with a background sweep of expired
// entries.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]cacheEntry
	stop chan struct{}
	once sync.Once
}

type cacheEntry struct {
	data    []byte
	expires time.Time // zero means never
}

func (e cacheEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// NewInMemoryStore creates a store that sweeps expired entries every
// cleanupInterval; zero defaults to five minutes.
func NewInMemoryStore(cleanupInterval time.Duration) *InMemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	s := &InMemoryStore{
		data: make(map[string]cacheEntry),
		stop: make(chan struct{}),
	}
	go s.backgroundCleanup(cleanupInterval)
	return s
}

func (s *InMemoryStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.data[key]
	if !ok || entry.expired(time.Now()) {
		return nil, nil
	}
	return append([]byte(nil), entry.data...), nil
}

func (s *InMemoryStore) Set(key string, value []byte, ttl time.Duration) error {
	entry := cacheEntry{data: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expires = time.Now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry
	return nil
}

func (s *InMemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Len returns the number of stored entries, expired ones included until the
// next sweep.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Close stops the background sweep.
func (s *InMemoryStore) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

func (s *InMemoryStore) backgroundCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stop:
			return
		}
	}
}

func (s *InMemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, entry := range s.data {
		if entry.expired(now) {
			delete(s.data, key)
		}
	}
}
