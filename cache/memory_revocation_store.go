package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryRevocationStore implements RevocationStore using ttlcache. Entries
// carry the revoked token's remaining lifetime as TTL, so the cache's own
// expiry sweep doubles as the purge pass. The mutex makes the
// check-then-set of RevokeIfNew atomic.
type MemoryRevocationStore struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, time.Time]
}

// NewMemoryRevocationStore creates an in-memory revocation store with
// automatic cleanup.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, time.Time](),
	)

	go cache.Start()

	return &MemoryRevocationStore{
		cache: cache,
	}
}

// Revoke implements RevocationStore.Revoke.
func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		// Already past its natural expiry; verification rejects it regardless.
		return nil
	}
	s.cache.Set(jti, expiresAt, ttl)
	return nil
}

// RevokeIfNew implements RevocationStore.RevokeIfNew.
func (s *MemoryRevocationStore) RevokeIfNew(_ context.Context, jti string, expiresAt time.Time) (bool, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return true, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache.Get(jti) != nil {
		return false, nil
	}
	s.cache.Set(jti, expiresAt, ttl)
	return true, nil
}

// IsRevoked implements RevocationStore.IsRevoked.
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	return s.cache.Get(jti) != nil, nil
}

// PurgeExpired implements RevocationStore.PurgeExpired.
func (s *MemoryRevocationStore) PurgeExpired(_ context.Context) error {
	s.cache.DeleteExpired()
	return nil
}

// Count implements RevocationStore.Count.
func (s *MemoryRevocationStore) Count(_ context.Context) int {
	return s.cache.Len()
}

// Close stops the cleanup goroutine.
func (s *MemoryRevocationStore) Close() error {
	s.cache.Stop()
	return nil
}
