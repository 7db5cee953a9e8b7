package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationStore implements the cache.RevocationStore interface using
// Redis. Each revoked jti becomes a key whose TTL equals the token's
// remaining lifetime, so Redis expires records on its own.
type RevocationStore struct {
	client *redis.Client
	prefix string // Optional prefix for keys
}

// NewRevocationStore creates a new [RevocationStore] instance.
func NewRevocationStore(client *redis.Client, prefix string) *RevocationStore {
	return &RevocationStore{
		client: client,
		prefix: prefix,
	}
}

func (r *RevocationStore) redisKey(jti string) string {
	return fmt.Sprintf("%s:revoked:%s", r.prefix, jti)
}

// Revoke stores the jti with a TTL matching the token's original expiry.
func (r *RevocationStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.redisKey(jti), expiresAt.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to store revoked jti in Redis: %w", err)
	}
	return nil
}

// RevokeIfNew stores the jti with SETNX so exactly one concurrent caller
// wins the write.
func (r *RevocationStore) RevokeIfNew(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return true, nil
	}
	first, err := r.client.SetNX(ctx, r.redisKey(jti), expiresAt.Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to store revoked jti in Redis: %w", err)
	}
	return first, nil
}

// IsRevoked reports whether the jti is present.
func (r *RevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.redisKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revoked jti in Redis: %w", err)
	}
	return n > 0, nil
}

// PurgeExpired is a no-op: Redis drops keys when their TTL elapses.
func (r *RevocationStore) PurgeExpired(_ context.Context) error {
	return nil
}

// Count returns the number of live revocation records.
func (r *RevocationStore) Count(ctx context.Context) int {
	var count int
	iter := r.client.Scan(ctx, 0, fmt.Sprintf("%s:revoked:*", r.prefix), 0).Iterator()
	for iter.Next(ctx) {
		count++
	}
	return count
}
