package cache

import (
	"context"
	"time"
)

// RevocationStore is the registry of revoked token identifiers. A token
// whose jti is present here is rejected even while it is still
// cryptographically valid. Writes are idempotent: revoking the same jti
// twice is not an error.
type RevocationStore interface {
	// Revoke records a jti together with the token's original expiry.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	// RevokeIfNew records the jti only when no record exists yet and
	// reports whether this call created it. The decision is atomic:
	// under concurrent calls for the same jti exactly one caller sees
	// first=true. Implementations may skip the write for a jti whose
	// expiry has already passed; verification rejects such tokens anyway.
	RevokeIfNew(ctx context.Context, jti string, expiresAt time.Time) (first bool, err error)
	// IsRevoked reports whether the jti has been revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// PurgeExpired drops records whose expiry has passed. Correctness never
	// depends on it running; expired tokens fail verification anyway.
	PurgeExpired(ctx context.Context) error
	// Count returns the number of live records, for diagnostics.
	Count(ctx context.Context) int
}
