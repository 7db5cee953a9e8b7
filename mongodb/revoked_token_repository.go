package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.taskhive.io/auth/cache"
	"go.taskhive.io/auth/domain"
)

// RevokedTokenRepository implements cache.RevocationStore on MongoDB. A TTL
// index on expires_at has the server drop stale records; PurgeExpired is
// an explicit on-demand pass for the same hygiene.
type RevokedTokenRepository struct {
	revoked *mongo.Collection
}

// NewRevokedTokenRepository creates the repository and ensures the TTL index.
func NewRevokedTokenRepository(ctx context.Context, db *mongo.Database) (*RevokedTokenRepository, error) {
	repo := &RevokedTokenRepository{
		revoked: db.Collection(RevokedTokensCollection),
	}

	_, err := repo.revoked.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create revoked-token TTL index: %w", err)
	}
	return repo, nil
}

// Revoke upserts the jti, so revoking the same token twice is not an error.
func (r *RevokedTokenRepository) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	record := domain.RevokedToken{ID: jti, ExpiresAt: expiresAt}
	_, err := r.revoked.ReplaceOne(ctx,
		bson.M{"_id": jti},
		record,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to store revoked token: %w", err)
	}
	return nil
}

// RevokeIfNew inserts the jti and lets the _id uniqueness decide the
// winner: the duplicate-key loser reports first=false.
func (r *RevokedTokenRepository) RevokeIfNew(ctx context.Context, jti string, expiresAt time.Time) (bool, error) {
	record := domain.RevokedToken{ID: jti, ExpiresAt: expiresAt}
	if _, err := r.revoked.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to store revoked token: %w", err)
	}
	return true, nil
}

// IsRevoked reports whether the jti has a live revocation record.
func (r *RevokedTokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	count, err := r.revoked.CountDocuments(ctx, bson.M{"_id": jti})
	if err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}
	return count > 0, nil
}

// PurgeExpired deletes records whose expiry has passed.
func (r *RevokedTokenRepository) PurgeExpired(ctx context.Context) error {
	_, err := r.revoked.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to purge expired revocations: %w", err)
	}
	return nil
}

// Count returns the number of stored revocation records.
func (r *RevokedTokenRepository) Count(ctx context.Context) int {
	count, err := r.revoked.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0
	}
	return int(count)
}

var _ cache.RevocationStore = (*RevokedTokenRepository)(nil)
