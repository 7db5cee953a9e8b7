package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.taskhive.io/auth/domain"
)

// ProjectMemberRepository implements domain.ProjectMemberRepository on
// MongoDB. The auth core only reads memberships; the project service owns
// the writes.
type ProjectMemberRepository struct {
	members *mongo.Collection
}

// NewProjectMemberRepository creates the repository and ensures its
// compound index.
func NewProjectMemberRepository(ctx context.Context, db *mongo.Database) (*ProjectMemberRepository, error) {
	repo := &ProjectMemberRepository{
		members: db.Collection(ProjectMembersCollection),
	}

	_, err := repo.members.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "project_id", Value: 1},
			{Key: "account_id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create membership index: %w", err)
	}
	return repo, nil
}

// GetMember resolves an account's membership on a project. A missing
// membership returns (nil, nil).
func (r *ProjectMemberRepository) GetMember(ctx context.Context, projectID, accountID string) (*domain.ProjectMember, error) {
	var member domain.ProjectMember
	err := r.members.FindOne(ctx, bson.M{
		"project_id": projectID,
		"account_id": accountID,
	}).Decode(&member)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project member: %w", err)
	}
	return &member, nil
}

var _ domain.ProjectMemberRepository = (*ProjectMemberRepository)(nil)
