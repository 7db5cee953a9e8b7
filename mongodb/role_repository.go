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

// RoleRepository implements domain.RoleRepository on MongoDB.
type RoleRepository struct {
	roles *mongo.Collection
}

// NewRoleRepository creates the repository, ensures the name index and
// seeds the built-in roles if the collection is empty.
func NewRoleRepository(ctx context.Context, db *mongo.Database) (*RoleRepository, error) {
	repo := &RoleRepository{
		roles: db.Collection(RolesCollection),
	}

	_, err := repo.roles.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create role index: %w", err)
	}

	if err := repo.seedBuiltinRoles(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *RoleRepository) seedBuiltinRoles(ctx context.Context) error {
	count, err := r.roles.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("failed to count roles: %w", err)
	}
	if count > 0 {
		return nil
	}

	builtin := []interface{}{
		domain.Role{
			Name: domain.RoleAdmin,
			Permissions: []domain.Permission{
				{Name: domain.PermAdminFullAccess},
			},
		},
		domain.Role{
			Name: domain.RoleMember,
			Permissions: []domain.Permission{
				{Name: domain.PermProjectCreate},
				{Name: domain.PermProjectView},
				{Name: domain.PermProjectUpdate},
			},
		},
	}
	if _, err := r.roles.InsertMany(ctx, builtin); err != nil {
		return fmt.Errorf("failed to seed builtin roles: %w", err)
	}
	return nil
}

// GetRoleByName resolves a role definition with its permissions.
func (r *RoleRepository) GetRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	var role domain.Role
	err := r.roles.FindOne(ctx, bson.M{"name": name}).Decode(&role)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("role %s not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find role: %w", err)
	}
	return &role, nil
}

var _ domain.RoleRepository = (*RoleRepository)(nil)
