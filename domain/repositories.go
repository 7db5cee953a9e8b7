package domain

import (
	"context"
	"errors"
)

// ErrDuplicateAccount marks a write rejected by the unique email or
// external-id constraint. Callers match it with errors.Is to separate a
// conflict from a store failure.
var ErrDuplicateAccount = errors.New("account already exists")

// AccountRepository provides access to user accounts. Implementations must
// enforce uniqueness of email (case-insensitive) and of external id, and
// wrap constraint violations in ErrDuplicateAccount.
type AccountRepository interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	GetAccountByExternalID(ctx context.Context, externalID string) (*Account, error)
	UpdateAccount(ctx context.Context, account *Account) error
}

// RoleRepository resolves role definitions with their permissions.
type RoleRepository interface {
	GetRoleByName(ctx context.Context, name string) (*Role, error)
}

// ProjectMemberRepository resolves an account's membership on a project.
type ProjectMemberRepository interface {
	GetMember(ctx context.Context, projectID, accountID string) (*ProjectMember, error)
}
