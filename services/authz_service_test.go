package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.taskhive.io/auth/domain"
)

type MockProjectMemberRepository struct {
	mock.Mock
}

func (m *MockProjectMemberRepository) GetMember(ctx context.Context, projectID, accountID string) (*domain.ProjectMember, error) {
	args := m.Called(ctx, projectID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProjectMember), args.Error(1)
}

func claimsWithScope(scope string) *domain.TokenClaims {
	return &domain.TokenClaims{
		Subject:   "a@x.com",
		Scope:     scope,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestScopeContains(t *testing.T) {
	scope := "ROLE_MEMBER PROJECT.CREATE PROJECT.VIEW"
	assert.True(t, ScopeContains(scope, "PROJECT.VIEW"))
	assert.True(t, ScopeContains(scope, "ROLE_MEMBER"))
	assert.False(t, ScopeContains(scope, "PROJECT"))
	assert.False(t, ScopeContains(scope, "ADMIN.FULL_ACCESS"))
	assert.False(t, ScopeContains("", "PROJECT.VIEW"))
}

func TestAuthz_AdminOverride(t *testing.T) {
	accounts := new(MockAccountRepository)
	members := new(MockProjectMemberRepository)
	svc := NewAuthzService(accounts, members)

	claims := claimsWithScope("ROLE_ADMIN " + domain.PermAdminFullAccess)

	assert.True(t, svc.CanViewProject(context.Background(), claims, "p1"))
	assert.True(t, svc.CanUpdateProject(context.Background(), claims, "p1"))
	assert.True(t, svc.CanDeleteProject(context.Background(), claims, "p1"))

	// The override never touches the stores.
	accounts.AssertNotCalled(t, "GetAccountByEmail", mock.Anything, mock.Anything)
	members.AssertNotCalled(t, "GetMember", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthz_MemberCanViewAndUpdateButNotDelete(t *testing.T) {
	accounts := new(MockAccountRepository)
	members := new(MockProjectMemberRepository)
	svc := NewAuthzService(accounts, members)

	account := memberAccount()
	accounts.On("GetAccountByEmail", mock.Anything, "a@x.com").Return(account, nil)
	members.On("GetMember", mock.Anything, "p1", account.ID).Return(&domain.ProjectMember{
		ProjectID: "p1",
		AccountID: account.ID,
		Role:      domain.ProjectRoleMember,
	}, nil)

	claims := claimsWithScope("ROLE_MEMBER PROJECT.VIEW")
	assert.True(t, svc.CanViewProject(context.Background(), claims, "p1"))
	assert.True(t, svc.CanUpdateProject(context.Background(), claims, "p1"))
	assert.False(t, svc.CanDeleteProject(context.Background(), claims, "p1"))
}

func TestAuthz_OwnerCanDelete(t *testing.T) {
	accounts := new(MockAccountRepository)
	members := new(MockProjectMemberRepository)
	svc := NewAuthzService(accounts, members)

	account := memberAccount()
	accounts.On("GetAccountByEmail", mock.Anything, "a@x.com").Return(account, nil)
	members.On("GetMember", mock.Anything, "p1", account.ID).Return(&domain.ProjectMember{
		ProjectID: "p1",
		AccountID: account.ID,
		Role:      domain.ProjectRoleOwner,
	}, nil)

	claims := claimsWithScope("ROLE_MEMBER PROJECT.VIEW")
	assert.True(t, svc.CanDeleteProject(context.Background(), claims, "p1"))
}

func TestAuthz_NonMemberIsDenied(t *testing.T) {
	accounts := new(MockAccountRepository)
	members := new(MockProjectMemberRepository)
	svc := NewAuthzService(accounts, members)

	account := memberAccount()
	accounts.On("GetAccountByEmail", mock.Anything, "a@x.com").Return(account, nil)
	members.On("GetMember", mock.Anything, "p9", account.ID).Return(nil, nil)

	claims := claimsWithScope("ROLE_MEMBER PROJECT.VIEW")
	assert.False(t, svc.CanViewProject(context.Background(), claims, "p9"))
	assert.False(t, svc.CanUpdateProject(context.Background(), claims, "p9"))
	assert.False(t, svc.CanDeleteProject(context.Background(), claims, "p9"))
}

func TestAuthz_MissingAccountResolvesToFalse(t *testing.T) {
	accounts := new(MockAccountRepository)
	members := new(MockProjectMemberRepository)
	svc := NewAuthzService(accounts, members)

	accounts.On("GetAccountByEmail", mock.Anything, "a@x.com").Return(nil, nil)

	claims := claimsWithScope("ROLE_MEMBER")
	assert.False(t, svc.CanViewProject(context.Background(), claims, "p1"))
}

func TestAuthz_StoreErrorResolvesToFalse(t *testing.T) {
	accounts := new(MockAccountRepository)
	members := new(MockProjectMemberRepository)
	svc := NewAuthzService(accounts, members)

	accounts.On("GetAccountByEmail", mock.Anything, "a@x.com").Return(nil, errors.New("store down"))

	claims := claimsWithScope("ROLE_MEMBER")
	assert.False(t, svc.CanDeleteProject(context.Background(), claims, "p1"))
}

func TestAuthz_NilClaims(t *testing.T) {
	svc := NewAuthzService(new(MockAccountRepository), new(MockProjectMemberRepository))
	assert.False(t, svc.CanViewProject(context.Background(), nil, "p1"))
	assert.False(t, svc.CanDeleteProject(context.Background(), nil, "p1"))
}
