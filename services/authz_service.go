package services

import (
	"context"
	"strings"

	"go.taskhive.io/auth/domain"
)

// AuthzService answers yes/no authorization questions for authenticated
// principals. Decisions never error: a missing account or membership is a
// plain denial the caller renders as forbidden.
type AuthzService struct {
	accounts domain.AccountRepository
	members  domain.ProjectMemberRepository
}

// NewAuthzService creates a new AuthzService.
func NewAuthzService(accounts domain.AccountRepository, members domain.ProjectMemberRepository) *AuthzService {
	return &AuthzService{
		accounts: accounts,
		members:  members,
	}
}

// ScopeContains reports whether the space-joined scope string carries the
// given authority or permission name.
func ScopeContains(scope, name string) bool {
	for _, part := range strings.Fields(scope) {
		if part == name {
			return true
		}
	}
	return false
}

// hasAdminFullAccess is the global override: a principal carrying the
// ADMIN.FULL_ACCESS permission may perform any action.
func hasAdminFullAccess(claims *domain.TokenClaims) bool {
	return claims != nil && ScopeContains(claims.Scope, domain.PermAdminFullAccess)
}

// memberOn resolves the caller's membership record for a project, or nil.
func (s *AuthzService) memberOn(ctx context.Context, claims *domain.TokenClaims, projectID string) *domain.ProjectMember {
	account, err := s.accounts.GetAccountByEmail(ctx, claims.Subject)
	if err != nil || account == nil {
		return nil
	}
	member, err := s.members.GetMember(ctx, projectID, account.ID)
	if err != nil {
		return nil
	}
	return member
}

// CanViewProject allows admins and any member of the project.
func (s *AuthzService) CanViewProject(ctx context.Context, claims *domain.TokenClaims, projectID string) bool {
	if claims == nil {
		return false
	}
	if hasAdminFullAccess(claims) {
		return true
	}
	return s.memberOn(ctx, claims, projectID) != nil
}

// CanUpdateProject allows the same set as CanViewProject.
func (s *AuthzService) CanUpdateProject(ctx context.Context, claims *domain.TokenClaims, projectID string) bool {
	return s.CanViewProject(ctx, claims, projectID)
}

// CanDeleteProject allows admins and the project owner only.
func (s *AuthzService) CanDeleteProject(ctx context.Context, claims *domain.TokenClaims, projectID string) bool {
	if claims == nil {
		return false
	}
	if hasAdminFullAccess(claims) {
		return true
	}
	member := s.memberOn(ctx, claims, projectID)
	return member != nil && member.Role == domain.ProjectRoleOwner
}
