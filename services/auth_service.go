package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.taskhive.io/auth/cache"
	"go.taskhive.io/auth/domain"
	autherrors "go.taskhive.io/auth/errors"
	"go.taskhive.io/auth/internal/audit"
	"go.taskhive.io/auth/internal/metrics"
)

// AuthService handles password login, registration, logout and refresh
// rotation. Refresh tokens are single-use: each rotation revokes the token
// it consumed before the new pair leaves this service.
type AuthService struct {
	accounts    domain.AccountRepository
	roles       domain.RoleRepository
	tokens      *TokenService
	revocations cache.RevocationStore
	hasher      PasswordHasher
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	accounts domain.AccountRepository,
	roles domain.RoleRepository,
	tokens *TokenService,
	revocations cache.RevocationStore,
	hasher PasswordHasher,
) *AuthService {
	return &AuthService{
		accounts:    accounts,
		roles:       roles,
		tokens:      tokens,
		revocations: revocations,
		hasher:      hasher,
	}
}

// Login checks the account's password and issues a token pair. Unknown
// email, inactive account and wrong password all surface as the same
// invalid-credentials error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	log.Debug().Str("email", email).Msg("Login attempt")

	account, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil || account == nil {
		log.Warn().Str("email", email).Msg("Login: account not found")
		metrics.LoginFailureTotal.Inc()
		return nil, autherrors.NewInvalidCredentials()
	}
	if !account.Active {
		log.Warn().Str("email", email).Msg("Login: account inactive")
		metrics.LoginFailureTotal.Inc()
		return nil, autherrors.NewInvalidCredentials()
	}
	if err := s.hasher.Verify(account.PasswordHash, password); err != nil {
		log.Warn().Str("email", email).Msg("Login: incorrect password")
		metrics.LoginFailureTotal.Inc()
		audit.Record(audit.ActionLogin, email, "incorrect password", false, nil)
		return nil, autherrors.NewInvalidCredentials()
	}

	pair, err := s.tokens.IssueTokenPair(account)
	if err != nil {
		return nil, err
	}
	metrics.LoginSuccessTotal.Inc()
	audit.Record(audit.ActionLogin, account.Email, "", true, nil)
	return pair, nil
}

// Register creates a LOCAL account with a hashed password and the default
// MEMBER role.
func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.Account, error) {
	existing, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, autherrors.NewEmailAlreadyExists(email)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	memberRole, err := s.roles.GetRoleByName(ctx, domain.RoleMember)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &domain.Account{
		Email:        email,
		PasswordHash: hash,
		Active:       true,
		Provider:     domain.ProviderLocal,
		Roles:        []domain.Role{*memberRole},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		// The store's unique index is the authority on conflicts; a
		// concurrent registration loses here. Anything else is a store
		// failure and propagates as such.
		if errors.Is(err, domain.ErrDuplicateAccount) {
			return nil, autherrors.NewEmailAlreadyExists(email)
		}
		return nil, err
	}

	log.Info().Str("email", email).Msg("Account registered")
	audit.Record(audit.ActionRegister, account.Email, "", true, nil)
	return account, nil
}

// Logout revokes the presented refresh token. Verification failures are
// swallowed into the generic unauthenticated error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.tokens.Verify(ctx, refreshToken, domain.TokenKindRefresh)
	if err != nil {
		return autherrors.NewUnauthenticated()
	}

	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt); err != nil {
		return err
	}
	metrics.TokensRevokedTotal.Inc()
	log.Debug().Str("jti", claims.ID).Msg("Refresh token revoked on logout")
	audit.Record(audit.ActionLogout, claims.Subject, "", true, nil)
	return nil
}

// Refresh rotates a refresh token: verifies it, revokes its jti, and issues
// a fresh pair for the same account. The revocation is a first-writer-wins
// conditional write recorded before the new pair is built, so of two
// concurrent uses of the same token at most one rotates; the loser fails
// even when both passed the revocation read during verification.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, autherrors.NewUnauthenticated()
	}

	claims, err := s.tokens.Verify(ctx, refreshToken, domain.TokenKindRefresh)
	if err != nil {
		return nil, autherrors.NewUnauthenticated()
	}

	account, err := s.accounts.GetAccountByEmail(ctx, claims.Subject)
	if err != nil || account == nil {
		return nil, autherrors.NewAccountNotFound()
	}

	first, err := s.revocations.RevokeIfNew(ctx, claims.ID, claims.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if !first {
		log.Warn().Str("jti", claims.ID).Msg("Refresh token lost rotation race")
		return nil, autherrors.NewUnauthenticated()
	}
	metrics.TokensRevokedTotal.Inc()

	pair, err := s.tokens.IssueTokenPair(account)
	if err != nil {
		return nil, err
	}
	metrics.TokensRefreshedTotal.Inc()
	audit.Record(audit.ActionRefresh, account.Email, "", true, nil)
	return pair, nil
}

// Introspect reports whether an access token is currently valid.
func (s *AuthService) Introspect(ctx context.Context, token string) bool {
	_, err := s.tokens.Verify(ctx, token, domain.TokenKindAccess)
	return err == nil
}
