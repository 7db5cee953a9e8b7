package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.taskhive.io/auth/domain"
	autherrors "go.taskhive.io/auth/errors"
	"go.taskhive.io/auth/internal/audit"
	"go.taskhive.io/auth/internal/kratos"
	"go.taskhive.io/auth/internal/metrics"
)

// SessionIntrospector exposes the identity provider's session whoami call.
// Implemented by kratos.Client.
type SessionIntrospector interface {
	WhoAmI(ctx context.Context, cookieName, cookieValue string) (*kratos.Session, error)
}

// PublicProfile is the user-facing summary returned after an external login.
type PublicProfile struct {
	AccessToken string              `json:"access_token"`
	Role        string              `json:"role"`
	Permissions []string            `json:"permissions"`
	Provider    domain.AuthProvider `json:"provider"`
}

// SessionBridge exchanges an external identity-provider session for an
// internal account and token pair. Matching against local accounts runs as
// a three-way decision: known external id, known email, or brand-new user.
type SessionBridge struct {
	sessions SessionIntrospector
	accounts domain.AccountRepository
	roles    domain.RoleRepository
	tokens   *TokenService
}

// NewSessionBridge creates a new SessionBridge.
func NewSessionBridge(
	sessions SessionIntrospector,
	accounts domain.AccountRepository,
	roles domain.RoleRepository,
	tokens *TokenService,
) *SessionBridge {
	return &SessionBridge{
		sessions: sessions,
		accounts: accounts,
		roles:    roles,
		tokens:   tokens,
	}
}

// LoginFromExternalSession introspects the external session cookie,
// reconciles the external identity against local accounts, and issues a
// token pair for the resulting account. At most one account write happens
// per call; a failed introspection propagates after a single attempt.
func (s *SessionBridge) LoginFromExternalSession(ctx context.Context, cookieName, cookieValue string) (*domain.Account, *domain.TokenPair, *PublicProfile, error) {
	if cookieName == "" || cookieValue == "" {
		return nil, nil, nil, autherrors.NewMissingExternalSession()
	}

	session, err := s.sessions.WhoAmI(ctx, cookieName, cookieValue)
	if err != nil {
		log.Warn().Err(err).Msg("External session introspection failed")
		return nil, nil, nil, autherrors.NewInvalidExternalSession()
	}
	if session == nil || !session.Active || session.Identity == nil || session.Identity.Traits.Email == "" {
		return nil, nil, nil, autherrors.NewInvalidExternalSession()
	}

	externalID := session.Identity.ID
	email := session.Identity.Traits.Email
	provider := resolveProvider(session)

	match, err := s.matchAccount(ctx, externalID, email)
	if err != nil {
		return nil, nil, nil, err
	}

	var account *domain.Account
	switch match.Kind {
	case domain.MatchByExternalID:
		account, err = s.updateLinkedAccount(ctx, match.Account, email, externalID, provider)
	case domain.MatchByEmail:
		account, err = s.attachExternalIdentity(ctx, match.Account, externalID, provider)
	default:
		account, err = s.createExternalAccount(ctx, email, externalID, provider)
	}
	if err != nil {
		return nil, nil, nil, err
	}
	metrics.ReconciliationTotal.WithLabelValues(match.Kind.String()).Inc()
	audit.Record(audit.ActionSessionLogin, account.Email, match.Kind.String(), true, nil)

	pair, err := s.tokens.IssueTokenPair(account)
	if err != nil {
		return nil, nil, nil, err
	}

	profile := &PublicProfile{
		AccessToken: pair.AccessToken,
		Role:        account.PrimaryRole(),
		Permissions: account.PermissionNames(),
		Provider:    account.Provider,
	}
	return account, pair, profile, nil
}

// resolveProvider maps the session's authentication methods to an internal
// provider tag. Sessions without an OIDC method default to LOCAL_OIDC.
func resolveProvider(session *kratos.Session) domain.AuthProvider {
	name, ok := session.OIDCProvider()
	if !ok {
		return domain.ProviderLocalOIDC
	}
	return domain.MapProvider(name)
}

// matchAccount classifies the external identity against local accounts.
// The external id is checked first since it is the stronger key.
func (s *SessionBridge) matchAccount(ctx context.Context, externalID, email string) (domain.Match, error) {
	byExternal, err := s.accounts.GetAccountByExternalID(ctx, externalID)
	if err != nil {
		return domain.Match{}, err
	}
	if byExternal != nil {
		return domain.Match{Kind: domain.MatchByExternalID, Account: byExternal}, nil
	}

	byEmail, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		return domain.Match{}, err
	}
	if byEmail != nil {
		return domain.Match{Kind: domain.MatchByEmail, Account: byEmail}, nil
	}

	return domain.Match{Kind: domain.MatchNone}, nil
}

// updateLinkedAccount handles a returning external identity: refresh email
// and provider if the IdP reports new values, and persist only on change.
func (s *SessionBridge) updateLinkedAccount(ctx context.Context, account *domain.Account, email, externalID string, provider domain.AuthProvider) (*domain.Account, error) {
	changed := false
	if !strings.EqualFold(email, account.Email) {
		account.Email = email
		changed = true
	}
	if account.Provider == "" || account.Provider != provider {
		account.Provider = provider
		changed = true
	}
	if account.ExternalID == "" {
		account.ExternalID = externalID
		changed = true
	}
	if !changed {
		return account, nil
	}

	account.UpdatedAt = time.Now().UTC()
	if err := s.accounts.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// attachExternalIdentity links an external identity to an account that was
// created via password signup. A plain LOCAL account becomes LOCAL_OIDC to
// mark it dual-mode; anything else takes the freshly resolved provider.
func (s *SessionBridge) attachExternalIdentity(ctx context.Context, account *domain.Account, externalID string, provider domain.AuthProvider) (*domain.Account, error) {
	if account.ExternalID == "" {
		account.ExternalID = externalID
	}
	if account.Provider == "" || account.Provider == domain.ProviderLocal {
		account.Provider = domain.ProviderLocalOIDC
	} else {
		account.Provider = provider
	}

	account.UpdatedAt = time.Now().UTC()
	if err := s.accounts.UpdateAccount(ctx, account); err != nil {
		return nil, err
	}
	log.Info().Str("email", account.Email).Msg("Linked external identity to password account")
	return account, nil
}

// createExternalAccount provisions a brand-new account for a first-time
// external login, carrying the default MEMBER role.
func (s *SessionBridge) createExternalAccount(ctx context.Context, email, externalID string, provider domain.AuthProvider) (*domain.Account, error) {
	memberRole, err := s.roles.GetRoleByName(ctx, domain.RoleMember)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &domain.Account{
		Email:      email,
		ExternalID: externalID,
		Provider:   provider,
		Active:     true,
		Roles:      []domain.Role{*memberRole},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		// Concurrent first logins for the same identity race on the store's
		// unique indexes; the loser surfaces as a retryable conflict. Other
		// store failures propagate untyped.
		if errors.Is(err, domain.ErrDuplicateAccount) {
			return nil, autherrors.NewEmailAlreadyExists(email)
		}
		return nil, err
	}
	log.Info().Str("email", email).Str("provider", string(provider)).Msg("Created account from external identity")
	return account, nil
}
