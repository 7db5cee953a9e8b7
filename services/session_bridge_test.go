package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.taskhive.io/auth/domain"
	autherrors "go.taskhive.io/auth/errors"
	"go.taskhive.io/auth/internal/kratos"
)

type MockSessionIntrospector struct {
	mock.Mock
}

func (m *MockSessionIntrospector) WhoAmI(ctx context.Context, cookieName, cookieValue string) (*kratos.Session, error) {
	args := m.Called(ctx, cookieName, cookieValue)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*kratos.Session), args.Error(1)
}

func googleSession(externalID, email string) *kratos.Session {
	return &kratos.Session{
		Active: true,
		AuthenticationMethods: []kratos.AuthenticationMethod{
			{Method: "oidc", Provider: "google"},
		},
		Identity: &kratos.Identity{
			ID:     externalID,
			Traits: kratos.Traits{Email: email},
		},
	}
}

func newTestSessionBridge(t *testing.T) (*SessionBridge, *MockSessionIntrospector, *MockAccountRepository, *MockRoleRepository) {
	t.Helper()
	tokens, _ := newTestTokenService(t)
	sessions := new(MockSessionIntrospector)
	accounts := new(MockAccountRepository)
	roles := new(MockRoleRepository)
	return NewSessionBridge(sessions, accounts, roles, tokens), sessions, accounts, roles
}

func TestSessionBridge_MissingCookie(t *testing.T) {
	bridge, _, _, _ := newTestSessionBridge(t)

	_, _, _, err := bridge.LoginFromExternalSession(context.Background(), "ory_kratos_session", "")
	assert.True(t, autherrors.IsCode(err, autherrors.MissingExternalSession))

	_, _, _, err = bridge.LoginFromExternalSession(context.Background(), "", "value")
	assert.True(t, autherrors.IsCode(err, autherrors.MissingExternalSession))
}

func TestSessionBridge_IntrospectionFailure(t *testing.T) {
	bridge, sessions, _, _ := newTestSessionBridge(t)
	sessions.On("WhoAmI", mock.Anything, "ory_kratos_session", "sess").Return(nil, errors.New("connection refused"))

	_, _, _, err := bridge.LoginFromExternalSession(context.Background(), "ory_kratos_session", "sess")
	assert.True(t, autherrors.IsCode(err, autherrors.InvalidExternalSession))
}

func TestSessionBridge_InactiveSession(t *testing.T) {
	bridge, sessions, _, _ := newTestSessionBridge(t)
	session := googleSession("ext-1", "a@x.com")
	session.Active = false
	sessions.On("WhoAmI", mock.Anything, "ory_kratos_session", "sess").Return(session, nil)

	_, _, _, err := bridge.LoginFromExternalSession(context.Background(), "ory_kratos_session", "sess")
	assert.True(t, autherrors.IsCode(err, autherrors.InvalidExternalSession))
}

func TestSessionBridge_SessionWithoutEmail(t *testing.T) {
	bridge, sessions, _, _ := newTestSessionBridge(t)
	session := googleSession("ext-1", "")
	sessions.On("WhoAmI", mock.Anything, "ory_kratos_session", "sess").Return(session, nil)

	_, _, _, err := bridge.LoginFromExternalSession(context.Background(), "ory_kratos_session", "sess")
	assert.True(t, autherrors.IsCode(err, autherrors.InvalidExternalSession))
}

func TestSessionBridge_KnownExternalIdentity_Idempotent(t *testing.T) {
	bridge, sessions, accounts, _ := newTestSessionBridge(t)

	existing := memberAccount()
	existing.ExternalID = "ext-1"
	existing.Provider = domain.ProviderGoogle

	sessions.On("WhoAmI", mock.Anything, "ory_kratos_session", "sess").Return(googleSession("ext-1", "a@x.com"), nil)
	accounts.On("GetAccountByExternalID", mock.Anything, "ext-1").Return(existing, nil)

	account, pair, profile, err := bridge.LoginFromExternalSession(context.Background(), "ory_kratos_session", "sess")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, account.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Equal(t, domain.RoleMember, profile.Role)
	assert.Equal(t, domain.ProviderGoogle, profile.Provider)

	// Nothing changed, so no write happened.
	accounts.AssertNotCalled(t, "UpdateAccount", mock.Anything, mock.Anything)
}

func TestSessionBridge_KnownExternalIdentity_EmailChanged(t *testing.T) {
	bridge, sessions, accounts, _ := newTestSessionBridge(t)

	existing := memberAccount()
	existing.ExternalID = "ext-1"
	existing.Provider = domain.ProviderGoogle

	sessions.On("WhoAmI", mock.Anything, "ory_kratos_session", "sess").Return(googleSession("ext-1", "renamed@x.com"), nil)
	accounts.On("GetAccountByExternalID", mock.Anything, "ext-1").Return(existing, nil)
	accounts.On("UpdateAccount", mock.Anything, mock.MatchedBy(func(a *domain.Account) bool {
		return a.Email == "renamed@x.com"
	})).Return(nil)

	account, _, _, err := bridge.LoginFromExternalSession(context.Background(), "ory_kratos_session", "sess")
	require.NoError(t, err)
	assert.Equal(t, "renamed@x.com", account.Email)
	accounts.AssertExpectations(t)
}

func TestSessionBridge_ProviderMigration_PasswordAccountGainsExternalID(t *testing.T) {
	bridge, sessions, accounts, _ := newTestSessionBridge(t)

	passwordAccount := memberAccount()
	passwordAccount.Provider = domain.ProviderLocal
	passwordAccount.PasswordHash = "keep-me"

	sessions.On("WhoAmI", mock.Anything, "ory_kratos_session", "sess").Return(googleSession("ext-9", "a@x.com"), nil)
	accounts.On("GetAccountByExternalID", mock.Anything, "ext-9").Return(nil, nil)
	accounts.On("GetAccountByEmail", mock.Anything, "a@x.com").Return(passwordAccount, nil)
	accounts.On("UpdateAccount", mock.Anything, mock.MatchedBy(func(a *domain.Account) bool {
		return a.ExternalID == "ext-9" &&
			a.Provider == domain.ProviderLocalOIDC &&
			a.PasswordHash == "keep-me"
	})).Return(nil)

	account, _, profile, err := bridge.LoginFromExternalSession(context.Background(), "ory_kratos_session", "sess")
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderLocalOIDC, account.Provider)
	assert.Equal(t, "keep-me", account.PasswordHash)
	assert.Equal(t, domain.ProviderLocalOIDC, profile.Provider)
	accounts.AssertExpectations(t)
}

func TestSessionBridge_BrandNewUser(t *testing.T) {
	bridge, sessions, accounts, roles := newTestSessionBridge(t)

	sessions.On("WhoAmI", mock.Anything, "ory_kratos_session", "sess").Return(googleSession("ext-7", "fresh@x.com"), nil)
	accounts.On("GetAccountByExternalID", mock.Anything, "ext-7").Return(nil, nil)
	accounts.On("GetAccountByEmail", mock.Anything, "fresh@x.com").Return(nil, nil)
	roles.On("GetRoleByName", mock.Anything, domain.RoleMember).Return(memberRole(), nil)
	accounts.On("CreateAccount", mock.Anything, mock.MatchedBy(func(a *domain.Account) bool {
		return a.Email == "fresh@x.com" &&
			a.ExternalID == "ext-7" &&
			a.Provider == domain.ProviderGoogle &&
			a.Active &&
			len(a.Roles) == 1 && a.Roles[0].Name == domain.RoleMember
	})).Return(nil)

	account, pair, profile, err := bridge.LoginFromExternalSession(context.Background(), "ory_kratos_session", "sess")
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderGoogle, account.Provider)
	assert.Equal(t, pair.AccessToken, profile.AccessToken)
	assert.ElementsMatch(t, []string{domain.PermProjectCreate, domain.PermProjectView}, profile.Permissions)
	accounts.AssertExpectations(t)
}

func TestSessionBridge_CreateConflictIsRetryable(t *testing.T) {
	bridge, sessions, accounts, roles := newTestSessionBridge(t)

	sessions.On("WhoAmI", mock.Anything, "ory_kratos_session", "sess").Return(googleSession("ext-7", "fresh@x.com"), nil)
	accounts.On("GetAccountByExternalID", mock.Anything, "ext-7").Return(nil, nil)
	accounts.On("GetAccountByEmail", mock.Anything, "fresh@x.com").Return(nil, nil)
	roles.On("GetRoleByName", mock.Anything, domain.RoleMember).Return(memberRole(), nil)
	accounts.On("CreateAccount", mock.Anything, mock.Anything).Return(fmt.Errorf("%w: E11000", domain.ErrDuplicateAccount))

	_, _, _, err := bridge.LoginFromExternalSession(context.Background(), "ory_kratos_session", "sess")
	assert.True(t, autherrors.IsCode(err, autherrors.EmailAlreadyExists))
}

func TestSessionBridge_CreateStoreFailurePropagates(t *testing.T) {
	bridge, sessions, accounts, roles := newTestSessionBridge(t)

	sessions.On("WhoAmI", mock.Anything, "ory_kratos_session", "sess").Return(googleSession("ext-7", "fresh@x.com"), nil)
	accounts.On("GetAccountByExternalID", mock.Anything, "ext-7").Return(nil, nil)
	accounts.On("GetAccountByEmail", mock.Anything, "fresh@x.com").Return(nil, nil)
	roles.On("GetRoleByName", mock.Anything, domain.RoleMember).Return(memberRole(), nil)
	storeErr := errors.New("server selection timeout")
	accounts.On("CreateAccount", mock.Anything, mock.Anything).Return(storeErr)

	_, _, _, err := bridge.LoginFromExternalSession(context.Background(), "ory_kratos_session", "sess")
	require.ErrorIs(t, err, storeErr)
	assert.False(t, autherrors.IsCode(err, autherrors.EmailAlreadyExists))
}

func TestResolveProvider(t *testing.T) {
	tests := []struct {
		name     string
		session  *kratos.Session
		expected domain.AuthProvider
	}{
		{
			name:     "google oidc",
			session:  googleSession("x", "a@x.com"),
			expected: domain.ProviderGoogle,
		},
		{
			name: "github oidc with suffix",
			session: &kratos.Session{AuthenticationMethods: []kratos.AuthenticationMethod{
				{Method: "oidc", Provider: "github-enterprise"},
			}},
			expected: domain.ProviderGitHub,
		},
		{
			name: "facebook oidc",
			session: &kratos.Session{AuthenticationMethods: []kratos.AuthenticationMethod{
				{Method: "oidc", Provider: "Facebook"},
			}},
			expected: domain.ProviderFacebook,
		},
		{
			name: "unknown oidc provider",
			session: &kratos.Session{AuthenticationMethods: []kratos.AuthenticationMethod{
				{Method: "oidc", Provider: "gitlab"},
			}},
			expected: domain.ProviderLocalOIDC,
		},
		{
			name: "no oidc method",
			session: &kratos.Session{AuthenticationMethods: []kratos.AuthenticationMethod{
				{Method: "password"},
			}},
			expected: domain.ProviderLocalOIDC,
		},
		{
			name:     "no methods at all",
			session:  &kratos.Session{},
			expected: domain.ProviderLocalOIDC,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolveProvider(tt.session))
		})
	}
}
