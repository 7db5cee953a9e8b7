package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.taskhive.io/auth/cache"
	"go.taskhive.io/auth/domain"
	"go.taskhive.io/auth/internal/metrics"
)

// Token verification failures. The HTTP boundary collapses all of them into
// a single unauthenticated error so a client cannot probe which check
// rejected its token.
var (
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenRevoked   = errors.New("token has been revoked")
	ErrTokenWrongKind = errors.New("token is not a refresh token")
	ErrTokenInvalid   = errors.New("token signature or expiry is invalid")
)

// TokenService issues and verifies the signed access and refresh tokens of
// the service. Both sides share one symmetric HMAC-SHA512 key.
type TokenService struct {
	revocations cache.RevocationStore
	signerKey   []byte
	issuer      string
	accessTTL   time.Duration
	refreshTTL  time.Duration

	now func() time.Time
}

// NewTokenService creates a new TokenService instance.
func NewTokenService(
	revocations cache.RevocationStore,
	signerKey []byte,
	issuer string,
	accessTTL, refreshTTL time.Duration,
) *TokenService {
	return &TokenService{
		revocations: revocations,
		signerKey:   signerKey,
		issuer:      issuer,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		now:         time.Now,
	}
}

// BuildScope flattens an account's roles into the token scope string: each
// role name prefixed with ROLE_, followed by every permission name reachable
// through it. Entries are deduplicated, insertion order preserved.
func BuildScope(account *domain.Account) string {
	seen := make(map[string]struct{})
	var parts []string
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		parts = append(parts, name)
	}
	for _, role := range account.Roles {
		add(domain.RolePrefix + role.Name)
		for _, perm := range role.Permissions {
			add(perm.Name)
		}
	}
	return strings.Join(parts, " ")
}

// Issue builds and signs a token of the given kind for the account, valid
// from now. It has no side effects beyond token construction.
func (s *TokenService) Issue(account *domain.Account, kind domain.TokenKind, now time.Time) (string, error) {
	ttl := s.accessTTL
	if kind == domain.TokenKindRefresh {
		ttl = s.refreshTTL
	}

	claims := jwt.MapClaims{
		"iss":   s.issuer,
		"sub":   account.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
		"jti":   uuid.NewString(),
		"scope": BuildScope(account),
	}
	if kind == domain.TokenKindRefresh {
		claims["tok"] = domain.RefreshMarker
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.signerKey)
	if err != nil {
		log.Error().Err(err).Str("email", account.Email).Msg("Cannot sign token")
		return "", err
	}

	metrics.TokensIssuedTotal.Inc()
	return signed, nil
}

// IssueTokenPair issues an access and a refresh token for the account and
// returns them with the configured lifetimes in seconds.
func (s *TokenService) IssueTokenPair(account *domain.Account) (*domain.TokenPair, error) {
	now := s.now()

	access, err := s.Issue(account, domain.TokenKindAccess, now)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Issue(account, domain.TokenKindRefresh, now)
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessTTL:    int64(s.accessTTL.Seconds()),
		RefreshTTL:   int64(s.refreshTTL.Seconds()),
	}, nil
}

// Verify checks a token string and returns its decoded claims. Checks run
// in a fixed order: structure, revocation, kind marker, effective expiry,
// signature. The effective expiry of a refresh token is recomputed from
// issued-at plus the configured refresh lifetime, so shortening the
// configured lifetime retroactively shortens outstanding refresh tokens.
func (s *TokenService) Verify(ctx context.Context, tokenString string, kind domain.TokenKind) (*domain.TokenClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	mapClaims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, mapClaims); err != nil {
		return nil, ErrTokenMalformed
	}

	jti, _ := mapClaims["jti"].(string)
	revoked, err := s.revocations.IsRevoked(ctx, jti)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	tokenKind := domain.TokenKindAccess
	if marker, _ := mapClaims["tok"].(string); marker == domain.RefreshMarker {
		tokenKind = domain.TokenKindRefresh
	}
	if kind == domain.TokenKindRefresh && tokenKind != domain.TokenKindRefresh {
		return nil, ErrTokenWrongKind
	}

	issuedAt, err := mapClaims.GetIssuedAt()
	if err != nil || issuedAt == nil {
		return nil, ErrTokenMalformed
	}
	var expiresAt time.Time
	if kind == domain.TokenKindRefresh {
		// Not trusted from the token's own exp claim: lifetime
		// reconfiguration must apply to tokens already in the wild.
		expiresAt = issuedAt.Add(s.refreshTTL)
	} else {
		exp, err := mapClaims.GetExpirationTime()
		if err != nil || exp == nil {
			return nil, ErrTokenMalformed
		}
		expiresAt = exp.Time
	}

	_, err = parser.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
		return s.signerKey, nil
	})
	if err != nil || !expiresAt.After(s.now()) {
		return nil, ErrTokenInvalid
	}

	subject, _ := mapClaims.GetSubject()
	issuer, _ := mapClaims.GetIssuer()
	scope, _ := mapClaims["scope"].(string)

	return &domain.TokenClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  issuedAt.Time,
		ExpiresAt: expiresAt,
		ID:        jti,
		Scope:     scope,
		Kind:      tokenKind,
	}, nil
}
