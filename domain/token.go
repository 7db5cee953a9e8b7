package domain

import "time"

// TokenKind distinguishes the two JWT flavours the service issues.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// RefreshMarker is the value of the "tok" claim carried by refresh tokens.
// Access tokens never carry the claim.
const RefreshMarker = "REFRESH"

// TokenPair is the result of one successful issuance: a short-lived access
// token plus a long-lived refresh token, with their lifetimes in seconds.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	AccessTTL    int64  `json:"access_ttl"`
	RefreshTTL   int64  `json:"refresh_ttl"`
}

// TokenClaims is the decoded claim set of a verified token.
type TokenClaims struct {
	Subject   string    // account email
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string // jti, the revocation key
	Scope     string // space-joined role authorities and permission names
	Kind      TokenKind
}

// RevokedToken records a jti rejected after logout or refresh rotation.
// Once ExpiresAt has passed the record is irrelevant (natural expiry already
// rejects the token) and may be purged.
type RevokedToken struct {
	ID        string    `bson:"_id"`
	ExpiresAt time.Time `bson:"expires_at"`
}
