package domain

import (
	"strings"
	"time"
)

// AuthProvider identifies how an account authenticates.
type AuthProvider string

const (
	ProviderLocal     AuthProvider = "LOCAL"      // email + password only
	ProviderLocalOIDC AuthProvider = "LOCAL_OIDC" // password signup later linked to an external identity
	ProviderGoogle    AuthProvider = "GOOGLE"
	ProviderGitHub    AuthProvider = "GITHUB"
	ProviderFacebook  AuthProvider = "FACEBOOK"
)

// MapProvider resolves an identity-provider name reported by the external
// IdP into an AuthProvider. Unknown or empty names fall back to LOCAL_OIDC.
func MapProvider(name string) AuthProvider {
	p := strings.ToLower(strings.TrimSpace(name))
	switch {
	case strings.HasPrefix(p, "google"):
		return ProviderGoogle
	case strings.HasPrefix(p, "facebook"):
		return ProviderFacebook
	case strings.HasPrefix(p, "github"):
		return ProviderGitHub
	default:
		return ProviderLocalOIDC
	}
}

// Account represents a user account of the project-management service.
// Email is unique case-insensitively; ExternalID is the identity id assigned
// by the external identity provider and is unique when present.
type Account struct {
	ID           string       `bson:"_id,omitempty"`
	Email        string       `bson:"email"`
	PasswordHash string       `bson:"password_hash,omitempty"`
	Active       bool         `bson:"active"`
	Provider     AuthProvider `bson:"provider,omitempty"`
	ExternalID   string       `bson:"external_id,omitempty"`
	Roles        []Role       `bson:"roles,omitempty"`
	CreatedAt    time.Time    `bson:"created_at"`
	UpdatedAt    time.Time    `bson:"updated_at"`
}

// PrimaryRole returns the role used to label the account in user-facing
// responses. Accounts are expected to carry a single role; the first stored
// role wins when there are several.
func (a *Account) PrimaryRole() string {
	if len(a.Roles) == 0 {
		return ""
	}
	return a.Roles[0].Name
}

// PermissionNames collects every permission name reachable through the
// account's roles, deduplicated, in insertion order.
func (a *Account) PermissionNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, role := range a.Roles {
		for _, perm := range role.Permissions {
			if _, ok := seen[perm.Name]; ok {
				continue
			}
			seen[perm.Name] = struct{}{}
			names = append(names, perm.Name)
		}
	}
	return names
}
