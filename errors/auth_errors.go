package errors

import "fmt"

// AuthError is a typed authentication/authorization failure. Code and
// Description are stable and safe to render to an end user; no internal
// detail leaks through them.
type AuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Error codes.
const (
	InvalidCredentials     = "invalid_credentials"
	Unauthenticated        = "unauthenticated"
	MissingRefreshCookie   = "missing_refresh_cookie"
	MissingExternalSession = "missing_external_session"
	InvalidExternalSession = "invalid_external_session"
	EmailAlreadyExists     = "email_already_exists"
	Forbidden              = "forbidden"
	AccountNotFound        = "account_not_found"
)

func NewInvalidCredentials() *AuthError {
	return &AuthError{
		Code:        InvalidCredentials,
		Description: "invalid email or password",
	}
}

// NewUnauthenticated covers every token verification failure: malformed
// token, bad signature, expiry, revocation, wrong kind. The single code is
// deliberate so callers cannot probe which check failed.
func NewUnauthenticated() *AuthError {
	return &AuthError{
		Code:        Unauthenticated,
		Description: "token is invalid, expired or revoked",
	}
}

func NewMissingRefreshCookie() *AuthError {
	return &AuthError{
		Code:        MissingRefreshCookie,
		Description: "refresh token cookie is missing",
	}
}

func NewMissingExternalSession() *AuthError {
	return &AuthError{
		Code:        MissingExternalSession,
		Description: "external session cookie is missing",
	}
}

func NewInvalidExternalSession() *AuthError {
	return &AuthError{
		Code:        InvalidExternalSession,
		Description: "external session is inactive or incomplete",
	}
}

func NewEmailAlreadyExists(email string) *AuthError {
	return &AuthError{
		Code:        EmailAlreadyExists,
		Description: fmt.Sprintf("an account with email %s already exists", email),
	}
}

func NewForbidden() *AuthError {
	return &AuthError{
		Code:        Forbidden,
		Description: "you do not have permission to perform this action",
	}
}

func NewAccountNotFound() *AuthError {
	return &AuthError{
		Code:        AccountNotFound,
		Description: "account not found",
	}
}

// IsCode reports whether err is an AuthError carrying the given code.
func IsCode(err error, code string) bool {
	authErr, ok := err.(*AuthError)
	return ok && authErr.Code == code
}
