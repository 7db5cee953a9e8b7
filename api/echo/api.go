package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	autherrors "go.taskhive.io/auth/errors"
	"go.taskhive.io/auth/middleware"
	"go.taskhive.io/auth/services"
)

// RefreshCookieName is the cookie carrying the refresh token. It is scoped
// to the auth path so browsers only send it to the refresh/logout endpoints.
const RefreshCookieName = "refresh_token"

// AuthAPI holds the auth HTTP surface and its dependencies.
type AuthAPI struct {
	auth              *services.AuthService
	bridge            *services.SessionBridge
	authz             *services.AuthzService
	tokens            *services.TokenService
	sessionCookieName string
}

// NewAuthAPI initializes the auth API.
func NewAuthAPI(
	auth *services.AuthService,
	bridge *services.SessionBridge,
	authz *services.AuthzService,
	tokens *services.TokenService,
	sessionCookieName string,
) *AuthAPI {
	return &AuthAPI{
		auth:              auth,
		bridge:            bridge,
		authz:             authz,
		tokens:            tokens,
		sessionCookieName: sessionCookieName,
	}
}

// RegisterRoutes registers the auth routes.
func (a *AuthAPI) RegisterRoutes(e *echo.Echo) {
	e.POST("/auth/register", a.RegisterHandler)
	e.POST("/auth/login", a.LoginHandler)
	e.POST("/auth/refresh", a.RefreshHandler)
	e.POST("/auth/logout", a.LogoutHandler)
	e.POST("/auth/introspect", a.IntrospectHandler)
	e.POST("/auth/session/login", a.SessionLoginHandler)

	authz := e.Group("/authz", middleware.Authn(a.tokens))
	authz.GET("/projects/:id", a.ProjectActionHandler)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authenticationResponse struct {
	Authenticated bool   `json:"authenticated"`
	Token         string `json:"token"`
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	Valid bool `json:"valid"`
}

// refreshCookie builds the refresh-token transport cookie: HTTP-only,
// Secure, SameSite=None, scoped to /auth.
func refreshCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     "/auth",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

// writeAuthError renders a typed auth error with its HTTP status. Anything
// untyped is a plain 500 without internal detail.
func writeAuthError(c echo.Context, err error) error {
	authErr, ok := err.(*autherrors.AuthError)
	if !ok {
		log.Error().Err(err).Msg("Unexpected error in auth handler")
		return c.JSON(http.StatusInternalServerError, &autherrors.AuthError{
			Code:        "internal",
			Description: "internal server error",
		})
	}

	status := http.StatusUnauthorized
	switch authErr.Code {
	case autherrors.Forbidden:
		status = http.StatusForbidden
	case autherrors.EmailAlreadyExists:
		status = http.StatusConflict
	case autherrors.AccountNotFound:
		status = http.StatusNotFound
	case autherrors.MissingExternalSession, autherrors.MissingRefreshCookie:
		status = http.StatusBadRequest
	}
	return c.JSON(status, authErr)
}

// RegisterHandler creates a password account.
func (a *AuthAPI) RegisterHandler(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, &autherrors.AuthError{Code: "invalid_request", Description: "malformed request body"})
	}

	account, err := a.auth.Register(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return writeAuthError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"id":    account.ID,
		"email": account.Email,
	})
}

// LoginHandler authenticates with email and password. The access token is
// returned in the body; the refresh token travels only in the cookie.
func (a *AuthAPI) LoginHandler(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, &autherrors.AuthError{Code: "invalid_request", Description: "malformed request body"})
	}

	pair, err := a.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return writeAuthError(c, err)
	}

	c.SetCookie(refreshCookie(pair.RefreshToken, int(pair.RefreshTTL)))
	return c.JSON(http.StatusOK, authenticationResponse{
		Authenticated: true,
		Token:         pair.AccessToken,
	})
}

// RefreshHandler rotates the refresh token from the cookie and reissues it.
func (a *AuthAPI) RefreshHandler(c echo.Context) error {
	cookie, err := c.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return writeAuthError(c, autherrors.NewMissingRefreshCookie())
	}

	pair, err := a.auth.Refresh(c.Request().Context(), cookie.Value)
	if err != nil {
		return writeAuthError(c, err)
	}

	c.SetCookie(refreshCookie(pair.RefreshToken, int(pair.RefreshTTL)))
	return c.JSON(http.StatusOK, authenticationResponse{
		Authenticated: true,
		Token:         pair.AccessToken,
	})
}

// LogoutHandler revokes the refresh token and clears its cookie.
func (a *AuthAPI) LogoutHandler(c echo.Context) error {
	cookie, err := c.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return writeAuthError(c, autherrors.NewMissingRefreshCookie())
	}

	if err := a.auth.Logout(c.Request().Context(), cookie.Value); err != nil {
		return writeAuthError(c, err)
	}

	c.SetCookie(refreshCookie("", -1))
	return c.NoContent(http.StatusNoContent)
}

// IntrospectHandler reports whether an access token is currently valid.
func (a *AuthAPI) IntrospectHandler(c echo.Context) error {
	var req introspectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, &autherrors.AuthError{Code: "invalid_request", Description: "malformed request body"})
	}
	return c.JSON(http.StatusOK, introspectResponse{
		Valid: a.auth.Introspect(c.Request().Context(), req.Token),
	})
}

// SessionLoginHandler exchanges the external identity-provider session
// cookie for an internal account and token pair.
func (a *AuthAPI) SessionLoginHandler(c echo.Context) error {
	var cookieValue string
	if cookie, err := c.Cookie(a.sessionCookieName); err == nil {
		cookieValue = cookie.Value
	}

	_, pair, profile, err := a.bridge.LoginFromExternalSession(c.Request().Context(), a.sessionCookieName, cookieValue)
	if err != nil {
		return writeAuthError(c, err)
	}

	c.SetCookie(refreshCookie(pair.RefreshToken, int(pair.RefreshTTL)))
	return c.JSON(http.StatusOK, profile)
}

// ProjectActionHandler answers whether the caller may perform ?action=
// (view, update or delete) on the project. Permitted actions return the
// decision; anything else is a forbidden response.
func (a *AuthAPI) ProjectActionHandler(c echo.Context) error {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return writeAuthError(c, autherrors.NewUnauthenticated())
	}

	projectID := c.Param("id")
	var allowed bool
	switch c.QueryParam("action") {
	case "view", "":
		allowed = a.authz.CanViewProject(c.Request().Context(), claims, projectID)
	case "update":
		allowed = a.authz.CanUpdateProject(c.Request().Context(), claims, projectID)
	case "delete":
		allowed = a.authz.CanDeleteProject(c.Request().Context(), claims, projectID)
	default:
		return c.JSON(http.StatusBadRequest, &autherrors.AuthError{Code: "invalid_request", Description: "unknown action"})
	}

	if !allowed {
		return writeAuthError(c, autherrors.NewForbidden())
	}
	return c.JSON(http.StatusOK, map[string]bool{"allowed": true})
}
