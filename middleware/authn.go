package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.taskhive.io/auth/domain"
	autherrors "go.taskhive.io/auth/errors"
	"go.taskhive.io/auth/services"
)

// claimsContextKey is the echo context key holding the verified claims.
const claimsContextKey = "auth_claims"

// ClaimsFromContext retrieves the verified token claims set by Authn.
func ClaimsFromContext(c echo.Context) (*domain.TokenClaims, bool) {
	claims, ok := c.Get(claimsContextKey).(*domain.TokenClaims)
	return claims, ok
}

// Authn returns echo middleware that requires a valid Bearer access token.
// Every verification failure maps to the same unauthenticated response.
func Authn(tokens *services.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, autherrors.NewUnauthenticated())
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, autherrors.NewUnauthenticated())
			}

			claims, err := tokens.Verify(c.Request().Context(), parts[1], domain.TokenKindAccess)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, autherrors.NewUnauthenticated())
			}

			c.Set(claimsContextKey, claims)
			return next(c)
		}
	}
}
