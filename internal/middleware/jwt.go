package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ops/internal/utils"
)

// JWTAuth validates the Bearer access token (signature, expiry, issuer and
// audience) and stores the caller's email, name, role and permissions in
// the context.
func JWTAuth(issuer utils.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			claims, err := issuer.Parse(strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}
			c.Set(CtxUserEmail, claims.Subject)
			c.Set(CtxUserName, claims.Name)
			c.Set(CtxRole, claims.Role)
			c.Set(CtxPermissions, claims.Permissions)
			return next(c)
		}
	}
}
