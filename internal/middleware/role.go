package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole rejects callers whose role is not one of roles. It must run
// after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[Role(c)] {
				return echo.NewHTTPError(http.StatusForbidden, "role not allowed for this operation")
			}
			return next(c)
		}
	}
}

// RequirePermission rejects callers whose token lacks perm.
func RequirePermission(perm string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, p := range Permissions(c) {
				if p == perm {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "missing permission "+perm)
		}
	}
}
