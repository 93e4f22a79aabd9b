package middleware

import "github.com/labstack/echo/v4"

// Context keys set by JWTAuth.
const (
	CtxUserEmail   = "user_email"
	CtxUserName    = "user_name"
	CtxRole        = "role"
	CtxPermissions = "permissions"
)

// UserEmail returns the authenticated email, or "" for anonymous requests.
func UserEmail(c echo.Context) string {
	if v, ok := c.Get(CtxUserEmail).(string); ok {
		return v
	}
	return ""
}

// Role returns the authenticated role, or "".
func Role(c echo.Context) string {
	if v, ok := c.Get(CtxRole).(string); ok {
		return v
	}
	return ""
}

// Permissions returns the permissions carried by the access token.
func Permissions(c echo.Context) []string {
	if v, ok := c.Get(CtxPermissions).([]string); ok {
		return v
	}
	return nil
}

// identity names the caller for rate-limit and idempotency keys.
func identity(c echo.Context) string {
	if email := UserEmail(c); email != "" {
		return email
	}
	return "anonymous"
}
