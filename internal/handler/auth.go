package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ops/internal/middleware"
	"github.com/iliyamo/cinema-ops/internal/service"
)

// AuthHandler bundles the auth and user endpoints.
type AuthHandler struct {
	Auth *service.AuthService
}

func NewAuthHandler(a *service.AuthService) *AuthHandler { return &AuthHandler{Auth: a} }

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required,max=200"`
}

// Login: verify credentials and return an access/refresh pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req service.LoginInput
	if err := c.Bind(&req); err != nil {
		return bindError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Auth.Login(ctx, req, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, "login successful", pair)
}

// Refresh: rotate a refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return bindError(c, err)
	}
	req.RefreshToken = strings.TrimSpace(req.RefreshToken)
	if err := c.Validate(&req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, "token refreshed", pair)
}

// Logout revokes the refresh token in the body, or every refresh token of
// the caller when the body is empty.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Auth.Logout(ctx, middleware.UserEmail(c), strings.TrimSpace(req.RefreshToken)); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	u, err := h.Auth.Me(c.Request().Context(), middleware.UserEmail(c))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, "authenticated user", u)
}

// ListUsers returns every staff account.
func (h *AuthHandler) ListUsers(c echo.Context) error {
	return ok(c, http.StatusOK, "registered users", h.Auth.ListUsers(c.Request().Context()))
}
