package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ops/internal/middleware"
	"github.com/iliyamo/cinema-ops/internal/service"
)

// SessionHandler exposes sessions and their sales.
type SessionHandler struct {
	Sessions *service.SessionService
}

func NewSessionHandler(s *service.SessionService) *SessionHandler { return &SessionHandler{Sessions: s} }

// List: GET /v1/sessions
func (h *SessionHandler) List(c echo.Context) error {
	return ok(c, http.StatusOK, "sessions", h.Sessions.List(c.Request().Context()))
}

// Get: GET /v1/sessions/:id
func (h *SessionHandler) Get(c echo.Context) error {
	d, err := h.Sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, "session details", d)
}

// Create: POST /v1/sessions (manager)
func (h *SessionHandler) Create(c echo.Context) error {
	var req service.CreateSessionInput
	if err := c.Bind(&req); err != nil {
		return bindError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Sessions.Create(ctx, req, middleware.UserEmail(c))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusCreated, "session created", d)
}

// Sell: POST /v1/sessions/:id/sales (sales:create)
func (h *SessionHandler) Sell(c echo.Context) error {
	var req service.SellInput
	if err := c.Bind(&req); err != nil {
		return bindError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Sessions.Sell(ctx, c.Param("id"), req, middleware.UserEmail(c))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusCreated, "sale recorded", res)
}

// CancelSale: DELETE /v1/sessions/:id/sales/:saleId (manager)
func (h *SessionHandler) CancelSale(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Sessions.CancelSale(ctx, c.Param("id"), c.Param("saleId"), middleware.UserEmail(c))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, "sale cancelled", res)
}
