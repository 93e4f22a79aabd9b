package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ops/internal/middleware"
	"github.com/iliyamo/cinema-ops/internal/service"
)

// InventoryHandler exposes concession stock.
type InventoryHandler struct {
	Inventory *service.InventoryService
}

func NewInventoryHandler(s *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{Inventory: s}
}

// List: GET /v1/inventory/items
func (h *InventoryHandler) List(c echo.Context) error {
	return ok(c, http.StatusOK, "inventory", h.Inventory.List(c.Request().Context()))
}

// Critical: GET /v1/inventory/items/critical
func (h *InventoryHandler) Critical(c echo.Context) error {
	return ok(c, http.StatusOK, "items below minimum", h.Inventory.Critical(c.Request().Context()))
}

// Create: POST /v1/inventory/items (inventory:manage)
func (h *InventoryHandler) Create(c echo.Context) error {
	var req service.CreateItemInput
	if err := c.Bind(&req); err != nil {
		return bindError(c, err)
	}
	it, err := h.Inventory.Create(c.Request().Context(), req, middleware.UserEmail(c))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusCreated, "item created", it)
}

// Move: PATCH /v1/inventory/items/:sku/movement (inventory:manage)
func (h *InventoryHandler) Move(c echo.Context) error {
	var req service.MovementInput
	if err := c.Bind(&req); err != nil {
		return bindError(c, err)
	}
	it, err := h.Inventory.Move(c.Request().Context(), c.Param("sku"), req, middleware.UserEmail(c))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, "movement recorded", it)
}
