package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ops/internal/pricing"
	"github.com/iliyamo/cinema-ops/internal/service"
)

// PricingHandler exposes the stateless pricing endpoints.
type PricingHandler struct {
	Pricing *service.PricingService
}

func NewPricingHandler(p *service.PricingService) *PricingHandler { return &PricingHandler{Pricing: p} }

// Calculate: POST /v1/pricing/calculate
func (h *PricingHandler) Calculate(c echo.Context) error {
	var req service.CalculateInput
	if err := c.Bind(&req); err != nil {
		return bindError(c, err)
	}
	res, err := h.Pricing.Calculate(req)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, "price calculated", res)
}

// Suggest: POST /v1/pricing/suggest
func (h *PricingHandler) Suggest(c echo.Context) error {
	var req service.SuggestInput
	if err := c.Bind(&req); err != nil {
		return bindError(c, err)
	}
	res, err := h.Pricing.Suggest(req)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, "suggested price calculated", res)
}

// Grid: GET /v1/pricing/grid?base_price=&room_type=
func (h *PricingHandler) Grid(c echo.Context) error {
	req := service.GridInput{RoomType: c.QueryParam("room_type")}
	if raw := c.QueryParam("base_price"); raw != "" {
		base, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return respondError(c, pricing.Invalid("base_price", "must be a number"))
		}
		req.BasePrice = &base
	}
	res, err := h.Pricing.Grid(req)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, "price grid generated", res)
}
