// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ops/internal/handler"
	"github.com/iliyamo/cinema-ops/internal/middleware"
	"github.com/iliyamo/cinema-ops/internal/model"
	"github.com/iliyamo/cinema-ops/internal/utils"
)

// Deps carries everything Register needs. Cache and RateLimit may be nil,
// in which case the routes are served without them.
type Deps struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Pricing   *handler.PricingHandler
	Sessions  *handler.SessionHandler
	Analytics *handler.AnalyticsHandler
	Inventory *handler.InventoryHandler
	Payroll   *handler.PayrollHandler

	Issuer      utils.TokenIssuer
	Idempotency echo.MiddlewareFunc
	Cache       echo.MiddlewareFunc
	RateLimit   echo.MiddlewareFunc
}

func orPass(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	if mw == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return mw
}

// RegisterRoutes registers the unauthenticated health checks.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/v1/health/live", h.Live)
	e.GET("/v1/health/ready", h.Ready)
}

// Register mounts the whole API.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e, d.Health)

	idem := orPass(d.Idempotency)
	limit := orPass(d.RateLimit)

	// public: login, token refresh and the stateless pricing endpoints
	pub := e.Group("/v1", limit, idem)
	pub.POST("/auth/login", d.Auth.Login)
	pub.POST("/auth/refresh", d.Auth.Refresh)
	pub.POST("/pricing/calculate", d.Pricing.Calculate)
	pub.POST("/pricing/suggest", d.Pricing.Suggest)
	pub.GET("/pricing/grid", d.Pricing.Grid, orPass(d.Cache))

	// everything below needs a valid access token; the idempotency key is
	// scoped to the caller so it runs after JWTAuth
	auth := e.Group("/v1", limit, middleware.JWTAuth(d.Issuer), idem)
	auth.GET("/me", d.Auth.Me)
	auth.POST("/auth/logout", d.Auth.Logout)
	auth.POST("/logout", d.Auth.Logout)
	auth.GET("/users", d.Auth.ListUsers, middleware.RequireRole(model.RoleManager))

	auth.GET("/sessions", d.Sessions.List)
	auth.GET("/sessions/:id", d.Sessions.Get)
	auth.POST("/sessions", d.Sessions.Create, middleware.RequireRole(model.RoleManager))
	auth.POST("/sessions/:id/sales", d.Sessions.Sell, middleware.RequirePermission(model.PermSalesCreate))
	auth.DELETE("/sessions/:id/sales/:saleId", d.Sessions.CancelSale, middleware.RequireRole(model.RoleManager))

	auth.GET("/inventory/items", d.Inventory.List)
	auth.GET("/inventory/items/critical", d.Inventory.Critical)
	auth.POST("/inventory/items", d.Inventory.Create, middleware.RequirePermission(model.PermInventoryManage))
	auth.PATCH("/inventory/items/:sku/movement", d.Inventory.Move, middleware.RequirePermission(model.PermInventoryManage))

	pay := auth.Group("/payroll", middleware.RequireRole(model.RoleManager))
	pay.POST("/employee", d.Payroll.Employee)
	pay.POST("/team", d.Payroll.Team)

	an := auth.Group("/analytics", middleware.RequireRole(model.RoleManager))
	an.GET("/dashboard", d.Analytics.Dashboard)
	an.GET("/audit-events", d.Analytics.AuditEvents)
	an.GET("/report", d.Analytics.Report)
	an.GET("/system", d.Analytics.System)
}
