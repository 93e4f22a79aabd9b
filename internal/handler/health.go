package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Health is the plain-text liveness check used by load balancers.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// HealthHandler reports liveness and the state of optional backends.
type HealthHandler struct {
	DB    *sql.DB
	Redis *redis.Client
}

func NewHealthHandler(db *sql.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{DB: db, Redis: rdb}
}

// Live always answers 200 while the process serves requests.
func (h *HealthHandler) Live(c echo.Context) error {
	return ok(c, http.StatusOK, "alive", echo.Map{"status": "up"})
}

// Ready pings MySQL and Redis when they are configured. A configured
// backend that does not answer makes the instance not ready (503).
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := echo.Map{"mysql": "disabled", "redis": "disabled"}
	ready := true
	if h.DB != nil {
		checks["mysql"] = "up"
		if err := h.DB.PingContext(ctx); err != nil {
			checks["mysql"], ready = "down", false
		}
	}
	if h.Redis != nil {
		checks["redis"] = "up"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"], ready = "down", false
		}
	}
	if !ready {
		return fail(c, http.StatusServiceUnavailable, "NOT_READY", "dependency check failed", checks)
	}
	return ok(c, http.StatusOK, "ready", checks)
}
