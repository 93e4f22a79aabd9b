package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ops/internal/repository"
	"github.com/iliyamo/cinema-ops/internal/service"
)

// AnalyticsHandler serves the manager reports.
type AnalyticsHandler struct {
	Analytics *service.AnalyticsService
}

func NewAnalyticsHandler(a *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{Analytics: a}
}

// Dashboard: GET /v1/analytics/dashboard
func (h *AnalyticsHandler) Dashboard(c echo.Context) error {
	return ok(c, http.StatusOK, "dashboard", h.Analytics.Dashboard(c.Request().Context()))
}

// AuditEvents: GET /v1/analytics/audit-events?type=&limit=&page=
// Non-numeric limit and page fall back to the defaults.
func (h *AnalyticsHandler) AuditEvents(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	page, _ := strconv.Atoi(c.QueryParam("page"))
	res := h.Analytics.AuditEvents(c.Request().Context(), repository.AuditFilter{
		Type:  c.QueryParam("type"),
		Limit: limit,
		Page:  page,
	})
	return ok(c, http.StatusOK, "audit events", res)
}

// Report: GET /v1/analytics/report[?format=csv]
func (h *AnalyticsHandler) Report(c echo.Context) error {
	report := h.Analytics.Report(c.Request().Context())
	if !strings.EqualFold(c.QueryParam("format"), "csv") {
		return ok(c, http.StatusOK, "operational report", report)
	}
	body, err := h.Analytics.ReportCSV(report)
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="operational-report.csv"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", body)
}

// System: GET /v1/analytics/system
func (h *AnalyticsHandler) System(c echo.Context) error {
	return ok(c, http.StatusOK, "system metrics", h.Analytics.SystemMetrics(c.Request().Context()))
}
