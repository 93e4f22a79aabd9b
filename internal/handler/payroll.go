package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-ops/internal/service"
)

type PayrollHandler struct {
	Payroll *service.PayrollService
}

func NewPayrollHandler(s *service.PayrollService) *PayrollHandler {
	return &PayrollHandler{Payroll: s}
}

// Employee: POST /v1/payroll/employee (manager)
func (h *PayrollHandler) Employee(c echo.Context) error {
	var req service.EmployeeInput
	if err := c.Bind(&req); err != nil {
		return bindError(c, err)
	}
	p, err := h.Payroll.Employee(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, "payslip", p)
}

// Team: POST /v1/payroll/team (manager)
func (h *PayrollHandler) Team(c echo.Context) error {
	var req service.TeamInput
	if err := c.Bind(&req); err != nil {
		return bindError(c, err)
	}
	t, err := h.Payroll.Team(c.Request().Context(), req)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, http.StatusOK, "team payroll", t)
}
