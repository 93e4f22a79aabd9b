// Package payroll computes monthly pay for cinema staff: a base salary per
// role plus sales commission, overtime and bonus, minus deductions.
package payroll

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ops/internal/model"
	"github.com/iliyamo/cinema-ops/internal/pricing"
)

// DefaultCommissionRate applies when an employee has no explicit rate.
var DefaultCommissionRate = decimal.RequireFromString("0.02")

// DefaultBases are the monthly base salaries per role. Roles not listed get
// FallbackBase.
var DefaultBases = map[string]decimal.Decimal{
	model.RoleManager:   decimal.NewFromInt(5500),
	model.RoleSeller:    decimal.NewFromInt(2200),
	model.RoleAttendant: decimal.NewFromInt(1900),
}

// FallbackBase is the base salary of an unknown role.
var FallbackBase = decimal.NewFromInt(1600)

// Employee is one payroll line. A nil CommissionRate means
// DefaultCommissionRate.
type Employee struct {
	Role           string
	Sales          decimal.Decimal
	CommissionRate *decimal.Decimal
	OvertimeHours  int
	OvertimeRate   decimal.Decimal
	Bonus          decimal.Decimal
	Deductions     decimal.Decimal
}

// Payslip is the computed pay of one employee.
type Payslip struct {
	Role       string        `json:"role"`
	BaseSalary pricing.Money `json:"base_salary"`
	Commission pricing.Money `json:"commission"`
	Overtime   pricing.Money `json:"overtime"`
	Bonus      pricing.Money `json:"bonus"`
	Deductions pricing.Money `json:"deductions"`
	NetPay     pricing.Money `json:"net_pay"`
}

// Team is the payroll of a group of employees.
type Team struct {
	Payslips []Payslip    `json:"payslips"`
	Total    pricing.Money `json:"total"`
}

// Calculator holds the salary table.
type Calculator struct {
	Bases    map[string]decimal.Decimal
	Fallback decimal.Decimal
}

func NewCalculator() *Calculator {
	return &Calculator{Bases: DefaultBases, Fallback: FallbackBase}
}

// Base returns the base salary of role (case-insensitive).
func (c *Calculator) Base(role string) decimal.Decimal {
	if b, ok := c.Bases[strings.ToUpper(strings.TrimSpace(role))]; ok {
		return b
	}
	return c.Fallback
}

// Pay computes one payslip. Net pay never drops below zero.
func (c *Calculator) Pay(e Employee) (Payslip, error) {
	rate := DefaultCommissionRate
	if e.CommissionRate != nil {
		rate = *e.CommissionRate
	}
	switch {
	case e.Sales.IsNegative():
		return Payslip{}, pricing.Invalid("sales", "must not be negative")
	case rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)):
		return Payslip{}, pricing.Invalid("commission_rate", "must be between 0 and 1")
	case e.OvertimeHours < 0:
		return Payslip{}, pricing.Invalid("overtime_hours", "must not be negative")
	case e.OvertimeRate.IsNegative():
		return Payslip{}, pricing.Invalid("overtime_rate", "must not be negative")
	case e.Bonus.IsNegative():
		return Payslip{}, pricing.Invalid("bonus", "must not be negative")
	case e.Deductions.IsNegative():
		return Payslip{}, pricing.Invalid("deductions", "must not be negative")
	}

	base := c.Base(e.Role)
	commission := e.Sales.Mul(rate)
	overtime := decimal.NewFromInt(int64(e.OvertimeHours)).Mul(e.OvertimeRate)
	net := base.Add(commission).Add(overtime).Add(e.Bonus).Sub(e.Deductions)
	if net.IsNegative() {
		net = decimal.Zero
	}
	return Payslip{
		Role:       strings.ToUpper(strings.TrimSpace(e.Role)),
		BaseSalary: pricing.NewMoney(base),
		Commission: pricing.NewMoney(commission),
		Overtime:   pricing.NewMoney(overtime),
		Bonus:      pricing.NewMoney(e.Bonus),
		Deductions: pricing.NewMoney(e.Deductions),
		NetPay:     pricing.NewMoney(net),
	}, nil
}

// PayTeam computes every payslip and sums the rounded net pays. The first
// invalid employee fails the whole team.
func (c *Calculator) PayTeam(team []Employee) (Team, error) {
	out := Team{Payslips: make([]Payslip, 0, len(team))}
	total := decimal.Zero
	for _, e := range team {
		p, err := c.Pay(e)
		if err != nil {
			return Team{}, err
		}
		out.Payslips = append(out.Payslips, p)
		total = total.Add(p.NetPay.Decimal)
	}
	out.Total = pricing.NewMoney(total)
	return out, nil
}
