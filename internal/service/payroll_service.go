package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-ops/internal/payroll"
	"github.com/iliyamo/cinema-ops/internal/repository"
)

// EmployeeInput is one payroll line as it arrives over HTTP. When Email
// names a registered user, a missing Role and Sales are taken from that
// user's account and recorded sales.
type EmployeeInput struct {
	Email          string   `json:"email" validate:"omitempty,email,max=190"`
	Role           string   `json:"role" validate:"omitempty,max=40"`
	Sales          *float64 `json:"sales" validate:"omitempty,gte=0"`
	CommissionRate *float64 `json:"commission_rate" validate:"omitempty,gte=0,lte=1"`
	OvertimeHours  int      `json:"overtime_hours" validate:"gte=0,lte=744"`
	OvertimeRate   float64  `json:"overtime_rate" validate:"gte=0"`
	Bonus          float64  `json:"bonus" validate:"gte=0"`
	Deductions     float64  `json:"deductions" validate:"gte=0"`
}

// TeamInput is the body of POST /v1/payroll/team.
type TeamInput struct {
	Team []EmployeeInput `json:"team" validate:"max=200,dive"`
}

// PayrollService prices payslips with payroll.Calculator.
type PayrollService struct {
	Users *repository.UserRepo
	Calc  *payroll.Calculator
}

func NewPayrollService(users *repository.UserRepo) *PayrollService {
	return &PayrollService{Users: users, Calc: payroll.NewCalculator()}
}

// Employee computes one payslip.
func (s *PayrollService) Employee(ctx context.Context, in EmployeeInput) (payroll.Payslip, error) {
	if err := ValidateStruct(in); err != nil {
		return payroll.Payslip{}, err
	}
	e, err := s.toEmployee(ctx, in)
	if err != nil {
		return payroll.Payslip{}, err
	}
	return s.Calc.Pay(e)
}

// Team computes the payroll of every listed employee.
func (s *PayrollService) Team(ctx context.Context, in TeamInput) (payroll.Team, error) {
	if err := ValidateStruct(in); err != nil {
		return payroll.Team{}, err
	}
	team := make([]payroll.Employee, 0, len(in.Team))
	for _, line := range in.Team {
		e, err := s.toEmployee(ctx, line)
		if err != nil {
			return payroll.Team{}, err
		}
		team = append(team, e)
	}
	return s.Calc.PayTeam(team)
}

func (s *PayrollService) toEmployee(ctx context.Context, in EmployeeInput) (payroll.Employee, error) {
	e := payroll.Employee{
		Role:          in.Role,
		OvertimeHours: in.OvertimeHours,
		OvertimeRate:  decimal.NewFromFloat(in.OvertimeRate),
		Bonus:         decimal.NewFromFloat(in.Bonus),
		Deductions:    decimal.NewFromFloat(in.Deductions),
	}
	if in.Sales != nil {
		e.Sales = decimal.NewFromFloat(*in.Sales)
	}
	if in.CommissionRate != nil {
		r := decimal.NewFromFloat(*in.CommissionRate)
		e.CommissionRate = &r
	}
	if in.Email == "" {
		return e, nil
	}
	u, err := s.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return payroll.Employee{}, ErrUserNotFound
	}
	if err != nil {
		return payroll.Employee{}, err
	}
	if e.Role == "" {
		e.Role = u.Role
	}
	if in.Sales == nil {
		e.Sales = decimal.New(u.SalesTotal, -2)
	}
	return e, nil
}
