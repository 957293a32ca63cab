package entity

import "strings"

// Employee is the identity block attached to a payroll entry
type Employee struct {
	ID         string `json:"id" validate:"required"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Position   string `json:"position"`
	Department string `json:"department,omitempty"`
}

// FullName returns "First Last", trimmed when either part is missing
func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// PayrollEntry holds one employee's figures for one payroll period.
// Monetary amounts share a single currency unit.
type PayrollEntry struct {
	ID            string   `json:"id" validate:"required"`
	Period        string   `json:"period,omitempty"`
	Employee      Employee `json:"employee"`
	GrossSalary   float64  `json:"gross_salary" validate:"gte=0"`
	NetSalary     float64  `json:"net_salary" validate:"gte=0"`
	SocialCharges float64  `json:"social_charges" validate:"gte=0"`
	IncomeTax     float64  `json:"income_tax" validate:"gte=0"`
	WorkingDays   float64  `json:"working_days" validate:"gte=0"`
	OvertimeHours float64  `json:"overtime_hours" validate:"gte=0"`
	Bonuses       float64  `json:"bonuses" validate:"gte=0"`
	Deductions    float64  `json:"deductions" validate:"gte=0"`
}

// PayrollPeriod returns the entry period or DefaultPayrollPeriod
func (p *PayrollEntry) PayrollPeriod() string {
	if p.Period == "" {
		return DefaultPayrollPeriod
	}
	return p.Period
}

// EffectiveWorkingDays returns WorkingDays, falling back to DefaultWorkingDays when unset
func (p *PayrollEntry) EffectiveWorkingDays() float64 {
	if p.WorkingDays <= 0 {
		return DefaultWorkingDays
	}
	return p.WorkingDays
}
