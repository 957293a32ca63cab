package entity

// AnomalyType identifies which payroll rule produced an anomaly
type AnomalyType string

// Anomaly types
const (
	AnomalySalarySpike       AnomalyType = "salary_spike"
	AnomalyOvertimeExcessive AnomalyType = "overtime_excessive"
	AnomalyDeductionUnusual  AnomalyType = "deduction_unusual"
	AnomalyTaxInconsistent   AnomalyType = "tax_inconsistent"
	AnomalyBonusIrregular    AnomalyType = "bonus_irregular"
)

// AnomalyTypes lists every rule type in evaluation order
var AnomalyTypes = []AnomalyType{
	AnomalySalarySpike,
	AnomalyOvertimeExcessive,
	AnomalyDeductionUnusual,
	AnomalyTaxInconsistent,
	AnomalyBonusIrregular,
}

// Severity is the ordinal seriousness of an anomaly
type Severity string

// Severity levels, lowest to highest
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every severity, most serious first
var Severities = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
}

// Rank returns the ordinal rank used for sorting (critical=4 ... low=1, unknown=0)
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Weight returns the risk-score weight of the severity
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 10
	case SeverityHigh:
		return 6
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// MaxSeverityWeight is the weight of the most serious severity
const MaxSeverityWeight = 10

// Payroll defaults applied when source data leaves a field empty
const (
	DefaultWorkingDays   = 22
	DefaultPayrollPeriod = "Current"
)

// Import row status constants
const (
	ImportStatusValid   = "valid"
	ImportStatusWarning = "warning"
	ImportStatusError   = "error"
)
