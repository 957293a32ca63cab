package ai

import (
	"math"
	"time"

	"github.com/garyjia/scanpaie/internal/domain/entity"
)

// Rule thresholds and confidences. These are hand-tuned policy constants and
// have never been calibrated against labelled payroll data.
const (
	positionHighMultiplier     = 1.5
	positionCriticalMultiplier = 2.0
	positionConfidence         = 0.85

	historicalFlagMultiplier = 1.3
	historicalHighMultiplier = 1.5
	historicalBandLow        = 0.9
	historicalBandHigh       = 1.1
	historicalConfidence     = 0.92

	overtimeHoursPerWorkingDay = 16
	overtimeCriticalMultiplier = 1.5
	overtimeConfidence         = 0.95

	deductionFlagPercent = 15.0
	deductionHighPercent = 25.0
	deductionBandRatio   = 0.15
	deductionConfidence  = 0.88

	taxFlagDeviation = 5.0
	taxHighDeviation = 10.0
	taxBandWidth     = 2.0
	taxConfidence    = 0.82

	bonusFlagPercent = 50.0
	bonusHighPercent = 100.0
	bonusBandRatio   = 0.3
	bonusConfidence  = 0.78
)

// historicalBaseline is computed once per run and read-only afterwards
type historicalBaseline struct {
	meanGross float64
	ok        bool
}

func newHistoricalBaseline(historical []entity.PayrollEntry) historicalBaseline {
	if len(historical) == 0 {
		return historicalBaseline{}
	}

	var sum float64
	for i := range historical {
		sum += historical[i].GrossSalary
	}
	mean := sum / float64(len(historical))
	if mean <= 0 || math.IsNaN(mean) || math.IsInf(mean, 0) {
		return historicalBaseline{}
	}
	return historicalBaseline{meanGross: mean, ok: true}
}

// evaluation carries the per-entry context shared by every rule
type evaluation struct {
	entry      *entity.PayrollEntry
	baseline   historicalBaseline
	detectedAt time.Time
	messages   *catalogue
}

func (ev *evaluation) anomaly(
	t entity.AnomalyType,
	severity entity.Severity,
	value float64,
	expected entity.ValueRange,
	confidence float64,
	description string,
	suggestions []string,
) *entity.Anomaly {
	return &entity.Anomaly{
		ID:            string(t) + "_" + ev.entry.ID,
		Type:          t,
		Severity:      severity,
		EntryID:       ev.entry.ID,
		EmployeeID:    ev.entry.Employee.ID,
		EmployeeName:  ev.entry.Employee.FullName(),
		PayrollPeriod: ev.entry.PayrollPeriod(),
		Description:   description,
		DetectedValue: value,
		ExpectedRange: expected,
		Confidence:    confidence,
		Suggestions:   append([]string(nil), suggestions...),
		DetectedAt:    ev.detectedAt,
	}
}

// detectSalarySpike compares gross salary with the historical mean when a
// baseline exists, otherwise with the position band.
func (d *ScanPaieDetector) detectSalarySpike(ev *evaluation) *entity.Anomaly {
	current := ev.entry.GrossSalary

	if ev.baseline.ok {
		mean := ev.baseline.meanGross
		if current <= mean*historicalFlagMultiplier {
			return nil
		}

		severity := entity.SeverityMedium
		if current > mean*historicalHighMultiplier {
			severity = entity.SeverityHigh
		}
		increase := (current/mean - 1) * 100

		return ev.anomaly(entity.AnomalySalarySpike, severity, current,
			entity.ValueRange{Min: mean * historicalBandLow, Max: mean * historicalBandHigh},
			historicalConfidence,
			ev.messages.salarySpikeHistorical(increase),
			ev.messages.suggestions.salarySpikeHistorical)
	}

	position := ev.entry.Employee.Position
	band := d.salaryRanges.Lookup(position)
	if current <= band.Max*positionHighMultiplier {
		return nil
	}

	severity := entity.SeverityHigh
	if current > band.Max*positionCriticalMultiplier {
		severity = entity.SeverityCritical
	}

	return ev.anomaly(entity.AnomalySalarySpike, severity, current, band,
		positionConfidence,
		ev.messages.salarySpikePosition(current, position),
		ev.messages.suggestions.salarySpikePosition)
}

// detectExcessiveOvertime flags overtime above 16 hours per working day
func (d *ScanPaieDetector) detectExcessiveOvertime(ev *evaluation) *entity.Anomaly {
	overtime := ev.entry.OvertimeHours
	limit := ev.entry.EffectiveWorkingDays() * overtimeHoursPerWorkingDay
	if overtime <= limit {
		return nil
	}

	severity := entity.SeverityHigh
	if overtime > limit*overtimeCriticalMultiplier {
		severity = entity.SeverityCritical
	}

	return ev.anomaly(entity.AnomalyOvertimeExcessive, severity, overtime,
		entity.ValueRange{Min: 0, Max: limit},
		overtimeConfidence,
		ev.messages.overtimeExcessive(overtime, limit),
		ev.messages.suggestions.overtimeExcessive)
}

// detectUnusualDeductions flags deductions above 15% of gross salary
func (d *ScanPaieDetector) detectUnusualDeductions(ev *evaluation) *entity.Anomaly {
	gross := ev.entry.GrossSalary
	if gross <= 0 {
		return nil
	}

	deductions := ev.entry.Deductions
	pct := deductions / gross * 100
	if pct <= deductionFlagPercent {
		return nil
	}

	severity := entity.SeverityMedium
	if pct > deductionHighPercent {
		severity = entity.SeverityHigh
	}

	return ev.anomaly(entity.AnomalyDeductionUnusual, severity, deductions,
		entity.ValueRange{Min: 0, Max: gross * deductionBandRatio},
		deductionConfidence,
		ev.messages.deductionUnusual(deductions, pct),
		ev.messages.suggestions.deductionUnusual)
}

// detectTaxInconsistency compares the effective tax rate with the bracket rate
func (d *ScanPaieDetector) detectTaxInconsistency(ev *evaluation) *entity.Anomaly {
	gross := ev.entry.GrossSalary
	if gross <= 0 {
		return nil
	}

	expected := d.taxBrackets.ExpectedRate(gross)
	actual := ev.entry.IncomeTax / gross * 100
	deviation := math.Abs(actual - expected)
	if deviation <= taxFlagDeviation {
		return nil
	}

	severity := entity.SeverityMedium
	if deviation > taxHighDeviation {
		severity = entity.SeverityHigh
	}

	return ev.anomaly(entity.AnomalyTaxInconsistent, severity, actual,
		entity.ValueRange{Min: expected - taxBandWidth, Max: expected + taxBandWidth},
		taxConfidence,
		ev.messages.taxInconsistent(actual, expected),
		ev.messages.suggestions.taxInconsistent)
}

// detectIrregularBonus flags bonuses above half of gross salary
func (d *ScanPaieDetector) detectIrregularBonus(ev *evaluation) *entity.Anomaly {
	gross := ev.entry.GrossSalary
	if gross <= 0 {
		return nil
	}

	bonuses := ev.entry.Bonuses
	pct := bonuses / gross * 100
	if pct <= bonusFlagPercent {
		return nil
	}

	severity := entity.SeverityMedium
	if pct > bonusHighPercent {
		severity = entity.SeverityHigh
	}

	return ev.anomaly(entity.AnomalyBonusIrregular, severity, bonuses,
		entity.ValueRange{Min: 0, Max: gross * bonusBandRatio},
		bonusConfidence,
		ev.messages.bonusIrregular(bonuses, pct),
		ev.messages.suggestions.bonusIrregular)
}

// evaluateEntry runs every rule once, in fixed order
func (d *ScanPaieDetector) evaluateEntry(ev *evaluation) []entity.Anomaly {
	rules := [...]func(*evaluation) *entity.Anomaly{
		d.detectSalarySpike,
		d.detectExcessiveOvertime,
		d.detectUnusualDeductions,
		d.detectTaxInconsistency,
		d.detectIrregularBonus,
	}

	var found []entity.Anomaly
	for _, rule := range rules {
		if a := rule(ev); a != nil {
			found = append(found, *a)
		}
	}
	return found
}
