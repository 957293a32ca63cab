package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/garyjia/scanpaie/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 12, 31, 9, 0, 0, 0, time.UTC)

func newTestDetector(opts ...Option) *ScanPaieDetector {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewScanPaieDetector(opts...)
}

func payrollEntry(id, position string, gross float64) entity.PayrollEntry {
	return entity.PayrollEntry{
		ID:     id,
		Period: "2024-12",
		Employee: entity.Employee{
			ID:        "emp_" + id,
			FirstName: "Test",
			LastName:  id,
			Position:  position,
		},
		GrossSalary: gross,
		WorkingDays: 22,
	}
}

// dashboardBatch is the three-employee batch used on the ScanPaie dashboard
func dashboardBatch() []entity.PayrollEntry {
	return []entity.PayrollEntry{
		{
			ID: "entry_1", GrossSalary: 12000, NetSalary: 9500, SocialCharges: 1800, IncomeTax: 700,
			WorkingDays: 22, OvertimeHours: 80, Bonuses: 2000, Deductions: 0,
			Employee: entity.Employee{ID: "emp_1", FirstName: "Jean", LastName: "Martin", Position: "Développeur"},
		},
		{
			ID: "entry_2", GrossSalary: 4500, NetSalary: 3600, SocialCharges: 650, IncomeTax: 250,
			WorkingDays: 22, OvertimeHours: 15, Bonuses: 0, Deductions: 1200,
			Employee: entity.Employee{ID: "emp_2", FirstName: "Sophie", LastName: "Durand", Position: "Chef de projet"},
		},
		{
			ID: "entry_3", GrossSalary: 3800, NetSalary: 3100, SocialCharges: 550, IncomeTax: 150,
			WorkingDays: 22, OvertimeHours: 5, Bonuses: 0, Deductions: 0,
			Employee: entity.Employee{ID: "emp_3", FirstName: "Pierre", LastName: "Moreau", Position: "Analyste"},
		},
	}
}

func findAnomaly(t *testing.T, report *entity.ScanPaieAnalysis, typ entity.AnomalyType, entryID string) entity.Anomaly {
	t.Helper()
	for _, a := range report.Anomalies {
		if a.Type == typ && a.EntryID == entryID {
			return a
		}
	}
	t.Fatalf("no %s anomaly for entry %s", typ, entryID)
	return entity.Anomaly{}
}

func hasAnomaly(report *entity.ScanPaieAnalysis, typ entity.AnomalyType) bool {
	for _, a := range report.Anomalies {
		if a.Type == typ {
			return true
		}
	}
	return false
}

func assertReportInvariants(t *testing.T, report *entity.ScanPaieAnalysis) {
	t.Helper()

	assert.Equal(t, len(report.Anomalies), report.TotalAnomalies)

	critical := 0
	for i, a := range report.Anomalies {
		if a.Severity == entity.SeverityCritical {
			critical++
		}
		if i > 0 {
			assert.GreaterOrEqual(t, report.Anomalies[i-1].Severity.Rank(), a.Severity.Rank(),
				"anomalies must be sorted by severity")
		}
	}
	assert.Equal(t, critical, report.CriticalAnomalies)
	assert.GreaterOrEqual(t, report.OverallRiskScore, 0)
	assert.LessOrEqual(t, report.OverallRiskScore, 100)
}

func TestAnalyze_EmptyBatch(t *testing.T) {
	report, err := newTestDetector().Analyze(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, report.TotalAnomalies)
	assert.Equal(t, 0, report.CriticalAnomalies)
	assert.Equal(t, 0, report.OverallRiskScore)
	assert.NotNil(t, report.Anomalies)
	assert.Empty(t, report.Anomalies)
	assert.NotNil(t, report.Recommendations)
	assert.Empty(t, report.Recommendations)
	assert.Empty(t, report.AnomaliesByType)
	assert.Equal(t, 0, report.CountBySeverity(entity.SeverityHigh))
}

func TestAnalyze_SalarySpikeAgainstPositionRange(t *testing.T) {
	entries := dashboardBatch()[:1]

	report, err := newTestDetector().Analyze(context.Background(), entries, nil)
	require.NoError(t, err)
	assertReportInvariants(t, report)

	spike := findAnomaly(t, report, entity.AnomalySalarySpike, "entry_1")
	assert.Equal(t, "salary_spike_entry_1", spike.ID)
	// 12000 > 6000*1.5 but not strictly above 6000*2
	assert.Equal(t, entity.SeverityHigh, spike.Severity)
	assert.Equal(t, 12000.0, spike.DetectedValue)
	assert.Equal(t, entity.ValueRange{Min: 3000, Max: 6000}, spike.ExpectedRange)
	assert.Equal(t, 0.85, spike.Confidence)
	assert.Equal(t, "emp_1", spike.EmployeeID)
	assert.Equal(t, "Jean Martin", spike.EmployeeName)
	assert.Equal(t, entity.DefaultPayrollPeriod, spike.PayrollPeriod)
	assert.Equal(t, fixedNow, spike.DetectedAt)
	assert.Equal(t,
		"Salaire brut (€12000) significativement supérieur à la fourchette attendue pour le poste Développeur",
		spike.Description)
	assert.Len(t, spike.Suggestions, 3)

	// 80h is well under the 22*16 = 352h limit
	assert.False(t, hasAnomaly(report, entity.AnomalyOvertimeExcessive))
}

func TestAnalyze_HighDeductions(t *testing.T) {
	entry := dashboardBatch()[1]
	entry.IncomeTax = 540 // 12%, matches the bracket

	report, err := newTestDetector().Analyze(context.Background(), []entity.PayrollEntry{entry}, nil)
	require.NoError(t, err)

	require.Equal(t, 1, report.TotalAnomalies)
	deduction := report.Anomalies[0]
	assert.Equal(t, entity.AnomalyDeductionUnusual, deduction.Type)
	assert.Equal(t, entity.SeverityHigh, deduction.Severity)
	assert.Equal(t, 1200.0, deduction.DetectedValue)
	assert.InDelta(t, 675.0, deduction.ExpectedRange.Max, 1e-9)
	assert.Equal(t, 0.88, deduction.Confidence)
	assert.Equal(t, "Déductions inhabituelles: €1200 (26.7% du salaire brut)", deduction.Description)
	assert.Equal(t, 60, report.OverallRiskScore)
}

func TestAnalyze_CleanEntry(t *testing.T) {
	entry := dashboardBatch()[2]
	entry.IncomeTax = 456 // 12% of 3800

	report, err := newTestDetector().Analyze(context.Background(), []entity.PayrollEntry{entry}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, report.TotalAnomalies)
	assert.Equal(t, 0, report.OverallRiskScore)
	assert.Empty(t, report.Recommendations)
}

func TestAnalyze_DashboardBatch(t *testing.T) {
	report, err := newTestDetector().Analyze(context.Background(), dashboardBatch(), nil)
	require.NoError(t, err)
	assertReportInvariants(t, report)

	got := make([]string, 0, len(report.Anomalies))
	for _, a := range report.Anomalies {
		got = append(got, a.ID+":"+string(a.Severity))
	}
	assert.Equal(t, []string{
		"salary_spike_entry_1:high",
		"tax_inconsistent_entry_1:high",
		"deduction_unusual_entry_2:high",
		"tax_inconsistent_entry_2:medium",
		"tax_inconsistent_entry_3:medium",
	}, got)

	assert.Equal(t, 5, report.TotalAnomalies)
	assert.Equal(t, 0, report.CriticalAnomalies)
	assert.Equal(t, map[entity.AnomalyType]int{
		entity.AnomalySalarySpike:      1,
		entity.AnomalyTaxInconsistent:  3,
		entity.AnomalyDeductionUnusual: 1,
	}, report.AnomaliesByType)
	assert.Equal(t, map[entity.Severity]int{
		entity.SeverityHigh:   3,
		entity.SeverityMedium: 2,
	}, report.AnomaliesBySeverity)

	// (3*6 + 2*3) / (5*10)
	assert.Equal(t, 48, report.OverallRiskScore)
	assert.Equal(t, []string{
		"Mettre en place un processus de validation pour les augmentations salariales importantes",
	}, report.Recommendations)

	tax := findAnomaly(t, report, entity.AnomalyTaxInconsistent, "entry_1")
	assert.InDelta(t, 5.8333, tax.DetectedValue, 1e-3)
	assert.Equal(t, entity.ValueRange{Min: 23, Max: 27}, tax.ExpectedRange)
	assert.Equal(t, "Taux d'imposition incohérent: 5.8% (attendu: ~25.0%)", tax.Description)
}

func TestAnalyze_OvertimeBoundary(t *testing.T) {
	tests := []struct {
		name        string
		workingDays float64
		overtime    float64
		want        entity.Severity
	}{
		{name: "exactly at limit", workingDays: 20, overtime: 320, want: ""},
		{name: "one hour above limit", workingDays: 20, overtime: 321, want: entity.SeverityHigh},
		{name: "exactly 1.5x limit", workingDays: 20, overtime: 480, want: entity.SeverityHigh},
		{name: "above 1.5x limit", workingDays: 20, overtime: 481, want: entity.SeverityCritical},
		{name: "missing working days uses 22", workingDays: 0, overtime: 353, want: entity.SeverityHigh},
		{name: "missing working days at default limit", workingDays: 0, overtime: 352, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := payrollEntry("ot", "Analyste", 4000)
			entry.IncomeTax = 480
			entry.WorkingDays = tt.workingDays
			entry.OvertimeHours = tt.overtime

			report, err := newTestDetector().Analyze(context.Background(), []entity.PayrollEntry{entry}, nil)
			require.NoError(t, err)

			if tt.want == "" {
				assert.Equal(t, 0, report.TotalAnomalies)
				return
			}
			require.Equal(t, 1, report.TotalAnomalies)
			a := report.Anomalies[0]
			assert.Equal(t, entity.AnomalyOvertimeExcessive, a.Type)
			assert.Equal(t, tt.want, a.Severity)
			assert.Equal(t, tt.overtime, a.DetectedValue)
			assert.Equal(t, 0.95, a.Confidence)
		})
	}
}

func TestAnalyze_ZeroGrossSalaryIsGuarded(t *testing.T) {
	entry := payrollEntry("zero", "Analyste", 0)
	entry.Deductions = 300
	entry.Bonuses = 500
	entry.IncomeTax = 100

	report, err := newTestDetector().Analyze(context.Background(), []entity.PayrollEntry{entry}, nil)
	require.NoError(t, err)

	assert.False(t, hasAnomaly(report, entity.AnomalyDeductionUnusual))
	assert.False(t, hasAnomaly(report, entity.AnomalyTaxInconsistent))
	assert.False(t, hasAnomaly(report, entity.AnomalyBonusIrregular))
	assert.Equal(t, 0, report.TotalAnomalies)
}

func TestAnalyze_CriticalSalaryAndRecommendations(t *testing.T) {
	entry := payrollEntry("intern", "Stagiaire", 3100)
	entry.IncomeTax = 372

	report, err := newTestDetector().Analyze(context.Background(), []entity.PayrollEntry{entry}, nil)
	require.NoError(t, err)

	require.Equal(t, 1, report.TotalAnomalies)
	assert.Equal(t, entity.SeverityCritical, report.Anomalies[0].Severity)
	assert.Equal(t, 1, report.CriticalAnomalies)
	assert.Equal(t, 100, report.OverallRiskScore)
	assert.Equal(t, []string{
		"Mettre en place un processus de validation pour les augmentations salariales importantes",
		"Effectuer un audit complet des données de paie critiques",
	}, report.Recommendations)
}

func TestAnalyze_UnknownPositionUsesDefaultRange(t *testing.T) {
	entry := payrollEntry("unknown", "Sommelier", 12500)
	entry.IncomeTax = 3750

	report, err := newTestDetector().Analyze(context.Background(), []entity.PayrollEntry{entry}, nil)
	require.NoError(t, err)

	spike := findAnomaly(t, report, entity.AnomalySalarySpike, "unknown")
	assert.Equal(t, entity.ValueRange{Min: 2000, Max: 8000}, spike.ExpectedRange)
	assert.Equal(t, entity.SeverityHigh, spike.Severity)
}

func TestAnalyze_HistoricalBaseline(t *testing.T) {
	historical := []entity.PayrollEntry{
		payrollEntry("h1", "Analyste", 2500),
		payrollEntry("h2", "Analyste", 3500),
	}

	tests := []struct {
		name  string
		gross float64
		want  entity.Severity
	}{
		{name: "below 1.3x mean", gross: 3800, want: ""},
		{name: "between 1.3x and 1.5x mean", gross: 4000, want: entity.SeverityMedium},
		{name: "above 1.5x mean", gross: 5000, want: entity.SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := payrollEntry("cur", "Analyste", tt.gross)
			entry.IncomeTax = tt.gross * 0.12

			report, err := newTestDetector().Analyze(context.Background(), []entity.PayrollEntry{entry}, historical)
			require.NoError(t, err)

			if tt.want == "" {
				assert.False(t, hasAnomaly(report, entity.AnomalySalarySpike))
				return
			}
			spike := findAnomaly(t, report, entity.AnomalySalarySpike, "cur")
			assert.Equal(t, tt.want, spike.Severity)
			assert.Equal(t, 0.92, spike.Confidence)
			assert.InDelta(t, 2700, spike.ExpectedRange.Min, 1e-9)
			assert.InDelta(t, 3300, spike.ExpectedRange.Max, 1e-9)
			assert.Contains(t, spike.Description, "par rapport à la moyenne historique")
		})
	}
}

func TestAnalyze_HistoricalBaselineReplacesPositionPath(t *testing.T) {
	// 12000 is a position spike for a developer, but in line with history
	entry := payrollEntry("dev", "Développeur", 12000)
	entry.IncomeTax = 3000
	historical := []entity.PayrollEntry{payrollEntry("h", "Développeur", 11500)}

	report, err := newTestDetector().Analyze(context.Background(), []entity.PayrollEntry{entry}, historical)
	require.NoError(t, err)
	assert.False(t, hasAnomaly(report, entity.AnomalySalarySpike))
}

func TestAnalyze_NonPositiveHistoricalMeanFallsBackToPosition(t *testing.T) {
	entry := payrollEntry("dev", "Développeur", 12000)
	entry.IncomeTax = 3000
	historical := []entity.PayrollEntry{payrollEntry("h", "Développeur", 0)}

	report, err := newTestDetector().Analyze(context.Background(), []entity.PayrollEntry{entry}, historical)
	require.NoError(t, err)

	spike := findAnomaly(t, report, entity.AnomalySalarySpike, "dev")
	assert.Equal(t, 0.85, spike.Confidence)
}

func TestAnalyze_BonusRule(t *testing.T) {
	tests := []struct {
		name    string
		bonuses float64
		want    entity.Severity
	}{
		{name: "exactly half", bonuses: 2000, want: ""},
		{name: "above half", bonuses: 2400, want: entity.SeverityMedium},
		{name: "above full salary", bonuses: 4400, want: entity.SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := payrollEntry("bonus", "Analyste", 4000)
			entry.IncomeTax = 480
			entry.Bonuses = tt.bonuses

			report, err := newTestDetector().Analyze(context.Background(), []entity.PayrollEntry{entry}, nil)
			require.NoError(t, err)

			if tt.want == "" {
				assert.Equal(t, 0, report.TotalAnomalies)
				return
			}
			bonus := findAnomaly(t, report, entity.AnomalyBonusIrregular, "bonus")
			assert.Equal(t, tt.want, bonus.Severity)
			assert.Equal(t, 0.78, bonus.Confidence)
			assert.InDelta(t, 1200, bonus.ExpectedRange.Max, 1e-9)
		})
	}
}

func TestAnalyze_StableSeverityOrdering(t *testing.T) {
	base := func(id string) entity.PayrollEntry {
		e := payrollEntry(id, "Analyste", 3000)
		e.IncomeTax = 240
		return e
	}

	first := base("first")
	first.Deductions = 600
	overtime := base("overtime")
	overtime.WorkingDays = 10
	overtime.OvertimeHours = 300
	second := base("second")
	second.Deductions = 600
	bonus := base("bonus")
	bonus.Bonuses = 3300

	report, err := newTestDetector().Analyze(context.Background(),
		[]entity.PayrollEntry{first, overtime, second, bonus}, nil)
	require.NoError(t, err)

	ids := make([]string, 0, len(report.Anomalies))
	for _, a := range report.Anomalies {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{
		"overtime_excessive_overtime",
		"bonus_irregular_bonus",
		"deduction_unusual_first",
		"deduction_unusual_second",
	}, ids)
	// (10 + 6 + 3 + 3) / 40 = 55%
	assert.Equal(t, 55, report.OverallRiskScore)
	assert.Equal(t, []string{
		"Réviser la gestion des heures supplémentaires et la charge de travail",
		"Effectuer un audit complet des données de paie critiques",
	}, report.Recommendations)
}

func TestAnalyze_TrainingRecommendationAboveTenAnomalies(t *testing.T) {
	entries := make([]entity.PayrollEntry, 11)
	for i := range entries {
		e := payrollEntry(fmt.Sprintf("e%02d", i), "Analyste", 3000)
		e.IncomeTax = 240
		e.Deductions = 600
		entries[i] = e
	}

	report, err := newTestDetector().Analyze(context.Background(), entries, nil)
	require.NoError(t, err)

	assert.Equal(t, 11, report.TotalAnomalies)
	assert.Equal(t, 30, report.OverallRiskScore)
	assert.Equal(t, []string{
		"Considérer une formation sur les bonnes pratiques de gestion de paie",
	}, report.Recommendations)

	report, err = newTestDetector().Analyze(context.Background(), entries[:10], nil)
	require.NoError(t, err)
	assert.Empty(t, report.Recommendations)
}

func TestAnalyze_Idempotent(t *testing.T) {
	entries := dashboardBatch()
	historical := []entity.PayrollEntry{payrollEntry("h", "Analyste", 4000)}

	first, err := NewScanPaieDetector().Analyze(context.Background(), entries, historical)
	require.NoError(t, err)
	second, err := NewScanPaieDetector().Analyze(context.Background(), entries, historical)
	require.NoError(t, err)

	require.Equal(t, len(first.Anomalies), len(second.Anomalies))
	for i := range first.Anomalies {
		assert.Equal(t, first.Anomalies[i].ID, second.Anomalies[i].ID)
		assert.Equal(t, first.Anomalies[i].Type, second.Anomalies[i].Type)
		assert.Equal(t, first.Anomalies[i].Severity, second.Anomalies[i].Severity)
		assert.Equal(t, first.Anomalies[i].DetectedValue, second.Anomalies[i].DetectedValue)
	}
}

func TestAnalyze_DoesNotMutateInputs(t *testing.T) {
	entries := dashboardBatch()
	snapshot := dashboardBatch()

	_, err := newTestDetector().Analyze(context.Background(), entries, nil)
	require.NoError(t, err)
	assert.Equal(t, snapshot, entries)
}

func TestAnalyze_InvalidEntries(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *entity.PayrollEntry)
		field  string
	}{
		{name: "missing entry id", mutate: func(e *entity.PayrollEntry) { e.ID = "" }, field: "id"},
		{name: "missing employee id", mutate: func(e *entity.PayrollEntry) { e.Employee.ID = "" }, field: "employee.id"},
		{name: "missing employee name", mutate: func(e *entity.PayrollEntry) {
			e.Employee.FirstName = ""
			e.Employee.LastName = ""
		}, field: "employee.name"},
		{name: "negative gross salary", mutate: func(e *entity.PayrollEntry) { e.GrossSalary = -1 }, field: "gross_salary"},
		{name: "negative overtime", mutate: func(e *entity.PayrollEntry) { e.OvertimeHours = -2 }, field: "overtime_hours"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := dashboardBatch()
			tt.mutate(&entries[1])

			report, err := newTestDetector().Analyze(context.Background(), entries, nil)
			require.Error(t, err)
			assert.Nil(t, report)

			var invalid *entity.InvalidEntryError
			require.True(t, errors.As(err, &invalid))
			assert.Equal(t, 1, invalid.Index)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}
}

func TestAnalyze_EnglishLocale(t *testing.T) {
	report, err := newTestDetector(WithLocale(LocaleEN)).Analyze(context.Background(), dashboardBatch(), nil)
	require.NoError(t, err)

	spike := findAnomaly(t, report, entity.AnomalySalarySpike, "entry_1")
	assert.Equal(t, "Gross salary (€12000) significantly above the expected range for position Développeur", spike.Description)
	assert.Equal(t, []string{"Set up a validation process for significant salary increases"}, report.Recommendations)
}

func TestAnalyze_UnknownLocaleFallsBackToFrench(t *testing.T) {
	d := newTestDetector(WithLocale("de"))
	assert.Equal(t, LocaleFR, d.Locale())
}

func TestAnalyze_ParallelMatchesSequential(t *testing.T) {
	entries := make([]entity.PayrollEntry, 0, 1000)
	positions := []string{"Développeur", "Analyste", "Stagiaire", "Manager", "Inconnu"}
	for i := 0; i < 1000; i++ {
		e := payrollEntry(fmt.Sprintf("p%04d", i), positions[i%len(positions)], float64(1000+(i*37)%14000))
		e.IncomeTax = float64((i * 53) % 2500)
		e.Deductions = float64((i * 17) % 1500)
		e.Bonuses = float64((i * 29) % 6000)
		e.OvertimeHours = float64((i * 11) % 600)
		entries = append(entries, e)
	}

	sequential, err := newTestDetector(WithParallelism(1, 0)).Analyze(context.Background(), entries, nil)
	require.NoError(t, err)
	parallel, err := newTestDetector(WithParallelism(4, 37)).Analyze(context.Background(), entries, nil)
	require.NoError(t, err)

	assert.Equal(t, sequential, parallel)
	assertReportInvariants(t, parallel)
}

func TestAnalyze_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries := make([]entity.PayrollEntry, 20)
	for i := range entries {
		entries[i] = payrollEntry(fmt.Sprintf("c%d", i), "Analyste", 4000)
	}

	for _, d := range []*ScanPaieDetector{
		newTestDetector(WithParallelism(1, 0)),
		newTestDetector(WithParallelism(4, 5)),
	} {
		report, err := d.Analyze(ctx, entries, nil)
		assert.Nil(t, report)
		assert.True(t, errors.Is(err, context.Canceled))
	}
}

func TestDefaultDetector(t *testing.T) {
	assert.Same(t, Default(), Default())

	report, err := Analyze(context.Background(), dashboardBatch(), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, report.TotalAnomalies)
}
