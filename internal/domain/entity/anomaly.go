package entity

import "time"

// ValueRange is an inclusive acceptable band
type ValueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Anomaly is one rule violation detected for one payroll entry
type Anomaly struct {
	ID            string      `json:"id"`
	Type          AnomalyType `json:"type"`
	Severity      Severity    `json:"severity"`
	EntryID       string      `json:"entry_id"`
	EmployeeID    string      `json:"employee_id"`
	EmployeeName  string      `json:"employee_name"`
	PayrollPeriod string      `json:"payroll_period"`
	Description   string      `json:"description"`
	DetectedValue float64     `json:"detected_value"`
	ExpectedRange ValueRange  `json:"expected_range"`
	Confidence    float64     `json:"confidence"`
	Suggestions   []string    `json:"suggestions"`
	DetectedAt    time.Time   `json:"detected_at"`
}

// IsCritical reports whether the anomaly has critical severity
func (a *Anomaly) IsCritical() bool {
	return a.Severity == SeverityCritical
}

// ScanPaieAnalysis is the report produced by one detector run
type ScanPaieAnalysis struct {
	TotalAnomalies      int                 `json:"total_anomalies"`
	CriticalAnomalies   int                 `json:"critical_anomalies"`
	AnomaliesByType     map[AnomalyType]int `json:"anomalies_by_type"`
	AnomaliesBySeverity map[Severity]int    `json:"anomalies_by_severity"`
	OverallRiskScore    int                 `json:"overall_risk_score"`
	Recommendations     []string            `json:"recommendations"`
	Anomalies           []Anomaly           `json:"anomalies"`
}

// CountByType returns the count for t, zero when absent
func (a *ScanPaieAnalysis) CountByType(t AnomalyType) int {
	return a.AnomaliesByType[t]
}

// CountBySeverity returns the count for s, zero when absent
func (a *ScanPaieAnalysis) CountBySeverity(s Severity) int {
	return a.AnomaliesBySeverity[s]
}

// AnalysisRecord is a persisted analysis run for a company
type AnalysisRecord struct {
	ID         string            `json:"id"`
	CompanyID  string            `json:"company_id"`
	Period     string            `json:"period"`
	EntryCount int               `json:"entry_count"`
	Analysis   *ScanPaieAnalysis `json:"analysis"`
	Narrative  string            `json:"narrative,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
