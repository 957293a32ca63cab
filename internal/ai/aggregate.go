package ai

import (
	"math"
	"sort"

	"github.com/garyjia/scanpaie/internal/domain/entity"
)

// trainingRecommendationThreshold is the anomaly count above which payroll
// training is recommended
const trainingRecommendationThreshold = 10

// aggregate builds the report from the complete, unsorted anomaly list
func aggregate(anomalies []entity.Anomaly, messages *catalogue) *entity.ScanPaieAnalysis {
	sortBySeverity(anomalies)

	report := &entity.ScanPaieAnalysis{
		TotalAnomalies:      len(anomalies),
		AnomaliesByType:     make(map[entity.AnomalyType]int),
		AnomaliesBySeverity: make(map[entity.Severity]int),
		OverallRiskScore:    riskScore(anomalies),
		Recommendations:     recommendations(anomalies, messages),
		Anomalies:           anomalies,
	}

	for i := range anomalies {
		report.AnomaliesByType[anomalies[i].Type]++
		report.AnomaliesBySeverity[anomalies[i].Severity]++
		if anomalies[i].IsCritical() {
			report.CriticalAnomalies++
		}
	}

	return report
}

// sortBySeverity orders critical first; equal severities keep discovery order
func sortBySeverity(anomalies []entity.Anomaly) {
	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].Severity.Rank() > anomalies[j].Severity.Rank()
	})
}

// riskScore is the weighted severity sum over its maximum, as a 0-100 integer
func riskScore(anomalies []entity.Anomaly) int {
	if len(anomalies) == 0 {
		return 0
	}

	total := 0
	for i := range anomalies {
		total += anomalies[i].Severity.Weight()
	}
	maxScore := len(anomalies) * entity.MaxSeverityWeight

	return int(math.Round(float64(total) / float64(maxScore) * 100))
}

// recommendations returns deduplicated advisories in first-trigger order
func recommendations(anomalies []entity.Anomaly, messages *catalogue) []string {
	var hasSalarySpike, hasOvertime, hasCritical bool
	for i := range anomalies {
		switch anomalies[i].Type {
		case entity.AnomalySalarySpike:
			hasSalarySpike = true
		case entity.AnomalyOvertimeExcessive:
			hasOvertime = true
		}
		if anomalies[i].IsCritical() {
			hasCritical = true
		}
	}

	recs := []string{}
	seen := make(map[string]bool)
	add := func(rec string) {
		if !seen[rec] {
			seen[rec] = true
			recs = append(recs, rec)
		}
	}

	if hasSalarySpike {
		add(messages.recommendations.salarySpike)
	}
	if hasOvertime {
		add(messages.recommendations.overtime)
	}
	if hasCritical {
		add(messages.recommendations.critical)
	}
	if len(anomalies) > trainingRecommendationThreshold {
		add(messages.recommendations.training)
	}

	return recs
}
