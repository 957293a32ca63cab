package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/garyjia/scanpaie/internal/ai"
	"github.com/garyjia/scanpaie/internal/domain/entity"
)

// printer renders a report in the requested format.
type printer struct {
	w io.Writer
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) json(data interface{}) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// yaml reuses the json field names of data
func (p *printer) yaml(data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}

	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(generic)
}

// report writes a summary, the anomaly table and the recommendations.
func (p *printer) report(report *entity.ScanPaieAnalysis, locale string, entries int) {
	fmt.Fprintf(p.w, "Entries: %d  Anomalies: %d  Critical: %d  Risk score: %d/100\n\n",
		entries, report.TotalAnomalies, report.CriticalAnomalies, report.OverallRiskScore)

	if report.TotalAnomalies == 0 {
		fmt.Fprintln(p.w, "No anomaly detected.")
	} else {
		t := newTable(p.w, "SEVERITY", "TYPE", "EMPLOYEE", "PERIOD", "VALUE", "EXPECTED", "DESCRIPTION")
		for _, a := range report.Anomalies {
			t.addRow(
				formatSeverity(a.Severity),
				ai.TypeLabel(locale, a.Type),
				a.EmployeeName,
				a.PayrollPeriod,
				fmt.Sprintf("%.2f", a.DetectedValue),
				fmt.Sprintf("%.2f - %.2f", a.ExpectedRange.Min, a.ExpectedRange.Max),
				truncate(a.Description, 80),
			)
		}
		t.render()
	}

	if len(report.Recommendations) > 0 {
		fmt.Fprintln(p.w, "\nRecommendations:")
		for _, r := range report.Recommendations {
			fmt.Fprintf(p.w, "  - %s\n", r)
		}
	}
}

// table renders rows as aligned columns.
type table struct {
	w       io.Writer
	headers []string
	rows    [][]string
}

func newTable(w io.Writer, headers ...string) *table {
	return &table{w: w, headers: headers}
}

func (t *table) addRow(cols ...string) {
	t.rows = append(t.rows, cols)
}

func (t *table) render() {
	w := tabwriter.NewWriter(t.w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(t.headers, "\t"))
	sep := make([]string, len(t.headers))
	for i, h := range t.headers {
		sep[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(w, strings.Join(sep, "\t"))

	for _, row := range t.rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	_ = w.Flush()
}

// truncate shortens s to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// formatSeverity returns a severity string with visual indicator.
func formatSeverity(severity entity.Severity) string {
	switch severity {
	case entity.SeverityCritical:
		return "[!] CRITICAL"
	case entity.SeverityHigh:
		return "[H] HIGH"
	case entity.SeverityMedium:
		return "[M] MEDIUM"
	case entity.SeverityLow:
		return "[L] LOW"
	default:
		return string(severity)
	}
}
