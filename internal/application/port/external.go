package port

import (
	"context"

	"github.com/garyjia/scanpaie/internal/domain/entity"
)

// ReportNarrator turns an analysis report into a short plain-text summary
type ReportNarrator interface {
	Narrate(ctx context.Context, record *entity.AnalysisRecord) (string, error)
}

// AlertNotifier delivers a notification for an analysis with critical anomalies
type AlertNotifier interface {
	NotifyCritical(ctx context.Context, record *entity.AnalysisRecord) error
}

// MetricsRecorder receives analysis and import measurements
type MetricsRecorder interface {
	ObserveAnalysis(report *entity.ScanPaieAnalysis)
	ObserveImportRows(status string, count int)
}
