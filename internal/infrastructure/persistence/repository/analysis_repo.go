package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/garyjia/scanpaie/internal/application/port"
	"github.com/garyjia/scanpaie/internal/domain/entity"
	"github.com/garyjia/scanpaie/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// AnalysisRepository implements port.AnalysisRepository. The full report is
// stored as JSON on scan_analyses; anomalies are also flattened into
// scan_anomalies for aggregate queries.
type AnalysisRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(db *sqlite.DB, logger *zap.Logger) *AnalysisRepository {
	return &AnalysisRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores the record and its anomalies atomically
func (r *AnalysisRepository) Create(ctx context.Context, record *entity.AnalysisRecord) error {
	if record.ID == "" {
		return fmt.Errorf("failed to create analysis: id is required")
	}
	if record.CompanyID == "" {
		return entity.ErrCompanyRequired
	}
	if record.Analysis == nil {
		return fmt.Errorf("failed to create analysis %s: report is required", record.ID)
	}

	reportJSON, err := json.Marshal(record.Analysis)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	analysisQuery := `
		INSERT INTO scan_analyses (
			id, company_id, period, entry_count, total_anomalies,
			critical_anomalies, risk_score, report_json, narrative, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	anomalyQuery := `
		INSERT INTO scan_anomalies (
			analysis_id, anomaly_id, type, severity, entry_id, employee_id,
			employee_name, payroll_period, detected_value, expected_min,
			expected_max, confidence, description, detected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err = r.db.WithTransaction(ctx, func(ctx context.Context) error {
		exec := sqlite.ExecutorFor(ctx, r.db.DB)

		_, err := exec.ExecContext(ctx, analysisQuery,
			record.ID,
			record.CompanyID,
			record.Period,
			record.EntryCount,
			record.Analysis.TotalAnomalies,
			record.Analysis.CriticalAnomalies,
			record.Analysis.OverallRiskScore,
			string(reportJSON),
			record.Narrative,
			record.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert analysis: %w", err)
		}

		for i := range record.Analysis.Anomalies {
			a := &record.Analysis.Anomalies[i]
			_, err := exec.ExecContext(ctx, anomalyQuery,
				record.ID,
				a.ID,
				string(a.Type),
				string(a.Severity),
				a.EntryID,
				a.EmployeeID,
				a.EmployeeName,
				a.PayrollPeriod,
				a.DetectedValue,
				a.ExpectedRange.Min,
				a.ExpectedRange.Max,
				a.Confidence,
				a.Description,
				a.DetectedAt.UTC(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert anomaly %s: %w", a.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to create analysis",
			zap.String("analysis_id", record.ID),
			zap.String("company_id", record.CompanyID),
			zap.Error(err))
		return err
	}

	return nil
}

// GetByID retrieves an analysis record by id
func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*entity.AnalysisRecord, error) {
	query := `
		SELECT id, company_id, period, entry_count, report_json, narrative, created_at
		FROM scan_analyses
		WHERE id = ?
	`

	record, err := scanRecord(sqlite.ExecutorFor(ctx, r.db.DB).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", entity.ErrAnalysisNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get analysis", zap.String("analysis_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return record, nil
}

// List returns analyses newest first. An empty companyID lists every company.
func (r *AnalysisRepository) List(ctx context.Context, companyID string, limit, offset int) ([]*entity.AnalysisRecord, error) {
	limit, offset = entity.NormalizePage(limit, offset)

	query := `
		SELECT id, company_id, period, entry_count, report_json, narrative, created_at
		FROM scan_analyses
		WHERE (? = '' OR company_id = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db.DB).QueryContext(ctx, query, companyID, companyID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list analyses", zap.String("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	records := []*entity.AnalysisRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// CountBySeverity counts stored anomalies per severity. An empty companyID
// counts every company.
func (r *AnalysisRepository) CountBySeverity(ctx context.Context, companyID string) (map[entity.Severity]int, error) {
	query := `
		SELECT a.severity, COUNT(*)
		FROM scan_anomalies a
		JOIN scan_analyses s ON s.id = a.analysis_id
		WHERE (? = '' OR s.company_id = ?)
		GROUP BY a.severity
	`

	rows, err := sqlite.ExecutorFor(ctx, r.db.DB).QueryContext(ctx, query, companyID, companyID)
	if err != nil {
		r.logger.Error("Failed to count anomalies", zap.String("company_id", companyID), zap.Error(err))
		return nil, fmt.Errorf("failed to count anomalies: %w", err)
	}
	defer rows.Close()

	counts := make(map[entity.Severity]int)
	for rows.Next() {
		var severity string
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("failed to scan severity count: %w", err)
		}
		counts[entity.Severity(severity)] = count
	}

	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*entity.AnalysisRecord, error) {
	var record entity.AnalysisRecord
	var reportJSON string

	err := row.Scan(
		&record.ID,
		&record.CompanyID,
		&record.Period,
		&record.EntryCount,
		&reportJSON,
		&record.Narrative,
		&record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	var report entity.ScanPaieAnalysis
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report %s: %w", record.ID, err)
	}
	record.Analysis = &report

	return &record, nil
}

var _ port.AnalysisRepository = (*AnalysisRepository)(nil)
