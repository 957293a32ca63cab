package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/garyjia/scanpaie/internal/application/port"
	"github.com/garyjia/scanpaie/internal/domain/entity"
	"github.com/garyjia/scanpaie/internal/payroll"
	"github.com/garyjia/scanpaie/pkg/utils"
	"github.com/google/uuid"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Detector scores a payroll batch
type Detector interface {
	Analyze(ctx context.Context, entries, historical []entity.PayrollEntry) (*entity.ScanPaieAnalysis, error)
}

// PayrollParser reads an uploaded payroll file
type PayrollParser interface {
	Parse(filename string, r io.Reader, defaultPeriod string) (*payroll.ImportResult, error)
}

// AnalyzeRequest is one detector run for a company. When Historical is empty
// and BaselinePeriod is set, the baseline is loaded from stored payroll.
// Entries are stored under Period when it is set.
type AnalyzeRequest struct {
	CompanyID      string                `json:"company_id"`
	Period         string                `json:"period"`
	Entries        []entity.PayrollEntry `json:"entries"`
	Historical     []entity.PayrollEntry `json:"historical"`
	BaselinePeriod string                `json:"baseline_period"`
}

// ImportRequest is an uploaded payroll file for a company and period
type ImportRequest struct {
	CompanyID      string
	Period         string
	Filename       string
	Content        io.Reader
	BaselinePeriod string
}

// ImportAnalysis is the outcome of ImportAndAnalyze. Analysis is nil when
// the file had no admissible rows.
type ImportAnalysis struct {
	Import   *payroll.ImportResult  `json:"import"`
	Analysis *entity.AnalysisRecord `json:"analysis"`
}

// ScanService orchestrates payroll import, anomaly analysis and reporting
type ScanService interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*entity.AnalysisRecord, error)
	ImportPayroll(ctx context.Context, req ImportRequest) (*payroll.ImportResult, error)
	ImportAndAnalyze(ctx context.Context, req ImportRequest) (*ImportAnalysis, error)
	GetAnalysis(ctx context.Context, id string) (*entity.AnalysisRecord, error)
	ListAnalyses(ctx context.Context, companyID string, limit, offset int) ([]*entity.AnalysisRecord, error)
	SeveritySummary(ctx context.Context, companyID string) (map[entity.Severity]int, error)
}

// ScanDependencies are the collaborators of a ScanService. Narrator,
// Notifier, Metrics and Archive are optional.
type ScanDependencies struct {
	Detector     Detector
	Parser       PayrollParser
	PayrollRepo  port.PayrollRepository
	AnalysisRepo port.AnalysisRepository
	TxManager    port.TransactionManager
	Narrator     port.ReportNarrator
	Notifier     port.AlertNotifier
	Metrics      port.MetricsRecorder
	Archive      port.FileStorage
	Now          func() time.Time
	NewID        func() string
}

type scanServiceImpl struct {
	deps   ScanDependencies
	logger Logger
}

// NewScanService creates a new ScanService
func NewScanService(deps ScanDependencies, logger Logger) ScanService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	return &scanServiceImpl{
		deps:   deps,
		logger: logger,
	}
}

// Analyze runs the detector and stores the resulting record
func (s *scanServiceImpl) Analyze(ctx context.Context, req AnalyzeRequest) (*entity.AnalysisRecord, error) {
	record, err := s.buildRecord(ctx, req)
	if err != nil {
		return nil, err
	}

	err = s.deps.TxManager.WithTransaction(ctx, func(ctx context.Context) error {
		if req.Period != "" {
			if err := s.deps.PayrollRepo.SaveBatch(ctx, req.CompanyID, req.Period, req.Entries); err != nil {
				return fmt.Errorf("failed to save payroll entries: %w", err)
			}
		}
		return s.saveRecord(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.completeAnalysis(ctx, record)
	return record, nil
}

// buildRecord resolves the baseline, runs the detector and attaches the
// narrative. Nothing is stored.
func (s *scanServiceImpl) buildRecord(ctx context.Context, req AnalyzeRequest) (*entity.AnalysisRecord, error) {
	if req.CompanyID == "" {
		return nil, entity.ErrCompanyRequired
	}

	historical := req.Historical
	if len(historical) == 0 && req.BaselinePeriod != "" {
		baseline, err := s.deps.PayrollRepo.GetByPeriod(ctx, req.CompanyID, req.BaselinePeriod)
		if err != nil {
			return nil, fmt.Errorf("failed to load baseline period %s: %w", req.BaselinePeriod, err)
		}
		historical = baseline
	}

	report, err := s.deps.Detector.Analyze(ctx, req.Entries, historical)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze payroll: %w", err)
	}

	record := &entity.AnalysisRecord{
		ID:         s.deps.NewID(),
		CompanyID:  req.CompanyID,
		Period:     req.Period,
		EntryCount: len(req.Entries),
		Analysis:   report,
		CreatedAt:  s.deps.Now().UTC(),
	}
	if record.Period == "" && len(req.Entries) > 0 {
		record.Period = req.Entries[0].PayrollPeriod()
	}

	if s.deps.Narrator != nil {
		narrative, err := s.deps.Narrator.Narrate(ctx, record)
		if err != nil {
			s.logger.Error("Failed to generate analysis narrative", "company_id", req.CompanyID, "error", err)
		} else {
			record.Narrative = narrative
		}
	}

	return record, nil
}

func (s *scanServiceImpl) saveRecord(ctx context.Context, record *entity.AnalysisRecord) error {
	if err := s.deps.AnalysisRepo.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// completeAnalysis runs once the record is committed
func (s *scanServiceImpl) completeAnalysis(ctx context.Context, record *entity.AnalysisRecord) {
	report := record.Analysis
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveAnalysis(report)
	}

	if report.CriticalAnomalies > 0 && s.deps.Notifier != nil {
		if err := s.deps.Notifier.NotifyCritical(ctx, record); err != nil {
			s.logger.Error("Failed to send critical anomaly alert", "analysis_id", record.ID, "error", err)
		}
	}

	s.logger.Info("Payroll analysis completed",
		"analysis_id", record.ID,
		"company_id", record.CompanyID,
		"period", record.Period,
		"entries", record.EntryCount,
		"anomalies", report.TotalAnomalies,
		"critical", report.CriticalAnomalies,
		"risk_score", report.OverallRiskScore)
}

// ImportPayroll parses an uploaded file and stores its admissible rows
func (s *scanServiceImpl) ImportPayroll(ctx context.Context, req ImportRequest) (*payroll.ImportResult, error) {
	result, err := s.parseUpload(ctx, req)
	if err != nil {
		return nil, err
	}

	err = s.deps.TxManager.WithTransaction(ctx, func(ctx context.Context) error {
		return s.saveImport(ctx, req, result)
	})
	if err != nil {
		return nil, err
	}

	s.completeImport(req, result)
	return result, nil
}

// ImportAndAnalyze imports a file then analyzes its admissible rows. The rows
// and the analysis are stored in one transaction, so a failed analysis leaves
// nothing behind.
func (s *scanServiceImpl) ImportAndAnalyze(ctx context.Context, req ImportRequest) (*ImportAnalysis, error) {
	result, err := s.parseUpload(ctx, req)
	if err != nil {
		return nil, err
	}

	out := &ImportAnalysis{Import: result}
	entries := result.Entries()
	if len(entries) == 0 {
		s.completeImport(req, result)
		s.logger.Info("No admissible payroll rows to analyze", "company_id", req.CompanyID, "filename", result.Filename)
		return out, nil
	}

	record, err := s.buildRecord(ctx, AnalyzeRequest{
		CompanyID:      req.CompanyID,
		Period:         req.Period,
		Entries:        entries,
		BaselinePeriod: req.BaselinePeriod,
	})
	if err != nil {
		return nil, err
	}

	err = s.deps.TxManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.saveImport(ctx, req, result); err != nil {
			return err
		}
		return s.saveRecord(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.completeImport(req, result)
	s.completeAnalysis(ctx, record)
	out.Analysis = record

	return out, nil
}

// parseUpload reads, parses and archives an upload
func (s *scanServiceImpl) parseUpload(ctx context.Context, req ImportRequest) (*payroll.ImportResult, error) {
	if req.CompanyID == "" {
		return nil, entity.ErrCompanyRequired
	}

	data, err := io.ReadAll(io.LimitReader(req.Content, payroll.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	result, err := s.deps.Parser.Parse(req.Filename, bytes.NewReader(data), req.Period)
	if err != nil {
		return nil, fmt.Errorf("failed to parse payroll file: %w", err)
	}

	s.archive(ctx, req, data)
	return result, nil
}

// saveImport stores the admissible rows grouped by period; it must run
// inside a transaction
func (s *scanServiceImpl) saveImport(ctx context.Context, req ImportRequest, result *payroll.ImportResult) error {
	byPeriod, order := groupByPeriod(result.Entries(), req.Period)
	for _, period := range order {
		if err := s.deps.PayrollRepo.SaveBatch(ctx, req.CompanyID, period, byPeriod[period]); err != nil {
			return fmt.Errorf("failed to save payroll entries for %s: %w", period, err)
		}
	}
	return nil
}

func (s *scanServiceImpl) completeImport(req ImportRequest, result *payroll.ImportResult) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveImportRows(entity.ImportStatusValid, result.Success)
		s.deps.Metrics.ObserveImportRows(entity.ImportStatusWarning, result.Warnings)
		s.deps.Metrics.ObserveImportRows(entity.ImportStatusError, result.Errors)
	}

	s.logger.Info("Payroll file imported",
		"company_id", req.CompanyID,
		"filename", result.Filename,
		"total", result.Total,
		"success", result.Success,
		"warnings", result.Warnings,
		"errors", result.Errors)
}

// GetAnalysis retrieves a stored analysis
func (s *scanServiceImpl) GetAnalysis(ctx context.Context, id string) (*entity.AnalysisRecord, error) {
	return s.deps.AnalysisRepo.GetByID(ctx, id)
}

// ListAnalyses lists stored analyses, newest first
func (s *scanServiceImpl) ListAnalyses(ctx context.Context, companyID string, limit, offset int) ([]*entity.AnalysisRecord, error) {
	return s.deps.AnalysisRepo.List(ctx, companyID, limit, offset)
}

// SeveritySummary counts stored anomalies per severity, every severity included
func (s *scanServiceImpl) SeveritySummary(ctx context.Context, companyID string) (map[entity.Severity]int, error) {
	counts, err := s.deps.AnalysisRepo.CountBySeverity(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize anomalies: %w", err)
	}

	summary := make(map[entity.Severity]int, len(entity.Severities))
	for _, severity := range entity.Severities {
		summary[severity] = counts[severity]
	}
	return summary, nil
}

// archive keeps the raw upload; failures are logged only
func (s *scanServiceImpl) archive(ctx context.Context, req ImportRequest, data []byte) {
	if s.deps.Archive == nil {
		return
	}

	period := req.Period
	if period == "" {
		period = entity.DefaultPayrollPeriod
	}
	name := s.deps.Now().UTC().Format("20060102T150405") + "_" + utils.SanitizeSegment(path.Base(req.Filename))
	archivePath := path.Join(utils.SanitizeSegment(req.CompanyID), utils.SanitizeSegment(period), name)

	if err := s.deps.Archive.Save(ctx, archivePath, data); err != nil {
		s.logger.Error("Failed to archive payroll upload", "company_id", req.CompanyID, "path", archivePath, "error", err)
	}
}

// groupByPeriod buckets entries by their own period, falling back to
// defaultPeriod, preserving first-seen order.
func groupByPeriod(entries []entity.PayrollEntry, defaultPeriod string) (map[string][]entity.PayrollEntry, []string) {
	groups := make(map[string][]entity.PayrollEntry)
	var order []string
	for _, e := range entries {
		period := e.Period
		if period == "" {
			period = defaultPeriod
		}
		if _, ok := groups[period]; !ok {
			order = append(order, period)
		}
		groups[period] = append(groups[period], e)
	}
	return groups, order
}
