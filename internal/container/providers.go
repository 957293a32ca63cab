package container

import (
	"fmt"

	"github.com/garyjia/scanpaie/internal/ai"
	"github.com/garyjia/scanpaie/internal/application/port"
	"github.com/garyjia/scanpaie/internal/application/service"
	infraLark "github.com/garyjia/scanpaie/internal/infrastructure/external/lark"
	"github.com/garyjia/scanpaie/internal/infrastructure/external/openai"
	"github.com/garyjia/scanpaie/internal/infrastructure/persistence/repository"
	"github.com/garyjia/scanpaie/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/scanpaie/internal/infrastructure/storage"
	"github.com/garyjia/scanpaie/internal/metrics"
	"github.com/garyjia/scanpaie/internal/payroll"
	"github.com/garyjia/scanpaie/migrations"
	"github.com/garyjia/scanpaie/pkg/database"
	"github.com/garyjia/scanpaie/pkg/utils"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Payroll  port.PayrollRepository
	Analysis port.AnalysisRepository
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).RunMigrations(migrations.GetFS()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories on the transaction manager.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Payroll:  repository.NewPayrollRepository(db, logger),
		Analysis: repository.NewAnalysisRepository(db, logger),
	}, nil
}

// ProvideDetector creates the payroll anomaly detector.
func ProvideDetector(cfg *ScanPaieConfig) *ai.ScanPaieDetector {
	return ai.NewScanPaieDetector(
		ai.WithLocale(cfg.Locale),
		ai.WithParallelism(cfg.Workers, cfg.ChunkSize),
	)
}

// ProvideNarrator creates the OpenAI narrator, or nil when narratives are disabled.
func ProvideNarrator(cfg *OpenAIConfig, scan *ScanPaieConfig, logger *zap.Logger) (port.ReportNarrator, error) {
	if !cfg.Enabled || !scan.Narrative {
		logger.Info("Analysis narrative disabled")
		return nil, nil
	}

	prompts, err := openai.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	return openai.NewNarrator(openai.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
		Locale:      scan.Locale,
		Prompts:     prompts,
	}, logger), nil
}

// ProvideAlertNotifier creates the Lark alert notifier, or nil when alerts are disabled.
func ProvideAlertNotifier(cfg *LarkConfig, scan *ScanPaieConfig, logger *zap.Logger) port.AlertNotifier {
	if !cfg.Enabled || !scan.AlertOnCritical {
		logger.Info("Critical anomaly alerts disabled")
		return nil
	}

	client := infraLark.NewClient(infraLark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.APITimeout,
	})
	messenger := infraLark.NewMessenger(client, logger)

	return infraLark.NewAlertNotifier(messenger, cfg.AlertChatID, scan.Locale, scan.AlertMaxItems, logger)
}

// ProvideStorage creates the upload archive, or nil when it is disabled.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) port.FileStorage {
	if cfg.UploadDir == "" {
		return nil
	}
	return storage.NewLocalFileStorage(cfg.UploadDir, logger)
}

// ScanDeps groups the collaborators of the scan service.
type ScanDeps struct {
	Detector  service.Detector
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	Narrator  port.ReportNarrator
	Notifier  port.AlertNotifier
	Archive   port.FileStorage
	Logger    *zap.Logger
}

// ProvideScanService creates the scan service.
func ProvideScanService(deps *ScanDeps) (service.ScanService, error) {
	if deps == nil || deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}

	return service.NewScanService(service.ScanDependencies{
		Detector:     deps.Detector,
		Parser:       payroll.NewImporter(deps.Logger),
		PayrollRepo:  deps.Repos.Payroll,
		AnalysisRepo: deps.Repos.Analysis,
		TxManager:    deps.TxManager,
		Narrator:     deps.Narrator,
		Notifier:     deps.Notifier,
		Metrics:      metrics.NewRecorder(),
		Archive:      deps.Archive,
	}, utils.NewKeyValueLogger(deps.Logger)), nil
}
