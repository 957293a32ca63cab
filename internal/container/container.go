package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/scanpaie/internal/ai"
	"github.com/garyjia/scanpaie/internal/application/port"
	"github.com/garyjia/scanpaie/internal/application/service"
	"github.com/garyjia/scanpaie/pkg/database"
	"go.uber.org/zap"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	db           *database.DB
	txManager    port.TransactionManager
	repositories *RepositoryBundle

	// Infrastructure - External
	narrator port.ReportNarrator
	notifier port.AlertNotifier
	archive  port.FileStorage

	// Application
	detector    *ai.ScanPaieDetector
	scanService service.ScanService

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. External clients (Lark, OpenAI) and upload storage
// 3. Detector and application services
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	if err := c.initExternalClients(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize external clients: %w", err)
	}
	c.logger.Info("External clients initialized")

	if err := c.initServices(); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	if err := c.db.Health(ctx); err != nil {
		c.closeDatabase()
		return fmt.Errorf("database health check failed: %w", err)
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var err error
	if c.db != nil {
		if err = c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			err = fmt.Errorf("close database: %w", err)
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if err == nil {
		c.logger.Info("Container closed successfully")
	}
	return err
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.db == nil:
		status.Components["database"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	default:
		if err := c.db.Health(ctx); err != nil {
			status.Components["database"] = ComponentHealth{Healthy: false, Message: fmt.Sprintf("ping failed: %v", err)}
			status.Overall = false
		} else {
			status.Components["database"] = ComponentHealth{Healthy: true}
		}
	}

	if c.scanService == nil {
		status.Components["scan_service"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	} else {
		status.Components["scan_service"] = ComponentHealth{Healthy: true}
	}

	status.Components["narrative"] = optionalComponent(c.narrator != nil)
	status.Components["alerts"] = optionalComponent(c.notifier != nil)

	return status
}

func optionalComponent(enabled bool) ComponentHealth {
	if enabled {
		return ComponentHealth{Healthy: true, Message: "enabled"}
	}
	return ComponentHealth{Healthy: true, Message: "disabled"}
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.db = dbBundle.DB
	c.txManager = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(dbBundle.TransactionMgr, c.logger)
	if err != nil {
		c.closeDatabase()
		return err
	}

	c.repositories = repos
	return nil
}

// initExternalClients initializes the optional narrator, notifier and archive.
func (c *Container) initExternalClients() error {
	narrator, err := ProvideNarrator(&c.config.OpenAI, &c.config.ScanPaie, c.logger)
	if err != nil {
		return err
	}
	c.narrator = narrator
	c.notifier = ProvideAlertNotifier(&c.config.Lark, &c.config.ScanPaie, c.logger)
	c.archive = ProvideStorage(&c.config.Storage, c.logger)

	return nil
}

// initServices initializes the detector and the scan service.
func (c *Container) initServices() error {
	c.detector = ProvideDetector(&c.config.ScanPaie)

	scanService, err := ProvideScanService(&ScanDeps{
		Detector:  c.detector,
		Repos:     c.repositories,
		TxManager: c.txManager,
		Narrator:  c.narrator,
		Notifier:  c.notifier,
		Archive:   c.archive,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}

	c.scanService = scanService
	return nil
}

func (c *Container) closeDatabase() {
	if c.db == nil {
		return
	}
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close database", zap.Error(err))
	}
	c.db = nil
}

// Getters for accessing container components

// DB returns the database connection.
func (c *Container) DB() *database.DB {
	return c.db
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() port.TransactionManager {
	return c.txManager
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Detector returns the anomaly detector.
func (c *Container) Detector() *ai.ScanPaieDetector {
	return c.detector
}

// ScanService returns the scan service.
func (c *Container) ScanService() service.ScanService {
	return c.scanService
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
