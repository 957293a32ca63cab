// Package container provides dependency injection and lifecycle management
// for the ScanPaie payroll anomaly service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/scanpaie/internal/ai"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	Database DatabaseConfig
	ScanPaie ScanPaieConfig
	Lark     LarkConfig
	OpenAI   OpenAIConfig
	Storage  StorageConfig
	Server   ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file, ":memory:" for a private in-memory database
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ScanPaieConfig holds detector and analysis pipeline settings.
type ScanPaieConfig struct {
	// Locale of descriptions and recommendations (fr or en)
	Locale string

	// Workers and ChunkSize control parallel evaluation of large batches
	Workers   int
	ChunkSize int

	// AlertOnCritical sends a Lark alert when an analysis has critical anomalies
	AlertOnCritical bool

	// AlertMaxItems bounds the anomalies listed on an alert card
	AlertMaxItems int

	// Narrative asks OpenAI for a short summary of each report
	Narrative bool
}

// LarkConfig holds Lark API settings.
type LarkConfig struct {
	Enabled     bool
	AppID       string
	AppSecret   string
	AlertChatID string
	BaseURL     string
	APITimeout  time.Duration
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	Enabled     bool
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	PromptsPath string
}

// StorageConfig holds file storage settings.
type StorageConfig struct {
	// UploadDir keeps a copy of every imported payroll file; empty disables it
	UploadDir string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/scanpaie.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		ScanPaie: ScanPaieConfig{
			Locale:          ai.LocaleFR,
			Workers:         4,
			ChunkSize:       500,
			AlertOnCritical: true,
			AlertMaxItems:   5,
			Narrative:       true,
		},
		Lark: LarkConfig{
			APITimeout: 30 * time.Second,
		},
		OpenAI: OpenAIConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			MaxTokens:   400,
			Timeout:     60 * time.Second,
		},
		Storage: StorageConfig{
			UploadDir: "data/uploads",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if !ai.IsSupportedLocale(c.ScanPaie.Locale) {
		return fmt.Errorf("scanpaie.locale %q is not supported", c.ScanPaie.Locale)
	}
	if c.ScanPaie.Workers <= 0 {
		return fmt.Errorf("scanpaie.workers must be positive")
	}
	if c.ScanPaie.ChunkSize <= 0 {
		return fmt.Errorf("scanpaie.chunk_size must be positive")
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required")
		}
		if c.Lark.AlertChatID == "" {
			return fmt.Errorf("lark.alert_chat_id is required")
		}
	}

	if c.OpenAI.Enabled && c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}

	return nil
}
