package config

import (
	"github.com/garyjia/scanpaie/internal/container"
	"github.com/garyjia/scanpaie/pkg/utils"
)

// ToContainerConfig converts the application Config to a container.Config.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		ScanPaie: container.ScanPaieConfig{
			Locale:          c.ScanPaie.Locale,
			Workers:         c.ScanPaie.Workers,
			ChunkSize:       c.ScanPaie.ChunkSize,
			AlertOnCritical: c.ScanPaie.AlertOnCritical,
			AlertMaxItems:   c.ScanPaie.AlertMaxItems,
			Narrative:       c.ScanPaie.Narrative,
		},
		Lark: container.LarkConfig{
			Enabled:     c.Lark.Enabled,
			AppID:       c.Lark.AppID,
			AppSecret:   c.Lark.AppSecret,
			AlertChatID: c.Lark.AlertChatID,
			BaseURL:     c.Lark.BaseURL,
			APITimeout:  c.Lark.APITimeout,
		},
		OpenAI: container.OpenAIConfig{
			Enabled:     c.OpenAI.Enabled,
			APIKey:      c.OpenAI.APIKey,
			BaseURL:     c.OpenAI.BaseURL,
			Model:       c.OpenAI.Model,
			Temperature: c.OpenAI.Temperature,
			MaxTokens:   c.OpenAI.MaxTokens,
			Timeout:     c.OpenAI.Timeout,
			PromptsPath: c.OpenAI.PromptsPath,
		},
		Storage: container.StorageConfig{
			UploadDir: c.Storage.UploadDir,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
	}
}

// ToLoggerConfig converts the logger section for utils.NewLogger.
func (c *Config) ToLoggerConfig() utils.LoggerConfig {
	return utils.LoggerConfig{
		Level:      c.Logger.Level,
		OutputPath: c.Logger.OutputPath,
		Format:     c.Logger.Format,
	}
}
