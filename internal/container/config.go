// Package container provides dependency injection and lifecycle management
// for the Kaizen approval service.
package container

import (
	"fmt"
	"time"

	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	Workflow WorkflowConfig
	Storage  StorageConfig
	Server   ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// MigrationsDir is the path to migration files. Empty skips migrations.
	MigrationsDir string
}

// RedisConfig holds the settings cache connection.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// WorkflowConfig holds approval workflow settings.
type WorkflowConfig struct {
	// QuestionnairePath points at the questionnaire YAML. Empty uses the built-in catalog.
	QuestionnairePath string

	// DefaultThresholds apply until an admin stores cost thresholds
	DefaultThresholds entity.CostThresholds

	// Currency is applied to requests that do not name one
	Currency string
}

// StorageConfig holds file storage settings.
type StorageConfig struct {
	// SheetDir is the base directory for archived approval sheets
	SheetDir string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/kaizen.db",
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: 5 * time.Minute,
			MigrationsDir:   "migrations",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			TTL:  5 * time.Minute,
		},
		Workflow: WorkflowConfig{
			DefaultThresholds: entity.DefaultCostThresholds(),
			Currency:          entity.DefaultCurrency,
		},
		Storage: StorageConfig{
			SheetDir: "data/approval_sheets",
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			Mode:         "release",
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
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if err := c.Workflow.DefaultThresholds.Validate(); err != nil {
		return fmt.Errorf("workflow thresholds: %w", err)
	}
	if c.Storage.SheetDir == "" {
		return fmt.Errorf("storage.sheet_dir is required")
	}
	return nil
}
