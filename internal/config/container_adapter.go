package config

import (
	"github.com/kaizenflow/kaizen-approvals/internal/container"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Redis: container.RedisConfig{
			Enabled:  c.Redis.Enabled,
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			TTL:      c.Redis.TTL,
		},
		Workflow: container.WorkflowConfig{
			QuestionnairePath: c.Workflow.QuestionnairePath,
			DefaultThresholds: entity.CostThresholds{
				HodLimit: c.Workflow.DefaultHodLimit,
				AgmLimit: c.Workflow.DefaultAgmLimit,
			},
			Currency: c.Workflow.Currency,
		},
		Storage: container.StorageConfig{
			SheetDir: c.Storage.SheetDir,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			Mode:         c.Server.Mode,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
		},
	}
}
