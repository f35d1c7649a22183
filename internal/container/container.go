package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kaizenflow/kaizen-approvals/internal/application/dispatcher"
	"github.com/kaizenflow/kaizen-approvals/internal/application/port"
	"github.com/kaizenflow/kaizen-approvals/internal/application/workflow"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/approval"
	"github.com/kaizenflow/kaizen-approvals/internal/infrastructure/persistence/sqlite"
	"github.com/kaizenflow/kaizen-approvals/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure
	database     *database.DB
	txManager    *sqlite.DB
	repositories *RepositoryBundle
	settings     *SettingsBundle
	catalog      approval.Catalog

	// Application
	dispatcher dispatcher.Dispatcher
	engine     workflow.Engine
	services   *ServiceBundle

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

// Start initializes all components in dependency order:
// 1. Database, migrations and repositories
// 2. Questionnaire catalog
// 3. Event dispatcher
// 4. Settings service and cache
// 5. Workflow engine
// 6. Application services and subscribers
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

	cat, err := ProvideCatalog(&c.config.Workflow, c.logger)
	if err != nil {
		c.closeDatabase()
		return err
	}
	c.catalog = cat

	if c.dispatcher, err = ProvideDispatcher(c.logger); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize dispatcher: %w", err)
	}

	if c.settings, err = ProvideSettings(c.config, c.repositories, c.txManager, c.dispatcher, c.logger); err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize settings: %w", err)
	}
	c.logger.Info("Settings initialized", zap.Bool("redis_cache", c.settings.Redis != nil))

	c.engine, err = ProvideWorkflowEngine(&WorkflowDeps{
		Repos:      c.repositories,
		TxManager:  c.txManager,
		Settings:   c.settings.Provider,
		Dispatcher: c.dispatcher,
		Catalog:    c.catalog,
		Logger:     c.logger,
	})
	if err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize workflow engine: %w", err)
	}
	c.logger.Info("Workflow engine initialized")

	c.services, err = ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.txManager,
		Dispatcher: c.dispatcher,
		Settings:   c.settings,
		Workflow:   &c.config.Workflow,
		Storage:    &c.config.Storage,
		Logger:     c.logger,
	})
	if err != nil {
		c.closeDatabase()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if c.settings != nil && c.settings.Redis != nil {
		if err := c.settings.Redis.Close(); err != nil {
			c.logger.Error("Failed to close redis client", zap.Error(err))
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	if c.database != nil {
		if err := c.database.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	mark := func(name string, err error) {
		if err != nil {
			status.Components[name] = ComponentHealth{Healthy: false, Message: err.Error()}
			status.Overall = false
			return
		}
		status.Components[name] = ComponentHealth{Healthy: true}
	}

	if c.database == nil {
		mark("database", fmt.Errorf("not initialized"))
	} else {
		mark("database", c.database.PingContext(ctx))
	}

	// an unreachable cache degrades reads but does not fail the service
	if c.settings != nil && c.settings.Redis != nil {
		if err := c.settings.Redis.Ping(ctx).Err(); err != nil {
			status.Components["redis"] = ComponentHealth{Healthy: false, Message: err.Error()}
		} else {
			status.Components["redis"] = ComponentHealth{Healthy: true}
		}
	}

	if c.dispatcher == nil {
		mark("dispatcher", fmt.Errorf("not initialized"))
	} else {
		mark("dispatcher", nil)
	}

	return status
}

func (c *Container) initDatabase() error {
	bundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.database = bundle.DB
	c.txManager = bundle.TransactionMgr

	repos, err := ProvideRepositories(c.database, c.logger)
	if err != nil {
		c.closeDatabase()
		return err
	}
	c.repositories = repos
	return nil
}

func (c *Container) closeDatabase() {
	if c.database != nil {
		_ = c.database.Close()
		c.database = nil
	}
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.txManager
}

// Database returns the underlying database connection.
func (c *Container) Database() *database.DB {
	return c.database
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Catalog returns the questionnaire catalog in use.
func (c *Container) Catalog() approval.Catalog {
	return c.catalog
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// WorkflowEngine returns the workflow engine.
func (c *Container) WorkflowEngine() workflow.Engine {
	return c.engine
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
