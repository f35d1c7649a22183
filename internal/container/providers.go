package container

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/kaizenflow/kaizen-approvals/internal/application/dispatcher"
	"github.com/kaizenflow/kaizen-approvals/internal/application/port"
	"github.com/kaizenflow/kaizen-approvals/internal/application/service"
	"github.com/kaizenflow/kaizen-approvals/internal/application/workflow"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/approval"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/entity"
	"github.com/kaizenflow/kaizen-approvals/internal/infrastructure/cache"
	"github.com/kaizenflow/kaizen-approvals/internal/infrastructure/catalog"
	"github.com/kaizenflow/kaizen-approvals/internal/infrastructure/notify"
	"github.com/kaizenflow/kaizen-approvals/internal/infrastructure/persistence/repository"
	"github.com/kaizenflow/kaizen-approvals/internal/infrastructure/persistence/sqlite"
	"github.com/kaizenflow/kaizen-approvals/internal/infrastructure/storage"
	"github.com/kaizenflow/kaizen-approvals/pkg/database"
	"github.com/kaizenflow/kaizen-approvals/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Requests    port.RequestRepository
	Managers    port.ManagerDecisionRepository
	Hods        port.HodDecisionRepository
	Executives  port.ExecutiveDecisionRepository
	Evaluations port.EvaluationRepository
	Audit       port.AuditRepository
	Settings    port.SettingsRepository
}

// SettingsBundle holds the settings service and the provider the engine reads through.
// Provider is the Redis cache when enabled, otherwise the service itself.
type SettingsBundle struct {
	Service  service.SettingsService
	Provider port.SettingsProvider
	Redis    *redis.Client
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Requests      service.RequestService
	Settings      service.SettingsService
	Sheets        service.ApprovalSheetService
	Notifications *service.NotificationSubscriber
}

// ProvideDatabase opens the SQLite database, runs pending migrations and
// wraps the connection in the context-carried transaction manager.
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

	if cfg.MigrationsDir != "" {
		if err := database.NewMigrator(db, logger).RunMigrations(cfg.MigrationsDir); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Requests:    repository.NewRequestRepository(db.DB, logger),
		Managers:    repository.NewManagerDecisionRepository(db.DB, logger),
		Hods:        repository.NewHodDecisionRepository(db.DB, logger),
		Executives:  repository.NewExecutiveDecisionRepository(db.DB, logger),
		Evaluations: repository.NewEvaluationRepository(db.DB, logger),
		Audit:       repository.NewAuditRepository(db.DB, logger),
		Settings:    repository.NewSettingsRepository(db.DB, logger),
	}, nil
}

// ProvideCatalog loads the questionnaire file, or the built-in catalog when no path is configured.
func ProvideCatalog(cfg *WorkflowConfig, logger *zap.Logger) (approval.Catalog, error) {
	if cfg.QuestionnairePath == "" {
		logger.Info("Using built-in questionnaire catalog")
		return approval.DefaultCatalog(), nil
	}

	c, err := catalog.Load(cfg.QuestionnairePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load questionnaires: %w", err)
	}
	logger.Info("Questionnaire catalog loaded",
		zap.String("path", cfg.QuestionnairePath),
		zap.Int("departments", len(c)))
	return c, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(utils.NewKVLogger(logger.Named("dispatcher"))),
	), nil
}

// settingsInvalidator forwards to the cache once it exists; the cache wraps the
// service that needs the invalidator, so the link is made after both are built.
type settingsInvalidator struct {
	cache *cache.SettingsCache
}

func (i *settingsInvalidator) Invalidate(ctx context.Context) error {
	if i.cache == nil {
		return nil
	}
	return i.cache.Invalidate(ctx)
}

// ProvideSettings creates the settings service and, when Redis is enabled, the cache in front of it.
func ProvideSettings(cfg *Config, repos *RepositoryBundle, txManager port.TransactionManager, d dispatcher.Dispatcher, logger *zap.Logger) (*SettingsBundle, error) {
	if repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}

	defaults := entity.Settings{
		CostThresholds: cfg.Workflow.DefaultThresholds,
		SLA:            entity.DefaultSLASettings(),
		Notifications:  entity.DefaultNotificationSettings(),
	}

	inv := &settingsInvalidator{}
	svc := service.NewSettingsService(repos.Settings, repos.Audit, txManager, defaults,
		utils.NewKVLogger(logger.Named("settings")),
		service.WithSettingsDispatcher(d),
		service.WithInvalidator(inv),
	)

	bundle := &SettingsBundle{Service: svc, Provider: svc}
	if !cfg.Redis.Enabled {
		return bundle, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		// reads degrade to the database until Redis answers
		logger.Warn("Redis unreachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	inv.cache = cache.NewSettingsCache(client, svc, cfg.Redis.TTL, logger.Named("settings_cache"))
	bundle.Provider = inv.cache
	bundle.Redis = client
	return bundle, nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Settings   *SettingsBundle
	Workflow   *WorkflowConfig
	Storage    *StorageConfig
	Logger     *zap.Logger
}

// ProvideServices creates all application services and registers the notification subscriber.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := utils.NewKVLogger(deps.Logger.Named("service"))

	requests := service.NewRequestService(service.RequestStores{
		Requests:    deps.Repos.Requests,
		Managers:    deps.Repos.Managers,
		Hods:        deps.Repos.Hods,
		Executives:  deps.Repos.Executives,
		Evaluations: deps.Repos.Evaluations,
		Audit:       deps.Repos.Audit,
	}, deps.TxManager, deps.Dispatcher, deps.Workflow.Currency, serviceLogger)

	archive := storage.NewSheetArchive(deps.Storage.SheetDir, deps.Logger.Named("sheet_archive"))

	notifications := service.NewNotificationSubscriber(
		deps.Settings.Provider,
		notify.NewLogNotifier(deps.Logger),
		serviceLogger,
	)
	notifications.Register(deps.Dispatcher)

	return &ServiceBundle{
		Requests:      requests,
		Settings:      deps.Settings.Service,
		Sheets:        service.NewApprovalSheetService(requests, archive, serviceLogger),
		Notifications: notifications,
	}, nil
}

// WorkflowDeps holds dependencies required for creating the workflow engine.
type WorkflowDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Settings   port.SettingsProvider
	Dispatcher dispatcher.Dispatcher
	Catalog    approval.Catalog
	Logger     *zap.Logger
}

// ProvideWorkflowEngine creates the workflow engine.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.Engine, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Settings == nil {
		return nil, fmt.Errorf("settings provider is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	return workflow.NewEngine(workflow.Stores{
		Requests:    deps.Repos.Requests,
		Managers:    deps.Repos.Managers,
		Hods:        deps.Repos.Hods,
		Executives:  deps.Repos.Executives,
		Evaluations: deps.Repos.Evaluations,
		Audit:       deps.Repos.Audit,
	}, deps.TxManager, deps.Settings,
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithCatalog(deps.Catalog),
		workflow.WithLogger(utils.NewKVLogger(deps.Logger.Named("workflow"))),
	), nil
}
