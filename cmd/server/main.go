package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/kaizenflow/kaizen-approvals/internal/config"
	"github.com/kaizenflow/kaizen-approvals/internal/container"
	httpapi "github.com/kaizenflow/kaizen-approvals/internal/interfaces/http"
	"github.com/kaizenflow/kaizen-approvals/pkg/utils"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := os.Getenv("KAIZEN_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Kaizen approval service",
		zap.String("config", configPath),
		zap.Int("port", cfg.Server.Port))

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Container shutdown failed", zap.Error(err))
		}
	}()

	services := c.Services()
	srv := httpapi.NewServer(httpapi.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		Mode:         cfg.Server.Mode,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, httpapi.Services{
		Requests: services.Requests,
		Engine:   c.WorkflowEngine(),
		Settings: services.Settings,
		Sheets:   services.Sheets,
		Catalog:  c.Catalog(),
		DB:       c.Database(),
	}, utils.NewKVLogger(logger.Named("http")))

	// Start blocks until the signal context is cancelled
	if err := srv.Start(ctx); err != nil {
		logger.Error("HTTP server stopped with error", zap.Error(err))
		return
	}

	logger.Info("Server exited successfully")
}
