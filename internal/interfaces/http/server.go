// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/kaizenflow/kaizen-approvals/internal/application/service"
	"github.com/kaizenflow/kaizen-approvals/internal/application/workflow"
	"github.com/kaizenflow/kaizen-approvals/internal/domain/approval"
	"github.com/kaizenflow/kaizen-approvals/pkg/utils"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Pinger reports storage reachability for the health endpoint
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		Mode:         gin.ReleaseMode,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Services are the application services the HTTP adapter exposes
type Services struct {
	Requests service.RequestService
	Engine   workflow.Engine
	Settings service.SettingsService
	Sheets   service.ApprovalSheetService
	Catalog  approval.Catalog
	DB       Pinger
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	logger     Logger
}

var registerBindings sync.Once

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, logger Logger) *Server {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	registerBindings.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			if err := utils.RegisterValidations(v); err != nil {
				logger.Error("Failed to register binding validations", "error", err)
			}
		}
	})

	server := &Server{
		config:   config,
		router:   gin.New(),
		services: services,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(corsMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
			"user_id", c.GetHeader(HeaderUserID),
		)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.logger)

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api", actorMiddleware())
	{
		api.GET("/departments", h.ListDepartments)
		api.GET("/questionnaires/:department", h.GetQuestionnaire)

		api.GET("/requests", h.ListRequests)
		api.POST("/requests", h.CreateRequest)
		api.GET("/requests/:code", h.GetRequest)
		api.POST("/requests/:code/submit", h.SubmitDraft)

		kaizen := api.Group("/kaizen/:code")
		{
			kaizen.POST("/own-hod-decision", h.OwnHodDecision)
			kaizen.POST("/manager-decision", h.ManagerDecision)
			kaizen.POST("/cross-hod-decision", h.CrossHodDecision)
			kaizen.POST("/department-evaluation", h.SubmitEvaluation)
			kaizen.GET("/department-evaluations", h.ListEvaluations)
			kaizen.POST("/agm-decision", h.AgmDecision)
			kaizen.POST("/gm-decision", h.GmDecision)
			kaizen.GET("/audit", h.AuditTrail)
			kaizen.GET("/approval-sheet", h.ApprovalSheet)
		}

		api.GET("/settings/thresholds", h.GetThresholds)
		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.UpdateSettings)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or serving fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
