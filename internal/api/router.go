package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/atomm/taskpilot/internal/api/handler"
	"github.com/atomm/taskpilot/internal/api/middleware"
	"github.com/atomm/taskpilot/internal/core/audit"
	"github.com/atomm/taskpilot/internal/core/domain"
	"github.com/atomm/taskpilot/internal/core/ports"
	"github.com/atomm/taskpilot/internal/core/service"
	"github.com/atomm/taskpilot/internal/core/session"
	"github.com/atomm/taskpilot/pkg/logger"
)

// Deps are the long-lived collaborators the router wires into handlers.
type Deps struct {
	Registry  *session.Registry
	Store     ports.RecordStore
	Directory ports.SessionDirectory
	Settings  ports.SettingsRepository
	JWTSecret string
	TokenTTL  time.Duration
	Logger    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(echoprometheus.NewMiddleware("taskpilot"))

	// --- Dependencies ---
	trail := audit.NewTrail()
	authService := service.NewAuthService(d.Store, d.Registry, d.JWTSecret, d.TokenTTL, d.Logger)
	taskService := service.NewTaskService(trail, d.Logger)
	reportService := service.NewReportService()
	auditService := service.NewAuditService()
	fileService := service.NewFileService(d.Store, d.Logger)
	messageService := service.NewMessageService(d.Store, d.Logger)
	settingsService := service.NewSettingsService(d.Settings, trail, d.Logger)

	authHandler := handler.NewAuthHandler(authService, d.Logger)
	taskHandler := handler.NewTaskHandler(taskService, d.Logger)
	reportHandler := handler.NewReportHandler(reportService)
	auditHandler := handler.NewAuditHandler(auditService)
	fileHandler := handler.NewFileHandler(fileService)
	messageHandler := handler.NewMessageHandler(messageService)
	settingsHandler := handler.NewSettingsHandler(settingsService, d.Logger)
	healthHandler := handler.NewHealthHandler(map[string]handler.Pinger{
		"record_store":      d.Store,
		"session_directory": d.Directory,
	})

	authMiddleware := middleware.Auth(d.JWTSecret, d.Registry)
	managers := middleware.RBAC(domain.RoleAdmin, domain.RoleManager)
	admins := middleware.RBAC(domain.RoleAdmin)

	// --- Public routes ---
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/logout", authHandler.Logout, authMiddleware)

	e.GET("/health", healthHandler.Liveness)        // liveness  – is the process alive?
	e.GET("/health/ready", healthHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Authenticated routes ---
	v1 := e.Group("/v1", authMiddleware)
	v1.GET("/me", authHandler.Me)

	v1.GET("/tasks", taskHandler.List)
	v1.POST("/tasks", taskHandler.Create, managers)
	v1.GET("/tasks/export", reportHandler.Export, managers)
	v1.POST("/tasks/bulk/complete", taskHandler.BulkComplete, managers)
	v1.POST("/tasks/bulk/reassign", taskHandler.BulkReassign, managers)
	v1.PATCH("/tasks/:id", taskHandler.Edit, admins)
	v1.PUT("/tasks/:id/status", taskHandler.UpdateStatus)

	v1.GET("/dashboard", reportHandler.Dashboard)
	v1.GET("/analytics", reportHandler.Analytics)
	v1.GET("/reports/tasks", reportHandler.TaskReport)

	v1.GET("/audit", auditHandler.List)
	v1.GET("/audit/:id", auditHandler.Get)

	v1.GET("/files", fileHandler.List)
	v1.POST("/files", fileHandler.Upload)
	v1.GET("/messages", messageHandler.List)
	v1.POST("/messages", messageHandler.Send)

	v1.GET("/settings", settingsHandler.Get)
	v1.PUT("/settings", settingsHandler.Put)
	v1.POST("/settings/reset", settingsHandler.Reset)

	return e
}

// requestLogger writes one structured line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	log = logger.Component(log, "http")
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
