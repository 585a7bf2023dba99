// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/textextract/backend/internal/models"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Runner       Runner
	History      HistoryRecorder // optional
	Kinds        []models.FileKind
	HistoryLimit int
	Version      string
	Logger       *slog.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Info    InfoHandler
	Extract ExtractHandler
	History HistoryHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps.Version),
		Info:    NewInfoHandler(deps.Version, deps.Kinds),
		Extract: NewExtractHandler(deps.Runner, deps.History, deps.Logger),
		History: NewHistoryHandler(deps.History, deps.HistoryLimit),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/", handlers.Info.HandleInfo)
	e.GET("/health", handlers.Health.HandleHealth)

	e.POST("/extract-text", handlers.Extract.HandleExtractText)

	apiGroup := e.Group("/api")
	apiGroup.GET("/extractions", handlers.History.HandleRecentExtractions)
}

// MiddlewareOptions selects the optional middleware
type MiddlewareOptions struct {
	ExposeErrorDetails bool
	RequestLogging     bool
	BodyLimit          string
	EnableCORS         bool
	AllowOrigins       []string
	EnableGzip         bool
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, opts MiddlewareOptions, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	httpLog := logger.With("component", "http")

	e.HTTPErrorHandler = NewErrorHandler(opts.ExposeErrorDetails, logger)

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))

	if opts.RequestLogging {
		e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			Skipper: func(c echo.Context) bool {
				return c.Request().URL.Path == "/health"
			},
			LogMethod:    true,
			LogURI:       true,
			LogStatus:    true,
			LogLatency:   true,
			LogRequestID: true,
			LogError:     true,
			HandleError:  true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				attrs := []any{
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"request_id", v.RequestID,
				}
				if v.Error != nil {
					httpLog.Warn("request failed", append(attrs, "error", v.Error)...)
					return nil
				}
				httpLog.Info("request", attrs...)
				return nil
			},
		}))
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			httpLog.Error("panic recovered", "uri", c.Request().RequestURI, "error", err, "stack", string(stack))
			return err
		},
	}))

	if opts.EnableGzip {
		e.Use(middleware.Gzip())
	}

	if opts.BodyLimit != "" {
		e.Use(middleware.BodyLimit(opts.BodyLimit))
	}

	if opts.EnableCORS {
		origins := opts.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		}))
	}
}
