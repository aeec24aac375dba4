// Package server implements the estimator REST API.
//
// Handlers are registered onto an Echo instance supplied by the caller
// (pkg/server in the daemon, a bare echo.New in tests). Every non-2xx
// response body is api.ErrorResponse, including errors raised by Echo
// itself, so clients can always decode {"error": ...}.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/estimator/internal/estimate"
	"github.com/fyrsmithlabs/estimator/internal/logging"
	"github.com/fyrsmithlabs/estimator/internal/scopecfg"
	"github.com/fyrsmithlabs/estimator/internal/store"
	"github.com/fyrsmithlabs/estimator/pkg/api"
)

// Config holds REST surface configuration.
type Config struct {
	// ProjectsDir is where uploaded documents are stored, one
	// subdirectory per project.
	ProjectsDir string

	// MaxUploadBytes caps request bodies.
	MaxUploadBytes int64
}

// Server holds the handlers and their dependencies.
type Server struct {
	store    *store.Store
	scope    *scopecfg.Folder
	pipeline *estimate.Service
	logger   *logging.Logger
	metrics  *Metrics
	config   Config
}

// New creates the REST surface.
func New(st *store.Store, scope *scopecfg.Folder, pipeline *estimate.Service, logger *logging.Logger, cfg Config) (*Server, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if scope == nil {
		return nil, fmt.Errorf("scope config folder cannot be nil")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("estimation pipeline cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg.ProjectsDir == "" {
		cfg.ProjectsDir = "projects"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 16 * 1024 * 1024
	}

	return &Server{
		store:    st,
		scope:    scope,
		pipeline: pipeline,
		logger:   logger,
		metrics:  NewMetrics(),
		config:   cfg,
	}, nil
}

// Metrics exposes the daemon metrics so the watcher loop can feed the
// gauges.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Register mounts middleware and all routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.metrics.RequestMiddleware())
	e.Use(s.requestLogger())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%d", s.config.MaxUploadBytes)))

	g := e.Group("/api")
	g.GET("/health", s.handleHealth)
	g.GET("/models", s.handleModels)

	g.GET("/projects", s.handleListProjects)
	g.POST("/projects", s.handleCreateProject)
	g.GET("/projects/:id", s.handleGetProject)
	g.DELETE("/projects/:id", s.handleDeleteProject)
	g.GET("/projects/:id/download-csv", s.handleDownloadCSV)

	g.GET("/scope-config", s.handleScopeConfigStatus)
	g.POST("/scope-config", s.handleUploadScopeConfig)
	g.DELETE("/scope-config", s.handleDeleteScopeConfig)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// requestLogger logs each request with its correlation ID. Errors are
// committed through the error handler first so the logged status is the
// one the client saw.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			ctx := c.Request().Context()
			if rid := c.Response().Header().Get(echo.HeaderXRequestID); logging.ValidID(rid) {
				ctx = logging.WithRequestID(ctx, rid)
				c.SetRequest(c.Request().WithContext(ctx))
			}

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			s.logger.Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)))

			return err
		}
	}
}

// errorHandler renders every error Echo surfaces (unknown routes, body
// limit, panics) as api.ErrorResponse.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	} else {
		s.logger.Error(c.Request().Context(), "unhandled request error", zap.Error(err))
	}

	if err := c.JSON(code, api.ErrorResponse{Error: message}); err != nil {
		s.logger.Error(c.Request().Context(), "write error response", zap.Error(err))
	}
}

// internalError logs err and answers 500 with its message, matching the
// error bodies the rest of the API produces.
func (s *Server) internalError(c echo.Context, err error) error {
	s.logger.Error(c.Request().Context(), "request failed",
		zap.String("uri", c.Request().RequestURI),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
}

// handleHealth answers GET /api/health.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
}

// handleModels answers GET /api/models with the provider's model
// listing.
func (s *Server) handleModels(c echo.Context) error {
	resp, err := s.pipeline.Provider().Models(c.Request().Context())
	if err != nil {
		return s.internalError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
