// Package server hosts the estimator HTTP listener.
//
// It owns the lifecycle only: the REST handlers live in
// internal/server and are registered onto Echo() by the daemon before
// Start. The server shuts down gracefully when its context is
// cancelled.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/estimator/internal/config"
)

// Server wraps an Echo instance with graceful start and stop.
type Server struct {
	config config.ServerConfig
	echo   *echo.Echo
}

// New creates the HTTP host for the given server configuration.
//
// The returned Echo instance carries no routes or middleware; callers
// register the API surface through Echo() before calling Start.
//
// Example:
//
//	srv := server.New(cfg.Server)
//	rest.Register(srv.Echo())
//	if err := srv.Start(ctx); err != http.ErrServerClosed {
//	    log.Fatal(err)
//	}
func New(cfg config.ServerConfig) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	return &Server{
		config: cfg,
		echo:   e,
	}
}

// Addr returns the listen address derived from the configuration.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Start starts the HTTP server and blocks until ctx is cancelled.
//
// On cancellation the server drains in-flight requests for up to the
// configured shutdown timeout and returns http.ErrServerClosed. Any
// other return value is a startup or shutdown failure.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.echo.Start(s.Addr()); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			s.config.ShutdownTimeout.Duration(),
		)
		defer cancel()

		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}

		return http.ErrServerClosed
	}
}

// Echo returns the underlying Echo instance for route registration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
