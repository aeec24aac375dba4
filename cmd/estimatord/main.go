// Estimatord is the project estimation daemon.
//
// The daemon serves the estimator REST API: uploading a requirements
// document creates a project, runs it through the estimation pipeline
// (analysis, sizing, hours lookup) and persists the resulting effort
// table for listing, detail views and CSV export.
//
// Configuration is loaded from an optional YAML file plus environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults (config read from ~/.config/estimator)
//	estimatord
//
//	# Start with an explicit config file
//	estimatord --config /etc/estimator/config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/estimator/internal/config"
	"github.com/fyrsmithlabs/estimator/internal/estimate"
	"github.com/fyrsmithlabs/estimator/internal/logging"
	"github.com/fyrsmithlabs/estimator/internal/scopecfg"
	rest "github.com/fyrsmithlabs/estimator/internal/server"
	"github.com/fyrsmithlabs/estimator/internal/store"
	"github.com/fyrsmithlabs/estimator/pkg/server"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  estimatord            Start the estimator daemon\n")
			fmt.Fprintf(os.Stderr, "  estimatord version    Show version information\n")
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("estimatord by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the estimator daemon and blocks until context is
// cancelled.
//
// This function initializes all dependencies and services:
//  1. Loads and validates configuration
//  2. Initializes the structured logger
//  3. Opens the project store and scope-config folder
//  4. Builds the estimation provider and pipeline
//  5. Registers the REST surface on the HTTP host
//  6. Watches the scope-config folder for out-of-band changes
//  7. Performs graceful shutdown on context cancellation
//
// Returns http.ErrServerClosed on graceful shutdown.
func run(ctx context.Context, configPath string) error {
	if err := config.EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to prepare config directory: %w", err)
	}

	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info(ctx, "Starting estimatord",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("provider", cfg.Estimator.Provider),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	if err := cfg.Storage.EnsureDirs(); err != nil {
		return fmt.Errorf("failed to prepare storage directories: %w", err)
	}

	st, err := store.New(cfg.Storage.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open project store: %w", err)
	}
	defer func() {
		_ = st.Close()
	}()

	scope, err := scopecfg.NewFolder(cfg.Storage.ScopeConfigDir)
	if err != nil {
		return fmt.Errorf("failed to open scope config folder: %w", err)
	}

	provider, err := estimate.New(cfg.Estimator, logger.Named("estimate"))
	if err != nil {
		return fmt.Errorf("failed to build estimation provider: %w", err)
	}
	pipeline := estimate.NewService(provider, logger.Named("pipeline"))

	logger.Info(ctx, "Pipeline initialized",
		zap.String("provider", provider.Name()),
		zap.String("database", cfg.Storage.DatabasePath),
		zap.String("projects_dir", cfg.Storage.ProjectsDir))

	api, err := rest.New(st, scope, pipeline, logger.Named("http"), rest.Config{
		ProjectsDir:    cfg.Storage.ProjectsDir,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	})
	if err != nil {
		return fmt.Errorf("failed to build REST surface: %w", err)
	}

	srv := server.New(cfg.Server)
	api.Register(srv.Echo())

	// Seed the gauges so the first scrape is honest.
	if count, err := st.Count(ctx); err == nil {
		api.Metrics().SetProjectCount(count)
	}
	_, scopeErr := scope.CurrentFilename()
	api.Metrics().SetScopeConfigPresent(scopeErr == nil)

	// Watch for scope-config files dropped or deleted outside the API.
	watcher, err := scopecfg.NewWatcher(scope)
	if err != nil {
		return fmt.Errorf("failed to create scope config watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scope config watcher: %w", err)
	}
	defer watcher.Stop()
	go watchScopeConfig(ctx, watcher, api.Metrics(), logger.Named("scopecfg"))

	logger.Info(ctx, "Server configured",
		zap.String("addr", srv.Addr()),
		zap.String("health_endpoint", fmt.Sprintf("http://%s/api/health", srv.Addr())),
		zap.String("metrics_endpoint", "/metrics"))

	// Start server (blocks until context cancellation)
	return srv.Start(ctx)
}

// initLogger translates the logging section into a logger. A daemon
// with neither stdout nor a file configured logs to stdout.
func initLogger(cfg *config.Config) (*logging.Logger, error) {
	logCfg := logging.NewDefaultConfig()

	level, err := logging.LevelFromString(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}
	logCfg.Level = level
	logCfg.Format = cfg.Logging.Format
	logCfg.Stdout = cfg.Logging.Stdout
	logCfg.File = cfg.Logging.File
	if !logCfg.Stdout && logCfg.File == "" {
		logCfg.Stdout = true
	}

	return logging.NewLogger(logCfg)
}

// watchScopeConfig feeds folder-presence changes into the gauge and
// the log until ctx is cancelled.
func watchScopeConfig(ctx context.Context, w *scopecfg.Watcher, metrics *rest.Metrics, logger *logging.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			switch ev.Type {
			case scopecfg.EventTypeConfigured:
				metrics.SetScopeConfigPresent(true)
				logger.Info(ctx, "Scope config present",
					zap.String("filename", ev.Filename))
			case scopecfg.EventTypeRemoved:
				metrics.SetScopeConfigPresent(false)
				logger.Warn(ctx, "Scope config removed")
			}
		}
	}
}
