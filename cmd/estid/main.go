// Package main implements the estid CLI for the estimator daemon.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/estimator/internal/console"
	"github.com/fyrsmithlabs/estimator/internal/logging"
	"github.com/fyrsmithlabs/estimator/pkg/client"
)

var (
	// serverURL is the base URL for the estimatord HTTP server
	serverURL string
	// timeout bounds scripted commands; the console ignores it
	timeout time.Duration
	// jsonOutput switches table output to JSON
	jsonOutput bool
	// console flags
	downloadDir string
	logFile     string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "estid",
	Short: "Console and CLI for the estimator daemon",
	Long: `estid talks to a running estimatord server.

Run it without arguments to open the interactive console, or use the
subcommands for scripted access to the same API.`,
	Version: version,
	RunE:    runConsole,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "estimatord server URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout for scripted commands")
	rootCmd.PersistentFlags().StringVar(&downloadDir, "downloads", ".", "directory for CSV exports")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "console log file (default: no logging)")

	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(scopeConfigCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(versionCmd)

	modelsCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("estid by Fyrsmith Labs\n")
		fmt.Printf("Version: %s\n", version)
	},
}

// consoleCmd opens the interactive console
var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open the interactive console",
	Long: `Open the full-screen interactive console.

The console shows the project list and scope-config status, creates
projects from local documents, and downloads result CSVs. It needs a
terminal with mouse support for the context menus; every action is
also reachable from the keyboard.

Examples:
  # Open the console against the default server
  estid console

  # Use a different server and download directory
  estid console --server http://estimator:8080 --downloads ~/exports`,
	RunE: runConsole,
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check estimatord server health",
	Long: `Check the health status of the estimatord HTTP server.

Examples:
  # Check health
  estid health

  # Check health on a different server
  estid health --server http://localhost:9090`,
	RunE: runHealth,
}

// modelsCmd shows the estimation provider and its models
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show the estimation provider and its models",
	Long: `Show which estimation provider the server runs and the text models
it can use.

Examples:
  # Show provider info
  estid models

  # As JSON
  estid models --json`,
	RunE: runModels,
}

func runConsole(cmd *cobra.Command, args []string) error {
	logger, err := consoleLogger()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	return console.Run(client.New(serverURL), logger, downloadDir)
}

// consoleLogger builds a file-only logger: stdout belongs to the TUI.
func consoleLogger() (*logging.Logger, error) {
	if logFile == "" {
		return logging.NewNop(), nil
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	cfg := logging.NewDefaultConfig()
	cfg.Stdout = false
	cfg.File = logFile
	cfg.Fields = map[string]string{"service": "estid"}
	return logging.NewLogger(cfg)
}

func runHealth(cmd *cobra.Command, args []string) error {
	ctx, cancel := cmdContext()
	defer cancel()

	health, err := client.New(serverURL).Health(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to %s: %v\n", serverURL, err)
		return err
	}

	fmt.Printf("Server Status: %s\n", health.Status)
	fmt.Printf("Server URL: %s\n", serverURL)
	return nil
}

func runModels(cmd *cobra.Command, args []string) error {
	ctx, cancel := cmdContext()
	defer cancel()

	models, err := client.New(serverURL).Models(ctx)
	if err != nil {
		return fmt.Errorf("failed to query models: %w", err)
	}

	if jsonOutput {
		return outputJSON(models)
	}

	fmt.Printf("Provider: %s\n", models.Provider)
	if models.SelectedModel != "" {
		fmt.Printf("Selected model: %s\n", models.SelectedModel)
	}
	for _, m := range models.AvailableModels {
		if len(m.Methods) > 0 {
			fmt.Printf("  %s (%s)\n", m.Name, joinMethods(m.Methods))
		} else {
			fmt.Printf("  %s\n", m.Name)
		}
	}
	return nil
}

func joinMethods(methods []string) string {
	out := ""
	for i, m := range methods {
		if i > 0 {
			out += ", "
		}
		out += m
	}
	return out
}

// cmdContext bounds one scripted command with the --timeout flag.
func cmdContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// formatTime renders the server's RFC3339 timestamps for tables.
func formatTime(raw string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.Format("2006-01-02 15:04")
}
