package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/estimator/pkg/client"
)

func init() {
	scopeConfigCmd.AddCommand(scopeConfigShowCmd)
	scopeConfigCmd.AddCommand(scopeConfigUploadCmd)
	scopeConfigCmd.AddCommand(scopeConfigDeleteCmd)

	scopeConfigCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
}

var scopeConfigCmd = &cobra.Command{
	Use:   "scope-config",
	Short: "Manage the scope configuration file",
	Long: `Manage the scope configuration spreadsheet on the server.

The scope config calibrates the estimation pipeline. The server keeps
at most one file: uploading a new one replaces the previous file, and
projects cannot be created until one is uploaded.

Examples:
  # Check whether a scope config is uploaded
  estid scope-config show

  # Upload (or replace) the scope config
  estid scope-config upload ./scope.xlsx

  # Remove the scope config
  estid scope-config delete`,
}

var scopeConfigShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current scope config file",
	RunE:  runScopeConfigShow,
}

var scopeConfigUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a scope config spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE:  runScopeConfigUpload,
}

var scopeConfigDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the scope config file",
	RunE:  runScopeConfigDelete,
}

func runScopeConfigShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := cmdContext()
	defer cancel()

	status, err := client.New(serverURL).ScopeConfigStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get scope config status: %w", err)
	}

	if jsonOutput {
		return outputJSON(status)
	}

	if !status.Exists {
		fmt.Println("No scope config uploaded")
		return nil
	}

	fmt.Printf("Scope config: %s\n", status.Filename)
	return nil
}

func runScopeConfigUpload(cmd *cobra.Command, args []string) error {
	ctx, cancel := cmdContext()
	defer cancel()

	filename, err := client.New(serverURL).UploadScopeConfig(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to upload scope config: %w", err)
	}

	fmt.Printf("Uploaded scope config %s\n", filename)
	return nil
}

func runScopeConfigDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := cmdContext()
	defer cancel()

	if err := client.New(serverURL).DeleteScopeConfig(ctx); err != nil {
		return fmt.Errorf("failed to delete scope config: %w", err)
	}

	fmt.Println("Deleted scope config")
	return nil
}
