package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/estimator/pkg/client"
)

var downloadCmd = &cobra.Command{
	Use:   "download <project-id>",
	Short: "Download a project's results as CSV",
	Long: `Download a project's estimate table as a CSV file.

The file lands in the directory given by --downloads (default: the
current directory) under the server's suggested filename.

Examples:
  # Download into the current directory
  estid download project_20240101_120000_abc123

  # Download into a specific directory
  estid download project_20240101_120000_abc123 --downloads ~/Downloads`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func runDownload(cmd *cobra.Command, args []string) error {
	ctx, cancel := cmdContext()
	defer cancel()

	path, err := client.New(serverURL).DownloadCSV(ctx, args[0], downloadDir)
	if err != nil {
		return fmt.Errorf("failed to download results: %w", err)
	}

	fmt.Printf("Saved %s\n", path)
	return nil
}
