package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/estimator/pkg/api"
	"github.com/fyrsmithlabs/estimator/pkg/client"
)

var (
	// projects create flags
	projectName  string
	documentPath string
)

func init() {
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsShowCmd)
	projectsCmd.AddCommand(projectsCreateCmd)
	projectsCmd.AddCommand(projectsDeleteCmd)

	projectsCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")

	projectsCreateCmd.Flags().StringVar(&projectName, "name", "", "Project name (required)")
	projectsCreateCmd.Flags().StringVar(&documentPath, "document", "", "Requirements document to upload (required)")
	_ = projectsCreateCmd.MarkFlagRequired("name")
	_ = projectsCreateCmd.MarkFlagRequired("document")
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage estimation projects",
	Long: `Manage estimation projects on the server.

Creating a project uploads a requirements document and runs the full
estimation pipeline before returning, so the created project already
carries its results.

Examples:
  # List all projects
  estid projects list

  # Show one project with its estimate table
  estid projects show project_20240101_120000_abc123

  # Create a project from a requirements document
  estid projects create --name "Customer Portal" --document ./requirements.docx

  # Delete a project
  estid projects delete project_20240101_120000_abc123`,
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Long: `List all projects, newest first.

Examples:
  # Table output
  estid projects list

  # JSON output
  estid projects list --json`,
	RunE: runProjectsList,
}

var projectsShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show one project and its estimate",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsShow,
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a project from a requirements document",
	Long: `Create a project by uploading a requirements document.

The server runs the estimation pipeline synchronously, which can take
a while with an LLM provider. Without an explicit --timeout the
command waits up to ten minutes.

Examples:
  # Create from a Word document
  estid projects create --name "Customer Portal" --document ./requirements.docx

  # Create from plain text with JSON output
  estid projects create --name "Demo" --document ./notes.txt --json`,
	RunE: runProjectsCreate,
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project and its stored document",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsDelete,
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := cmdContext()
	defer cancel()

	projects, err := client.New(serverURL).ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	if jsonOutput {
		return outputJSON(projects)
	}

	if len(projects) == 0 {
		fmt.Println("No projects found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tCREATED")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			p.ID,
			truncate(p.Name, 30),
			p.Status,
			formatTime(p.CreatedAt),
		)
	}
	w.Flush()

	return nil
}

func runProjectsShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := cmdContext()
	defer cancel()

	project, err := client.New(serverURL).GetProject(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get project: %w", err)
	}

	if jsonOutput {
		return outputJSON(project)
	}

	printProject(project)
	return nil
}

func runProjectsCreate(cmd *cobra.Command, args []string) error {
	// The pipeline runs synchronously; allow more than the default
	// timeout unless the caller set one explicitly.
	d := timeout
	if !cmd.Flags().Changed("timeout") {
		d = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	project, err := client.New(serverURL).CreateProject(ctx, projectName, documentPath)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	if jsonOutput {
		return outputJSON(project)
	}

	fmt.Printf("Created project %s\n\n", project.ID)
	printProject(project)
	return nil
}

func runProjectsDelete(cmd *cobra.Command, args []string) error {
	ctx, cancel := cmdContext()
	defer cancel()

	if err := client.New(serverURL).DeleteProject(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	fmt.Printf("Deleted project %s\n", args[0])
	return nil
}

// printProject renders one project with its estimate table.
func printProject(p api.Project) {
	fmt.Printf("ID:       %s\n", p.ID)
	fmt.Printf("Name:     %s\n", p.Name)
	fmt.Printf("Status:   %s\n", p.Status)
	fmt.Printf("Created:  %s\n", formatTime(p.CreatedAt))
	fmt.Printf("Document: %s\n", p.DocumentFile)
	if p.Error != "" {
		fmt.Printf("Error:    %s\n", p.Error)
	}

	if len(p.Results) == 0 {
		return
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRODUCT\tFEATURES\tSIZE\tHOURS")
	total := 0.0
	haveTotal := false
	for _, r := range p.Results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			truncate(r.Product, 24),
			truncate(r.Features, 40),
			r.Size,
			r.HoursLabel(),
		)
		if r.Hours != nil {
			total += *r.Hours
			haveTotal = true
		}
	}
	w.Flush()

	if haveTotal {
		fmt.Printf("\nTotal hours: %s\n", api.ResultRow{Hours: &total}.HoursLabel())
	}
}
