package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbraendle/postcraft/internal/models"
)

var projectDescription string

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Manage projects",
	Long: `Manage projects. A project groups sources, a context profile, and
generation runs.

Examples:
  postcraft projects create "Launch blog" --description "Q4 launch content"
  postcraft projects list
  postcraft projects delete abc123`,
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsCreate,
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects",
	Args:  cobra.NoArgs,
	RunE:  runProjectsList,
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "Delete a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsDelete,
}

func init() {
	projectsCreateCmd.Flags().StringVarP(&projectDescription, "description", "d", "", "project description")

	projectsCmd.AddCommand(projectsCreateCmd)
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsDeleteCmd)
}

func runProjectsCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var description *string
	if projectDescription != "" {
		description = &projectDescription
	}

	project, err := getService().CreateProject(ctx, args[0], description)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}

	fmt.Printf("Created project %s (%s)\n", project.Name, models.MustRecordIDString(project.ID))
	return nil
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	projects, err := getService().ListProjects(context.Background())
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Println("No projects found")
		return nil
	}

	fmt.Printf("%-22s %-30s %s\n", "ID", "NAME", "CREATED")
	fmt.Println("----------------------------------------------------------------------")
	for _, p := range projects {
		fmt.Printf("%-22s %-30s %s\n",
			models.MustRecordIDString(p.ID), p.Name, p.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func runProjectsDelete(cmd *cobra.Command, args []string) error {
	if err := getService().DeleteProject(context.Background(), args[0]); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	fmt.Printf("Deleted project %s\n", args[0])
	return nil
}
