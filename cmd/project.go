package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jhenke/punch/internal/models"
	"github.com/jhenke/punch/internal/output"
)

var projectAll bool

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectAddRun(args[0])
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectListRun()
	},
}

var projectArchiveCmd = &cobra.Command{
	Use:   "archive <name>",
	Short: "Archive a project (hidden from listings, history keeps it)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectArchiveRun(args[0])
	},
}

var projectRmCmd = &cobra.Command{
	Use:   "rm <name>",
	Short: "Delete a project",
	Long: `Delete a project. Historical sessions keep their task notes; the
stale project reference shows up as "Unknown Project" in reports.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectRmRun(args[0])
	},
}

func init() {
	projectListCmd.Flags().BoolVar(&projectAll, "all", false, "Include archived projects")
	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectArchiveCmd)
	projectCmd.AddCommand(projectRmCmd)
	rootCmd.AddCommand(projectCmd)
}

func projectAddRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would add project %s", name)
		return nil
	}

	p := &models.Project{Name: name, IsActive: true}
	if err := s.CreateProject(context.Background(), p); err != nil {
		return err
	}
	ui.Success("Added project %s", output.Cyan(name))
	return nil
}

func projectListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	projects, err := s.ListProjects(context.Background(), projectAll)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		ui.Info("No projects. Use 'punch project add <name>' to create one.")
		return nil
	}

	table := ui.Table([]string{"Project", "Status", "ID"})
	for _, p := range projects {
		status := output.Green("active")
		if !p.IsActive {
			status = output.Yellow("archived")
		}
		id := p.ID
		if len(id) > 8 {
			id = id[:8]
		}
		table.Append([]string{output.Cyan(p.Name), status, id})
	}
	table.Render()
	return nil
}

func projectArchiveRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := s.GetProjectByName(ctx, name)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would archive project %s", name)
		return nil
	}

	p.IsActive = false
	if err := s.UpdateProject(ctx, p); err != nil {
		return err
	}
	ui.Success("Archived project %s", name)
	return nil
}

func projectRmRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := s.GetProjectByName(ctx, name)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would delete project %s", name)
		return nil
	}

	if err := s.DeleteProject(ctx, p.ID); err != nil {
		return err
	}
	ui.Success("Deleted project %s", name)
	return nil
}
