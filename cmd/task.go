package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task <project> <note>...",
	Short: "Record a task note against a project on the active session",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return taskRun(args[0], strings.Join(args[1:], " "))
	},
}

func init() {
	rootCmd.AddCommand(taskCmd)
}

func taskRun(projectName, note string) error {
	r, err := getRegistry()
	if err != nil {
		return err
	}
	ctx := context.Background()

	active, err := r.ActiveSession(ctx)
	if err != nil {
		return err
	}
	if active == nil {
		ui.Warning("Not clocked in")
		return nil
	}

	if dryRun {
		ui.DryRunMsg("Would tag %s: %s", projectName, note)
		return nil
	}

	if err := tagProject(ctx, active.ID, projectName, note); err != nil {
		return err
	}
	ui.Success("Tagged %s", projectName)
	return nil
}
