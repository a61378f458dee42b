package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhenke/punch/internal/accounting"
	"github.com/jhenke/punch/internal/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current work session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusRun()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusRun() error {
	r, err := getRegistry()
	if err != nil {
		return err
	}
	ctx := context.Background()

	ws, err := r.ActiveSession(ctx)
	if err != nil {
		return err
	}
	if ws == nil {
		ui.Info("Not clocked in")
		return nil
	}

	now := time.Now()
	ui.Info("State:      %s", output.StateColor(string(ws.State())))
	ui.Info("Clocked in: %s (%s ago)",
		accounting.FormatClock(*ws.ClockInTime),
		accounting.FormatDuration(now.Sub(*ws.ClockInTime)))

	if ws.OnBreak {
		ui.Info("On break:   %s so far",
			accounting.FormatDuration(accounting.OpenBreakElapsed(ws, now)))
	}
	if bt := accounting.BreakTime(ws); bt > 0 {
		ui.Info("Breaks:     %s across %d break(s)",
			accounting.FormatDuration(bt), len(ws.Breaks))
	}

	// Running total: elapsed minus closed breaks. Worked time proper is
	// undefined until clock-out.
	running := now.Sub(*ws.ClockInTime) - accounting.BreakTime(ws)
	if ws.OnBreak {
		running -= accounting.OpenBreakElapsed(ws, now)
	}
	ui.Info("Working:    %s of %s",
		accounting.FormatDuration(running),
		accounting.FormatDuration(r.Config().StandardWorkingDuration))

	if len(ws.ProjectTasks) > 0 {
		s, err := getStore()
		if err != nil {
			return err
		}
		projects, err := s.ListProjects(ctx, true)
		if err != nil {
			return err
		}
		names := make(map[string]string, len(projects))
		for _, p := range projects {
			names[p.ID] = p.Name
		}
		for id, note := range ws.ProjectTasks {
			name, ok := names[id]
			if !ok {
				name = "Unknown Project"
			}
			ui.Info("Task:       %s: %s", output.Cyan(name), note)
		}
	}
	return nil
}
