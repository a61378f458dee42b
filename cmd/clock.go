package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhenke/punch/internal/accounting"
)

var inTaskNote string

var inCmd = &cobra.Command{
	Use:   "in [project]",
	Short: "Clock in, optionally tagging a project",
	Long: `Start a new work session. If a session is already active this is a
no-op and shows the running session instead.

With a project name and -m, a task note is recorded against that project.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		project := ""
		if len(args) == 1 {
			project = args[0]
		}
		return clockInRun(project, inTaskNote)
	},
}

var outCmd = &cobra.Command{
	Use:   "out",
	Short: "Clock out of the active session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return clockOutRun()
	},
}

func init() {
	inCmd.Flags().StringVarP(&inTaskNote, "message", "m", "", "Task note for the tagged project")
	rootCmd.AddCommand(inCmd)
	rootCmd.AddCommand(outCmd)
}

func clockInRun(projectName, note string) error {
	r, err := getRegistry()
	if err != nil {
		return err
	}
	ctx := context.Background()

	existing, err := r.ActiveSession(ctx)
	if err != nil {
		return err
	}

	if dryRun {
		if existing != nil {
			ui.DryRunMsg("Already clocked in; nothing to do")
		} else {
			ui.DryRunMsg("Would clock in at %s", accounting.FormatClock(time.Now()))
		}
		return nil
	}

	ws, err := r.ClockIn(ctx, time.Now())
	if err != nil {
		return err
	}

	if existing != nil && existing.ID == ws.ID {
		ui.Info("Already clocked in since %s", accounting.FormatClock(*ws.ClockInTime))
	} else {
		ui.Success("Clocked in at %s", accounting.FormatClock(*ws.ClockInTime))
		if len(ws.Breaks) > 0 {
			b := ws.Breaks[0]
			ui.VerboseLog("Default break scheduled %s-%s",
				accounting.FormatClock(b.Start), accounting.FormatClock(*b.End))
		}
	}

	if projectName != "" {
		if err := tagProject(ctx, ws.ID, projectName, note); err != nil {
			return err
		}
	}
	return nil
}

// tagProject resolves a project by name and records the note on the session.
func tagProject(ctx context.Context, sessionID, projectName, note string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	p, err := s.GetProjectByName(ctx, projectName)
	if err != nil {
		return fmt.Errorf("unknown project %q (run 'punch project add %s' first)", projectName, projectName)
	}

	r, err := getRegistry()
	if err != nil {
		return err
	}
	if note == "" {
		note = p.Name
	}
	if _, err := r.SetTask(ctx, sessionID, p.ID, note); err != nil {
		return err
	}
	ui.VerboseLog("Tagged %s: %s", p.Name, note)
	return nil
}

func clockOutRun() error {
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
		ui.DryRunMsg("Would clock out session started at %s", accounting.FormatClock(*active.ClockInTime))
		return nil
	}

	ws, err := r.ClockOut(ctx, active.ID, time.Now())
	if err != nil {
		return err
	}
	if ws == nil {
		// Another surface closed it between our read and the write.
		ui.Info("Session was already closed")
		return nil
	}

	ui.Success("Clocked out at %s", accounting.FormatClock(*ws.ClockOutTime))
	if worked := accounting.WorkedTime(ws); worked != nil {
		ui.Info("Worked %s (breaks %s)",
			accounting.FormatDuration(*worked),
			accounting.FormatDuration(accounting.BreakTime(ws)))
	}
	if ot := accounting.Overtime(ws, r.Config().StandardWorkingDuration); ot != nil && *ot > 0 {
		ui.Info("Overtime %s", accounting.FormatDuration(*ot))
	}
	return nil
}
