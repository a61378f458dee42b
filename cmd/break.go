package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhenke/punch/internal/accounting"
)

var breakCmd = &cobra.Command{
	Use:   "break",
	Short: "Start or end a break",
}

var breakStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a break on the active session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return breakStartRun()
	},
}

var breakEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End the current break",
	RunE: func(cmd *cobra.Command, args []string) error {
		return breakEndRun()
	},
}

func init() {
	breakCmd.AddCommand(breakStartCmd)
	breakCmd.AddCommand(breakEndCmd)
	rootCmd.AddCommand(breakCmd)
}

func breakStartRun() error {
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
	if active.OnBreak {
		ui.Info("Already on break since %s", accounting.FormatClock(active.OpenBreak().Start))
		return nil
	}

	if dryRun {
		ui.DryRunMsg("Would start a break now")
		return nil
	}

	ws, err := r.StartBreak(ctx, active.ID, time.Now())
	if err != nil {
		return err
	}
	if ws == nil {
		ui.Info("Session changed under us; no break started")
		return nil
	}
	ui.Success("Break started at %s", accounting.FormatClock(ws.OpenBreak().Start))
	return nil
}

func breakEndRun() error {
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
	if !active.OnBreak {
		ui.Info("No break in progress")
		return nil
	}

	if dryRun {
		ui.DryRunMsg("Would end the current break")
		return nil
	}

	ws, err := r.EndBreak(ctx, active.ID, time.Now())
	if err != nil {
		return err
	}
	if ws == nil {
		ui.Info("No break was open")
		return nil
	}

	last := ws.Breaks[len(ws.Breaks)-1]
	ui.Success("Break ended (%s)", accounting.FormatDuration(last.Duration()))
	return nil
}
