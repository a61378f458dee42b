package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhenke/punch/internal/export"
	"github.com/jhenke/punch/internal/store"
)

var (
	exportFormat string
	exportFrom   string
	exportTo     string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the timesheet as CSV, JSON, or Markdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun()
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, markdown")
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "Only sessions on or after this date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Only sessions before this date (YYYY-MM-DD)")
	rootCmd.AddCommand(exportCmd)
}

func exportRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	r, err := getRegistry()
	if err != nil {
		return err
	}
	ctx := context.Background()

	filter := store.SessionFilter{}
	if filter.From, err = parseDateFlag(exportFrom); err != nil {
		return err
	}
	if filter.To, err = parseDateFlag(exportTo); err != nil {
		return err
	}

	sessions, err := s.ListSessions(ctx, filter)
	if err != nil {
		return err
	}
	projects, err := s.ListProjects(ctx, true)
	if err != nil {
		return err
	}

	rows := export.BuildRows(sessions, projects, r.Config().StandardWorkingDuration)

	switch exportFormat {
	case "csv":
		return export.WriteCSV(ui.Out, rows)
	case "json":
		return export.WriteJSON(ui.Out, rows)
	case "markdown":
		fmt.Fprintln(ui.Out, "# Timesheet")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Date | Day | In | Out | Break | Worked | Overtime | Tasks |")
		fmt.Fprintln(ui.Out, "|------|-----|----|----|-------|--------|----------|-------|")
		for _, row := range rows {
			fmt.Fprintf(ui.Out, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
				row.Date, row.Weekday, row.ClockIn, row.ClockOut,
				row.BreakDuration, row.WorkedDuration, row.OvertimeDuration, row.TaskSummary)
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s (use: csv, json, markdown)", exportFormat)
	}
}
