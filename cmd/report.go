package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhenke/punch/internal/accounting"
	"github.com/jhenke/punch/internal/output"
	"github.com/jhenke/punch/internal/store"
)

var reportWeeks int

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize worked time",
}

var reportWeeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Show a per-day summary of the current week",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportWeeklyRun()
	},
}

func init() {
	reportWeeklyCmd.Flags().IntVar(&reportWeeks, "weeks", 1, "Number of weeks to include, ending with the current one")
	reportCmd.AddCommand(reportWeeklyCmd)
	rootCmd.AddCommand(reportCmd)
}

// weekStart returns midnight of the Monday of t's week, in t's location.
func weekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func reportWeeklyRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	r, err := getRegistry()
	if err != nil {
		return err
	}
	ctx := context.Background()

	now := time.Now()
	from := weekStart(now).AddDate(0, 0, -7*(reportWeeks-1))
	sessions, err := s.ListSessions(ctx, store.SessionFilter{From: &from})
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		ui.Info("No sessions since %s", from.Format("2006-01-02"))
		return nil
	}

	standard := r.Config().StandardWorkingDuration

	// Group closed sessions by local calendar day, oldest first.
	type dayTotal struct {
		date     time.Time
		worked   time.Duration
		breaks   time.Duration
		overtime time.Duration
		open     bool
	}
	byDay := map[string]*dayTotal{}
	var order []string
	for i := len(sessions) - 1; i >= 0; i-- {
		sess := sessions[i]
		if sess.ClockInTime == nil {
			continue
		}
		in := sess.ClockInTime.Local()
		key := in.Format("2006-01-02")
		dt, ok := byDay[key]
		if !ok {
			dt = &dayTotal{date: in}
			byDay[key] = dt
			order = append(order, key)
		}
		dt.breaks += accounting.BreakTime(sess)
		if worked := accounting.WorkedTime(sess); worked != nil {
			dt.worked += *worked
		} else {
			dt.open = true
		}
	}

	var totalWorked, totalOvertime time.Duration
	table := ui.Table([]string{"DATE", "DAY", "WORKED", "BREAKS", "OVERTIME"})
	for _, key := range order {
		dt := byDay[key]
		dt.overtime = dt.worked - standard
		if dt.overtime < 0 {
			dt.overtime = 0
		}
		totalWorked += dt.worked
		totalOvertime += dt.overtime
		workedCell := accounting.FormatDuration(dt.worked)
		if dt.open {
			workedCell += " (open)"
		}
		table.Append([]string{
			key,
			dt.date.Weekday().String(),
			workedCell,
			accounting.FormatDuration(dt.breaks),
			accounting.FormatDuration(dt.overtime),
		})
	}
	if err := table.Render(); err != nil {
		return err
	}

	ui.Info("Total: %s worked, %s overtime (standard day %s)",
		output.Green(accounting.FormatDuration(totalWorked)),
		output.Yellow(accounting.FormatDuration(totalOvertime)),
		accounting.FormatDuration(standard))
	return nil
}
