package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhenke/punch/internal/accounting"
	"github.com/jhenke/punch/internal/output"
	"github.com/jhenke/punch/internal/store"
)

var (
	logFrom  string
	logTo    string
	logLimit int
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show work session history",
	RunE: func(cmd *cobra.Command, args []string) error {
		return logRun()
	},
}

var logDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session from history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return logDeleteRun(args[0])
	},
}

func init() {
	logCmd.Flags().StringVar(&logFrom, "from", "", "Only sessions on or after this date (YYYY-MM-DD)")
	logCmd.Flags().StringVar(&logTo, "to", "", "Only sessions before this date (YYYY-MM-DD)")
	logCmd.Flags().IntVar(&logLimit, "limit", 20, "Maximum number of sessions (0 = all)")
	logCmd.AddCommand(logDeleteCmd)
	rootCmd.AddCommand(logCmd)
}

// parseDateFlag parses a YYYY-MM-DD flag value in local time.
func parseDateFlag(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", value)
	}
	return &t, nil
}

func logRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	r, err := getRegistry()
	if err != nil {
		return err
	}
	ctx := context.Background()

	filter := store.SessionFilter{Limit: logLimit}
	if filter.From, err = parseDateFlag(logFrom); err != nil {
		return err
	}
	if filter.To, err = parseDateFlag(logTo); err != nil {
		return err
	}

	sessions, err := s.ListSessions(ctx, filter)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		ui.Info("No sessions recorded")
		return nil
	}

	standard := r.Config().StandardWorkingDuration
	table := ui.Table([]string{"Date", "In", "Out", "Break", "Worked", "Overtime", "State", "ID"})

	for _, ws := range sessions {
		if ws.ClockInTime == nil {
			continue
		}
		in := accounting.FormatClock(*ws.ClockInTime)
		out := "-"
		worked := "-"
		overtime := "-"
		if ws.ClockOutTime != nil {
			out = accounting.FormatClock(*ws.ClockOutTime)
		}
		if w := accounting.WorkedTime(ws); w != nil {
			worked = accounting.FormatDuration(*w)
		}
		if ot := accounting.Overtime(ws, standard); ot != nil {
			overtime = accounting.FormatDuration(*ot)
		}

		id := ws.ID
		if len(id) > 8 {
			id = id[:8]
		}

		table.Append([]string{
			ws.ClockInTime.Local().Format("2006-01-02"),
			in,
			out,
			accounting.FormatDuration(accounting.BreakTime(ws)),
			worked,
			overtime,
			output.StateColor(string(ws.State())),
			id,
		})
	}

	table.Render()
	return nil
}

func logDeleteRun(id string) error {
	r, err := getRegistry()
	if err != nil {
		return err
	}
	ctx := context.Background()

	full, err := resolveSessionID(ctx, id)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would delete session %s", full)
		return nil
	}

	if err := r.DeleteSession(ctx, full); err != nil {
		return err
	}
	ui.Success("Deleted session %s", full)
	return nil
}

// resolveSessionID expands a short id prefix (as shown by 'punch log') to
// the full session id. Exact matches win; ambiguous prefixes are an error.
func resolveSessionID(ctx context.Context, id string) (string, error) {
	s, err := getStore()
	if err != nil {
		return "", err
	}
	if _, err := s.GetSession(ctx, id); err == nil {
		return id, nil
	}

	sessions, err := s.ListSessions(ctx, store.SessionFilter{})
	if err != nil {
		return "", err
	}
	var match string
	for _, ws := range sessions {
		if len(ws.ID) >= len(id) && ws.ID[:len(id)] == id {
			if match != "" {
				return "", fmt.Errorf("session id %q is ambiguous", id)
			}
			match = ws.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("session not found: %s", id)
	}
	return match, nil
}
