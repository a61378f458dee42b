package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jhenke/punch/internal/accounting"
	"github.com/jhenke/punch/internal/registry"
)

var (
	editIn          string
	editOut         string
	editClearOut    bool
	editBreakIndex  int
	editBreakStart  string
	editBreakEnd    string
	editRemoveBreak bool
)

var editCmd = &cobra.Command{
	Use:   "edit <session-id>",
	Short: "Correct a session's timestamps",
	Long: `Overwrite clock-in/out or break times on a recorded session.

Times accept "15:04" (kept on the session's date), "2006-01-02 15:04", or
RFC3339. Invariants are re-checked after the edit; a correction that would
put clock-out before clock-in or overlap break bookkeeping is rejected
without writing anything.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editRun(args[0])
	},
}

func init() {
	editCmd.Flags().StringVar(&editIn, "in", "", "New clock-in time")
	editCmd.Flags().StringVar(&editOut, "out", "", "New clock-out time")
	editCmd.Flags().BoolVar(&editClearOut, "clear-out", false, "Reopen the session by clearing clock-out")
	editCmd.Flags().IntVar(&editBreakIndex, "break", -1, "Index of the break to edit (0-based, see 'punch log')")
	editCmd.Flags().StringVar(&editBreakStart, "break-start", "", "New start time for the selected break")
	editCmd.Flags().StringVar(&editBreakEnd, "break-end", "", "New end time for the selected break")
	editCmd.Flags().BoolVar(&editRemoveBreak, "remove-break", false, "Remove the selected break entirely")
	rootCmd.AddCommand(editCmd)
}

// parseEditTime parses a correction timestamp. A bare clock time is anchored
// to the reference date so "--out 17:30" means 17:30 on the session's day.
func parseEditTime(value string, ref time.Time) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return &t, nil
		}
	}
	if t, err := time.ParseInLocation("15:04", value, time.Local); err == nil {
		local := ref.Local()
		anchored := time.Date(local.Year(), local.Month(), local.Day(),
			t.Hour(), t.Minute(), 0, 0, time.Local)
		return &anchored, nil
	}
	return nil, fmt.Errorf("cannot parse time %q", value)
}

func editRun(id string) error {
	r, err := getRegistry()
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	full, err := resolveSessionID(ctx, id)
	if err != nil {
		return err
	}
	ws, err := s.GetSession(ctx, full)
	if err != nil {
		return err
	}

	ref := time.Now()
	if ws.ClockInTime != nil {
		ref = *ws.ClockInTime
	}

	edit := registry.Edit{
		BreakIndex:  editBreakIndex,
		ClearOut:    editClearOut,
		RemoveBreak: editRemoveBreak,
	}
	if edit.ClockIn, err = parseEditTime(editIn, ref); err != nil {
		return err
	}
	if edit.ClockOut, err = parseEditTime(editOut, ref); err != nil {
		return err
	}
	if edit.BreakStart, err = parseEditTime(editBreakStart, ref); err != nil {
		return err
	}
	if edit.BreakEnd, err = parseEditTime(editBreakEnd, ref); err != nil {
		return err
	}

	if edit.ClockIn == nil && edit.ClockOut == nil && !edit.ClearOut &&
		edit.BreakIndex < 0 {
		return fmt.Errorf("nothing to edit: pass --in, --out, --clear-out, or --break")
	}

	if dryRun {
		ui.DryRunMsg("Would edit session %s", full)
		return nil
	}

	updated, err := r.ApplyEdit(ctx, full, edit)
	if err != nil {
		return err
	}

	ui.Success("Session %s updated", full[:8])
	if updated.ClockInTime != nil {
		out := "-"
		if updated.ClockOutTime != nil {
			out = accounting.FormatClock(*updated.ClockOutTime)
		}
		ui.Info("Now %s - %s, breaks %s",
			accounting.FormatClock(*updated.ClockInTime), out,
			accounting.FormatDuration(accounting.BreakTime(updated)))
	}
	return nil
}
