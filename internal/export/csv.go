package export

import (
	"encoding/csv"
	"io"
)

// WriteCSV writes timesheet rows with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"Date", "Weekday", "Clock In", "Clock Out", "Break", "Worked", "Overtime", "Tasks"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			r.Date, r.Weekday, r.ClockIn, r.ClockOut,
			r.BreakDuration, r.WorkedDuration, r.OvertimeDuration, r.TaskSummary,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
