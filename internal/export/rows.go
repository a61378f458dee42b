// Package export turns work session history into timesheet rows and writes
// them in tabular formats. Building rows is pure; the writers only format.
package export

import (
	"sort"
	"strings"
	"time"

	"github.com/jhenke/punch/internal/accounting"
	"github.com/jhenke/punch/internal/models"
)

// Row is one timesheet line. Duration cells are empty strings while the
// session is still open, mirroring the accounting engine's "not yet known"
// semantics.
type Row struct {
	Date             string `json:"date"`
	Weekday          string `json:"weekday"`
	ClockIn          string `json:"clock_in"`
	ClockOut         string `json:"clock_out,omitempty"`
	BreakDuration    string `json:"break_duration"`
	WorkedDuration   string `json:"worked_duration,omitempty"`
	OvertimeDuration string `json:"overtime_duration,omitempty"`
	TaskSummary      string `json:"task_summary,omitempty"`
}

// BuildRows converts sessions into timesheet rows, oldest first. Sessions
// without a clock-in (corrupt or half-migrated rows) are skipped. Project
// ids with no matching project render as "Unknown Project".
func BuildRows(sessions []*models.WorkSession, projects []*models.Project, standard time.Duration) []Row {
	names := make(map[string]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}

	ordered := make([]*models.WorkSession, 0, len(sessions))
	for _, s := range sessions {
		if s.ClockInTime != nil {
			ordered = append(ordered, s)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ClockInTime.Before(*ordered[j].ClockInTime)
	})

	rows := make([]Row, 0, len(ordered))
	for _, s := range ordered {
		in := s.ClockInTime.Local()
		row := Row{
			Date:          in.Format("2006-01-02"),
			Weekday:       in.Format("Monday"),
			ClockIn:       in.Format("15:04"),
			BreakDuration: accounting.FormatDuration(accounting.BreakTime(s)),
			TaskSummary:   taskSummary(s, names),
		}
		if s.ClockOutTime != nil {
			row.ClockOut = s.ClockOutTime.Local().Format("15:04")
		}
		if worked := accounting.WorkedTime(s); worked != nil {
			row.WorkedDuration = accounting.FormatDuration(*worked)
		}
		if ot := accounting.Overtime(s, standard); ot != nil {
			row.OvertimeDuration = accounting.FormatDuration(*ot)
		}
		rows = append(rows, row)
	}
	return rows
}

// taskSummary joins the session's project notes as "Project: note" pairs,
// sorted by project name for stable output.
func taskSummary(s *models.WorkSession, names map[string]string) string {
	if len(s.ProjectTasks) == 0 {
		return ""
	}
	parts := make([]string, 0, len(s.ProjectTasks))
	for id, note := range s.ProjectTasks {
		name, ok := names[id]
		if !ok {
			name = "Unknown Project"
		}
		parts = append(parts, name+": "+note)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}
