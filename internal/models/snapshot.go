package models

import "time"

// SessionSnapshot is the read-only view pushed to presentation surfaces
// (widgets, live status) after every committed state change.
type SessionSnapshot struct {
	EntryID                 string         `json:"entry_id"`
	ClockInTime             time.Time      `json:"clock_in_time"`
	ClockOutTime            *time.Time     `json:"clock_out_time,omitempty"`
	OnBreak                 bool           `json:"on_break"`
	BreakStartTime          *time.Time     `json:"break_start_time,omitempty"`
	TotalBreakTime          time.Duration  `json:"total_break_time"`
	StandardWorkingDuration time.Duration  `json:"standard_working_duration"`
}
