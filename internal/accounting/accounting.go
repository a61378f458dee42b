// Package accounting computes worked, break, and overtime durations from
// work session snapshots. Everything here is pure: no clock reads, no
// mutation, no rounding. Rounding happens at presentation and export
// boundaries only.
package accounting

import (
	"time"

	"github.com/jhenke/punch/internal/models"
)

// BreakTime sums the closed breaks of a session. An open break contributes
// zero: only finished breaks count toward historical totals, while the
// elapsed time of a break in progress is a presentation concern
// (see OpenBreakElapsed).
func BreakTime(s *models.WorkSession) time.Duration {
	var total time.Duration
	for _, b := range s.Breaks {
		total += b.Duration()
	}
	return total
}

// OpenBreakElapsed returns how long the current break has been running, or
// zero when no break is open.
func OpenBreakElapsed(s *models.WorkSession, now time.Time) time.Duration {
	b := s.OpenBreak()
	if b == nil {
		return 0
	}
	return now.Sub(b.Start)
}

// WorkedTime returns (clock-out - clock-in) minus closed break time.
// It is nil while the session is still open: callers distinguish
// "not yet known" from "zero work done".
func WorkedTime(s *models.WorkSession) *time.Duration {
	if s.ClockInTime == nil || s.ClockOutTime == nil {
		return nil
	}
	d := s.ClockOutTime.Sub(*s.ClockInTime) - BreakTime(s)
	return &d
}

// Overtime returns worked time in excess of the standard working duration,
// clamped at zero. It is nil exactly when WorkedTime is nil.
func Overtime(s *models.WorkSession, standard time.Duration) *time.Duration {
	worked := WorkedTime(s)
	if worked == nil {
		return nil
	}
	d := *worked - standard
	if d < 0 {
		d = 0
	}
	return &d
}
