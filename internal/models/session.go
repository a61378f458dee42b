package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvariantViolation is returned when a mutation or corrective edit would
// leave a session in an inconsistent state. Callers match it with errors.Is.
var ErrInvariantViolation = errors.New("invariant violation")

// SessionState is the derived state of a work session.
type SessionState string

const (
	StateWorking SessionState = "working"
	StateOnBreak SessionState = "on_break"
	StateClosed  SessionState = "closed"
)

// BreakInterval is a single pause within a work session.
// A nil End means the break is still in progress.
type BreakInterval struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

// Duration returns the closed length of the break, or zero while it is open.
func (b BreakInterval) Duration() time.Duration {
	if b.End == nil {
		return 0
	}
	return b.End.Sub(b.Start)
}

// WorkSession is one clock-in-to-clock-out record with its breaks and
// per-project task notes. The timestamp fields stay nullable for storage and
// export; State() is the authoritative view of where the session is.
type WorkSession struct {
	ID           string
	ClockInTime  *time.Time
	ClockOutTime *time.Time
	Breaks       []BreakInterval
	OnBreak      bool
	ProjectTasks map[string]string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// State derives the session state from the clock-out and break fields.
func (s *WorkSession) State() SessionState {
	switch {
	case s.ClockOutTime != nil:
		return StateClosed
	case s.OnBreak:
		return StateOnBreak
	default:
		return StateWorking
	}
}

// OpenBreak returns a pointer to the unique in-progress break, or nil.
// Mutations to a break close it in place rather than replacing the slice
// element, so the pointer is the write target for EndBreak.
func (s *WorkSession) OpenBreak() *BreakInterval {
	if len(s.Breaks) == 0 {
		return nil
	}
	last := &s.Breaks[len(s.Breaks)-1]
	if last.End == nil {
		return last
	}
	return nil
}

// StartBreak appends an open break. Returns false without mutating when the
// session is not in the working state; duplicate triggers from racing
// surfaces are expected and must not error.
func (s *WorkSession) StartBreak(now time.Time) bool {
	if s.State() != StateWorking {
		return false
	}
	s.Breaks = append(s.Breaks, BreakInterval{Start: now.UTC()})
	s.OnBreak = true
	return true
}

// EndBreak closes the open break by setting its End in place.
// Returns false, leaving the session untouched, when no break is open:
// callers skip persisting on false, so the no-op path must not mutate.
func (s *WorkSession) EndBreak(now time.Time) bool {
	b := s.OpenBreak()
	if b == nil {
		return false
	}
	t := now.UTC()
	b.End = &t
	s.OnBreak = false
	return true
}

// Close sets the clock-out time, force-closing any open break at the same
// instant. Returns false when the session is already closed.
func (s *WorkSession) Close(now time.Time) bool {
	if s.ClockOutTime != nil {
		return false
	}
	t := now.UTC()
	if b := s.OpenBreak(); b != nil {
		b.End = &t
	}
	s.OnBreak = false
	s.ClockOutTime = &t
	return true
}

// Validate checks the session invariants:
//  1. a clock-out implies a clock-in and never precedes it
//  2. OnBreak agrees with whether the last break is open
//  3. at most one break is open, and only the last
//  4. a closed session has no open break
//
// plus end >= start for every closed break.
func (s *WorkSession) Validate() error {
	if s.ClockOutTime != nil {
		if s.ClockInTime == nil {
			return fmt.Errorf("%w: clock-out set without clock-in", ErrInvariantViolation)
		}
		if s.ClockOutTime.Before(*s.ClockInTime) {
			return fmt.Errorf("%w: clock-out %s before clock-in %s",
				ErrInvariantViolation, s.ClockOutTime.Format(time.RFC3339), s.ClockInTime.Format(time.RFC3339))
		}
	}

	open := 0
	for i, b := range s.Breaks {
		if b.End == nil {
			open++
			if i != len(s.Breaks)-1 {
				return fmt.Errorf("%w: open break at position %d is not the last break", ErrInvariantViolation, i)
			}
			continue
		}
		if b.End.Before(b.Start) {
			return fmt.Errorf("%w: break %d ends before it starts", ErrInvariantViolation, i)
		}
	}
	if open > 1 {
		return fmt.Errorf("%w: %d breaks open at once", ErrInvariantViolation, open)
	}
	if s.OnBreak != (open == 1) {
		return fmt.Errorf("%w: on-break flag %v disagrees with breaks", ErrInvariantViolation, s.OnBreak)
	}
	if s.ClockOutTime != nil && open > 0 {
		return fmt.Errorf("%w: closed session has an open break", ErrInvariantViolation)
	}
	return nil
}
