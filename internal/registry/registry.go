// Package registry serializes all mutations of the active work session.
// Multiple surfaces (CLI, HTTP widgets, geofence automation) call in
// concurrently; the registry's mutex plus the store's single-writer
// connection make each read-check-write cycle atomic, and every operation
// re-reads the session from the store immediately before mutating so it
// never acts on state captured before another writer's commit.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jhenke/punch/internal/accounting"
	"github.com/jhenke/punch/internal/models"
	"github.com/jhenke/punch/internal/presenter"
	"github.com/jhenke/punch/internal/store"
)

// Config carries the behavior knobs the registry and accounting need.
type Config struct {
	StandardWorkingDuration time.Duration
	DefaultBreakDuration    time.Duration
	AutoAddBreak            bool
	GeofencingEnabled       bool
	AutoClockIn             bool
	AutoClockOut            bool
}

// Registry owns the at-most-one-active-session invariant.
type Registry struct {
	store store.Store
	cfg   Config
	sink  presenter.Sink

	mu sync.Mutex
}

// New creates a registry. The sink may be nil; snapshots are then dropped.
func New(s store.Store, cfg Config, sink presenter.Sink) *Registry {
	return &Registry{store: s, cfg: cfg, sink: sink}
}

// Config returns the registry's configuration.
func (r *Registry) Config() Config {
	return r.cfg
}

// ActiveSession returns the open session, or (nil, nil) when clocked out.
func (r *Registry) ActiveSession(ctx context.Context) (*models.WorkSession, error) {
	return r.store.GetActiveSession(ctx)
}

// ClockIn opens a new session, or returns the existing active session
// unchanged. Idempotence is deliberate: manual taps, widget intents, and
// geofence entries race to clock in within the same instant, and exactly one
// writer may win.
func (r *Registry) ClockIn(ctx context.Context, now time.Time) (*models.WorkSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	active, err := r.store.GetActiveSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("clock in: %w", err)
	}
	if active != nil {
		return active, nil
	}

	t := now.UTC()
	ws := &models.WorkSession{
		ClockInTime:  &t,
		ProjectTasks: map[string]string{},
	}
	if r.cfg.AutoAddBreak && r.cfg.DefaultBreakDuration > 0 {
		// The configured default break is appended pre-closed at clock-in,
		// modeling a pre-allocated lunch period rather than a break in
		// progress.
		end := t.Add(r.cfg.DefaultBreakDuration)
		ws.Breaks = []models.BreakInterval{{Start: t, End: &end}}
	}

	if err := ws.Validate(); err != nil {
		return nil, err
	}
	if err := r.store.CreateSession(ctx, ws); err != nil {
		return nil, fmt.Errorf("clock in: %w", err)
	}
	r.publish(ctx, ws)
	return ws, nil
}

// ClockOut closes the session, force-closing an open break at the same
// instant. A stale id (no active session, or a different one) is a silent
// no-op returning (nil, nil).
func (r *Registry) ClockOut(ctx context.Context, sessionID string, now time.Time) (*models.WorkSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, err := r.activeMatching(ctx, sessionID)
	if ws == nil || err != nil {
		return nil, err
	}

	if !ws.Close(now) {
		return nil, nil
	}
	if err := ws.Validate(); err != nil {
		return nil, err
	}
	if err := r.store.UpdateSession(ctx, ws); err != nil {
		return nil, fmt.Errorf("clock out: %w", err)
	}
	r.publish(ctx, ws)
	return ws, nil
}

// StartBreak opens a break on the active session. No-ops on stale
// references and when the session is already on break.
func (r *Registry) StartBreak(ctx context.Context, sessionID string, now time.Time) (*models.WorkSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, err := r.activeMatching(ctx, sessionID)
	if ws == nil || err != nil {
		return nil, err
	}

	if !ws.StartBreak(now) {
		return nil, nil
	}
	if err := ws.Validate(); err != nil {
		return nil, err
	}
	if err := r.store.UpdateSession(ctx, ws); err != nil {
		return nil, fmt.Errorf("start break: %w", err)
	}
	r.publish(ctx, ws)
	return ws, nil
}

// EndBreak closes the open break. Calling it with no break open is a no-op,
// not an error: duplicate triggers from racing surfaces are expected.
func (r *Registry) EndBreak(ctx context.Context, sessionID string, now time.Time) (*models.WorkSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, err := r.activeMatching(ctx, sessionID)
	if ws == nil || err != nil {
		return nil, err
	}

	if !ws.EndBreak(now) {
		return nil, nil
	}
	if err := ws.Validate(); err != nil {
		return nil, err
	}
	if err := r.store.UpdateSession(ctx, ws); err != nil {
		return nil, fmt.Errorf("end break: %w", err)
	}
	r.publish(ctx, ws)
	return ws, nil
}

// SetTask records a free-text task note against a project on the session.
// Unlike the transition operations this targets any session, open or closed,
// since task notes are corrections too.
func (r *Registry) SetTask(ctx context.Context, sessionID, projectID, note string) (*models.WorkSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if ws.ProjectTasks == nil {
		ws.ProjectTasks = map[string]string{}
	}
	if note == "" {
		delete(ws.ProjectTasks, projectID)
	} else {
		ws.ProjectTasks[projectID] = note
	}
	if err := r.store.UpdateSession(ctx, ws); err != nil {
		return nil, fmt.Errorf("set task: %w", err)
	}
	r.publish(ctx, ws)
	return ws, nil
}

// Edit is a corrective overwrite of session timestamps from the history
// editor. Nil fields are left unchanged. There is no bound on how far a
// corrected value may move: this is a timesheet correction tool, not a
// tamper-evident log.
type Edit struct {
	ClockIn     *time.Time
	ClockOut    *time.Time
	ClearOut    bool
	BreakIndex  int // which break BreakStart/BreakEnd apply to; -1 when unused
	BreakStart  *time.Time
	BreakEnd    *time.Time
	RemoveBreak bool
}

// ApplyEdit overwrites fields per the edit and re-validates the invariants.
// On violation nothing is written and the error wraps
// models.ErrInvariantViolation.
func (r *Registry) ApplyEdit(ctx context.Context, sessionID string, edit Edit) (*models.WorkSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if edit.ClockIn != nil {
		t := edit.ClockIn.UTC()
		ws.ClockInTime = &t
	}
	if edit.ClearOut {
		ws.ClockOutTime = nil
	} else if edit.ClockOut != nil {
		t := edit.ClockOut.UTC()
		ws.ClockOutTime = &t
	}

	if edit.BreakIndex >= 0 {
		if edit.BreakIndex >= len(ws.Breaks) {
			return nil, fmt.Errorf("%w: session has no break %d", models.ErrInvariantViolation, edit.BreakIndex)
		}
		if edit.RemoveBreak {
			ws.Breaks = append(ws.Breaks[:edit.BreakIndex], ws.Breaks[edit.BreakIndex+1:]...)
		} else {
			b := &ws.Breaks[edit.BreakIndex]
			if edit.BreakStart != nil {
				b.Start = edit.BreakStart.UTC()
			}
			if edit.BreakEnd != nil {
				t := edit.BreakEnd.UTC()
				b.End = &t
			}
		}
	}

	// Re-derive the flag from the breaks so invariant 2 cannot drift.
	ws.OnBreak = ws.OpenBreak() != nil

	if err := ws.Validate(); err != nil {
		return nil, err
	}

	// Reopening a session (or editing one that is open) must not leave two
	// rows without a clock-out: at most one session may be active.
	if ws.ClockOutTime == nil {
		active, err := r.store.GetActiveSession(ctx)
		if err != nil {
			return nil, fmt.Errorf("apply edit: %w", err)
		}
		if active != nil && active.ID != ws.ID {
			return nil, fmt.Errorf("%w: session %s is already active", models.ErrInvariantViolation, active.ID)
		}
	}
	if err := r.store.UpdateSession(ctx, ws); err != nil {
		return nil, fmt.Errorf("apply edit: %w", err)
	}
	r.publish(ctx, ws)
	return ws, nil
}

// DeleteSession removes a session from history.
func (r *Registry) DeleteSession(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.DeleteSession(ctx, sessionID)
}

// activeMatching re-reads the active session and checks it against the
// caller's reference. A widget acting on an already-closed session gets
// (nil, nil), never an error.
func (r *Registry) activeMatching(ctx context.Context, sessionID string) (*models.WorkSession, error) {
	active, err := r.store.GetActiveSession(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil || active.ID != sessionID {
		return nil, nil
	}
	return active, nil
}

// publish sends a snapshot to the presentation sink. Failures here are
// logged only: the stored session, not the widget surface, is the source of
// truth.
func (r *Registry) publish(ctx context.Context, ws *models.WorkSession) {
	if r.sink == nil {
		return
	}
	snap := models.SessionSnapshot{
		EntryID:                 ws.ID,
		OnBreak:                 ws.OnBreak,
		ClockOutTime:            ws.ClockOutTime,
		TotalBreakTime:          accounting.BreakTime(ws),
		StandardWorkingDuration: r.cfg.StandardWorkingDuration,
	}
	if ws.ClockInTime != nil {
		snap.ClockInTime = *ws.ClockInTime
	}
	if b := ws.OpenBreak(); b != nil {
		start := b.Start
		snap.BreakStartTime = &start
	}
	if err := r.sink.Publish(ctx, snap); err != nil {
		slog.Warn("failed to publish session snapshot", "session", ws.ID, "error", err)
	}
}
