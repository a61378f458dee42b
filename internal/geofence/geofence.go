// Package geofence adapts workplace region events into registry operations.
// The platform location monitor is an external event source; this package
// only consumes its events, delivered over a channel into a single
// processing goroutine, and applies the same registry operations a manual
// trigger would. Burst re-entry events collapse through the registry's
// clock-in idempotence.
package geofence

import (
	"context"
	"log/slog"
	"time"

	"github.com/jhenke/punch/internal/registry"
)

// EventKind discriminates region events.
type EventKind string

const (
	EventEntered EventKind = "entered"
	EventExited  EventKind = "exited"
)

// Event is one region transition reported by the location monitor.
type Event struct {
	Kind        EventKind `json:"kind"`
	WorkplaceID string    `json:"workplace_id"`
	At          time.Time `json:"at"`
}

// Handler consumes geofence events and drives the registry.
type Handler struct {
	reg    *registry.Registry
	events chan Event
	logger *slog.Logger
}

// NewHandler creates a handler. Events sent to Events() are processed by
// Run in arrival order.
func NewHandler(reg *registry.Registry, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		reg:    reg,
		events: make(chan Event, 16),
		logger: logger,
	}
}

// Events returns the channel the event source writes to.
func (h *Handler) Events() chan<- Event {
	return h.events
}

// Run processes events until the context is canceled. It is the single
// consumer; ordering within the channel is preserved.
func (h *Handler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.events:
			h.Handle(ctx, ev)
		}
	}
}

// Handle applies one event. Events are ignored entirely unless geofencing
// is enabled, and each direction honors its own auto flag.
func (h *Handler) Handle(ctx context.Context, ev Event) {
	cfg := h.reg.Config()
	if !cfg.GeofencingEnabled {
		return
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	switch ev.Kind {
	case EventEntered:
		if !cfg.AutoClockIn {
			return
		}
		ws, err := h.reg.ClockIn(ctx, at)
		if err != nil {
			h.logger.Warn("geofence clock-in failed", "workplace", ev.WorkplaceID, "error", err)
			return
		}
		h.logger.Info("geofence clock-in", "workplace", ev.WorkplaceID, "session", ws.ID)

	case EventExited:
		if !cfg.AutoClockOut {
			return
		}
		active, err := h.reg.ActiveSession(ctx)
		if err != nil {
			h.logger.Warn("geofence clock-out failed", "workplace", ev.WorkplaceID, "error", err)
			return
		}
		if active == nil {
			return
		}
		if _, err := h.reg.ClockOut(ctx, active.ID, at); err != nil {
			h.logger.Warn("geofence clock-out failed", "workplace", ev.WorkplaceID, "error", err)
			return
		}
		h.logger.Info("geofence clock-out", "workplace", ev.WorkplaceID, "session", active.ID)
	}
}
