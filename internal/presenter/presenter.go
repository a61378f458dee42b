// Package presenter delivers session snapshots to live-status surfaces.
// Publishing is fire-and-forget from the registry's point of view: a sink
// failure is logged and never blocks or reverses a state transition.
package presenter

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jhenke/punch/internal/models"
)

// Sink receives a snapshot after every committed state change.
type Sink interface {
	Publish(ctx context.Context, snap models.SessionSnapshot) error
}

// LogSink writes snapshots to a structured logger. It is the default sink
// for CLI invocations, where no widget surface is attached.
type LogSink struct {
	Logger *slog.Logger
}

func (s *LogSink) Publish(_ context.Context, snap models.SessionSnapshot) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("session snapshot",
		"entry_id", snap.EntryID,
		"on_break", snap.OnBreak,
		"closed", snap.ClockOutTime != nil,
	)
	return nil
}

// MemorySink retains the most recent snapshot for polling surfaces
// (the HTTP status endpoint, tests).
type MemorySink struct {
	mu     sync.Mutex
	latest *models.SessionSnapshot
}

func (s *MemorySink) Publish(_ context.Context, snap models.SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &snap
	return nil
}

// Latest returns the last published snapshot, or nil if none yet.
func (s *MemorySink) Latest() *models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// MultiSink fans a snapshot out to several sinks. Errors from individual
// sinks are collected by the caller's logger, not returned.
type MultiSink []Sink

func (m MultiSink) Publish(ctx context.Context, snap models.SessionSnapshot) error {
	for _, s := range m {
		if err := s.Publish(ctx, snap); err != nil {
			slog.Warn("snapshot sink failed", "error", err)
		}
	}
	return nil
}
