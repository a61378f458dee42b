package geofence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhenke/punch/internal/registry"
	"github.com/jhenke/punch/internal/store"
)

var nineAM = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T, cfg registry.Config) (*Handler, *registry.Registry, store.Store) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	reg := registry.New(s, cfg, nil)
	return NewHandler(reg, nil), reg, s
}

func TestHandle_Disabled(t *testing.T) {
	h, reg, _ := newTestHandler(t, registry.Config{
		AutoClockIn:  true,
		AutoClockOut: true,
	})
	ctx := context.Background()

	// With geofencing off, events are ignored even when the auto flags are on
	h.Handle(ctx, Event{Kind: EventEntered, WorkplaceID: "office", At: nineAM})

	active, err := reg.ActiveSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestHandle_EnterClocksIn(t *testing.T) {
	h, reg, _ := newTestHandler(t, registry.Config{
		GeofencingEnabled: true,
		AutoClockIn:       true,
	})
	ctx := context.Background()

	h.Handle(ctx, Event{Kind: EventEntered, WorkplaceID: "office", At: nineAM})

	active, err := reg.ActiveSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.True(t, active.ClockInTime.Equal(nineAM))
}

func TestHandle_EnterRespectsAutoFlag(t *testing.T) {
	h, reg, _ := newTestHandler(t, registry.Config{
		GeofencingEnabled: true,
		AutoClockOut:      true,
	})
	ctx := context.Background()

	h.Handle(ctx, Event{Kind: EventEntered, WorkplaceID: "office", At: nineAM})

	active, err := reg.ActiveSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestHandle_ExitClocksOut(t *testing.T) {
	h, reg, _ := newTestHandler(t, registry.Config{
		GeofencingEnabled: true,
		AutoClockIn:       true,
		AutoClockOut:      true,
	})
	ctx := context.Background()

	h.Handle(ctx, Event{Kind: EventEntered, WorkplaceID: "office", At: nineAM})
	h.Handle(ctx, Event{Kind: EventExited, WorkplaceID: "office", At: nineAM.Add(8 * time.Hour)})

	active, err := reg.ActiveSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestHandle_ExitWithoutSession(t *testing.T) {
	h, _, _ := newTestHandler(t, registry.Config{
		GeofencingEnabled: true,
		AutoClockOut:      true,
	})

	// Leaving the region while clocked out must not panic or create anything
	h.Handle(context.Background(), Event{Kind: EventExited, WorkplaceID: "office", At: nineAM})
}

// A flaky location monitor firing a burst of entry events must still land
// on a single session.
func TestHandle_BurstEntryCollapses(t *testing.T) {
	h, reg, s := newTestHandler(t, registry.Config{
		GeofencingEnabled: true,
		AutoClockIn:       true,
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		h.Handle(ctx, Event{Kind: EventEntered, WorkplaceID: "office", At: nineAM.Add(time.Duration(i) * time.Second)})
	}

	sessions, err := s.ListSessions(ctx, store.SessionFilter{})
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	active, err := reg.ActiveSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.True(t, active.ClockInTime.Equal(nineAM), "first entry wins")
}

func TestRun_ProcessesInOrder(t *testing.T) {
	h, _, s := newTestHandler(t, registry.Config{
		GeofencingEnabled: true,
		AutoClockIn:       true,
		AutoClockOut:      true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	h.Events() <- Event{Kind: EventEntered, WorkplaceID: "office", At: nineAM}
	h.Events() <- Event{Kind: EventExited, WorkplaceID: "office", At: nineAM.Add(8 * time.Hour)}

	// Wait for the single consumer to drain both events: exactly one
	// session exists and it has been closed.
	require.Eventually(t, func() bool {
		sessions, err := s.ListSessions(ctx, store.SessionFilter{})
		return err == nil && len(sessions) == 1 && sessions[0].ClockOutTime != nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
