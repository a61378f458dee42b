package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhenke/punch/internal/geofence"
	"github.com/jhenke/punch/internal/models"
	"github.com/jhenke/punch/internal/presenter"
	"github.com/jhenke/punch/internal/registry"
	"github.com/jhenke/punch/internal/store"
)

func newTestServer(t *testing.T) (*Server, *registry.Registry) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	snapshots := &presenter.MemorySink{}
	reg := registry.New(s, registry.Config{StandardWorkingDuration: 8 * time.Hour}, snapshots)
	return NewServer(s, reg, snapshots, nil), reg
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestStatus_NoActiveSession(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, "GET", "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[statusResponse](t, rec)
	assert.False(t, resp.Active)
	assert.Nil(t, resp.Session)
}

func TestClockInOut(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, "POST", "/api/v1/clock-in", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	in := decode[toggleResponse](t, rec)
	assert.True(t, in.Changed)
	require.NotNil(t, in.Session)
	assert.Equal(t, models.StateWorking, in.Session.State)
	assert.Nil(t, in.Session.WorkedSeconds, "open session has no worked time yet")

	// Status now reflects the active session
	rec = doJSON(t, router, "GET", "/api/v1/status", nil)
	status := decode[statusResponse](t, rec)
	assert.True(t, status.Active)
	require.NotNil(t, status.Snapshot)
	assert.Equal(t, in.Session.ID, status.Snapshot.EntryID)

	// Clock out with an empty body falls back to the active session
	rec = doJSON(t, router, "POST", "/api/v1/clock-out", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[toggleResponse](t, rec)
	assert.True(t, out.Changed)
	require.NotNil(t, out.Session)
	assert.Equal(t, models.StateClosed, out.Session.State)
	require.NotNil(t, out.Session.WorkedSeconds)
}

func TestClockOut_NotClockedIn(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, "POST", "/api/v1/clock-out", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[toggleResponse](t, rec)
	assert.False(t, resp.Changed)
	assert.Nil(t, resp.Session)
}

func TestClockOut_StaleSessionID(t *testing.T) {
	srv, reg := newTestServer(t)
	router := srv.Router()

	ws, err := reg.ClockIn(context.Background(), time.Now())
	require.NoError(t, err)
	_, err = reg.ClockOut(context.Background(), ws.ID, time.Now())
	require.NoError(t, err)

	// A widget still holding the closed id gets 200 changed=false
	rec := doJSON(t, router, "POST", "/api/v1/clock-out", map[string]string{"session_id": ws.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[toggleResponse](t, rec)
	assert.False(t, resp.Changed)
}

func TestBreakEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	doJSON(t, router, "POST", "/api/v1/clock-in", nil)

	rec := doJSON(t, router, "POST", "/api/v1/breaks/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	start := decode[toggleResponse](t, rec)
	assert.True(t, start.Changed)
	assert.Equal(t, models.StateOnBreak, start.Session.State)

	// A duplicate start is changed=false
	rec = doJSON(t, router, "POST", "/api/v1/breaks/start", nil)
	dup := decode[toggleResponse](t, rec)
	assert.False(t, dup.Changed)

	rec = doJSON(t, router, "POST", "/api/v1/breaks/end", nil)
	end := decode[toggleResponse](t, rec)
	assert.True(t, end.Changed)
	assert.Equal(t, models.StateWorking, end.Session.State)
	require.Len(t, end.Session.Breaks, 1)
}

func TestEditSession(t *testing.T) {
	srv, reg := newTestServer(t)
	router := srv.Router()

	now := time.Now().UTC().Truncate(time.Second)
	ws, err := reg.ClockIn(context.Background(), now)
	require.NoError(t, err)
	_, err = reg.ClockOut(context.Background(), ws.ID, now.Add(8*time.Hour))
	require.NoError(t, err)

	newIn := now.Add(-time.Hour)
	rec := doJSON(t, router, "PUT", "/api/v1/sessions/"+ws.ID, editRequest{ClockIn: &newIn})
	require.Equal(t, http.StatusOK, rec.Code)

	v := decode[sessionView](t, rec)
	require.NotNil(t, v.ClockInTime)
	assert.True(t, v.ClockInTime.Equal(newIn))
}

func TestEditSession_InvariantViolation(t *testing.T) {
	srv, reg := newTestServer(t)
	router := srv.Router()

	now := time.Now().UTC()
	ws, err := reg.ClockIn(context.Background(), now)
	require.NoError(t, err)

	// Clock-out before clock-in is rejected without writing
	bad := now.Add(-time.Hour)
	rec := doJSON(t, router, "PUT", "/api/v1/sessions/"+ws.ID, editRequest{ClockOut: &bad})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	fresh, err := reg.ActiveSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fresh, "session must remain open")
}

func TestEditSession_ReopenWhileAnotherActive(t *testing.T) {
	srv, reg := newTestServer(t)
	router := srv.Router()

	now := time.Now().UTC()
	first, err := reg.ClockIn(context.Background(), now)
	require.NoError(t, err)
	_, err = reg.ClockOut(context.Background(), first.ID, now.Add(8*time.Hour))
	require.NoError(t, err)

	second, err := reg.ClockIn(context.Background(), now.Add(24*time.Hour))
	require.NoError(t, err)

	// Clearing the first session's clock-out would leave two active sessions
	rec := doJSON(t, router, "PUT", "/api/v1/sessions/"+first.ID, editRequest{ClearOut: true})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	active, err := reg.ActiveSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)
}

func TestEditSession_NotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, "PUT", "/api/v1/sessions/nonexistent", editRequest{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetTask(t *testing.T) {
	srv, reg := newTestServer(t)
	router := srv.Router()

	ws, err := reg.ClockIn(context.Background(), time.Now())
	require.NoError(t, err)

	rec := doJSON(t, router, "POST", "/api/v1/sessions/"+ws.ID+"/task",
		map[string]string{"project_id": "p1", "note": "widget work"})
	require.Equal(t, http.StatusOK, rec.Code)

	v := decode[sessionView](t, rec)
	assert.Equal(t, "widget work", v.ProjectTasks["p1"])

	// Missing project_id is a bad request
	rec = doJSON(t, router, "POST", "/api/v1/sessions/"+ws.ID+"/task",
		map[string]string{"note": "no project"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAndDeleteSessions(t *testing.T) {
	srv, reg := newTestServer(t)
	router := srv.Router()

	ws, err := reg.ClockIn(context.Background(), time.Now())
	require.NoError(t, err)
	_, err = reg.ClockOut(context.Background(), ws.ID, time.Now())
	require.NoError(t, err)

	rec := doJSON(t, router, "GET", "/api/v1/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	views := decode[[]sessionView](t, rec)
	require.Len(t, views, 1)

	rec = doJSON(t, router, "DELETE", "/api/v1/sessions/"+ws.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, router, "GET", "/api/v1/sessions/"+ws.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProjectEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, "POST", "/api/v1/projects", map[string]string{"name": "acme-website"})
	require.Equal(t, http.StatusCreated, rec.Code)
	p := decode[models.Project](t, rec)
	assert.NotEmpty(t, p.ID)
	assert.True(t, p.IsActive)

	// Archive via update
	archived := false
	rec = doJSON(t, router, "PUT", "/api/v1/projects/"+p.ID, map[string]any{"is_active": archived})
	require.Equal(t, http.StatusOK, rec.Code)

	// Default listing hides archived projects
	rec = doJSON(t, router, "GET", "/api/v1/projects", nil)
	list := decode[[]models.Project](t, rec)
	assert.Len(t, list, 0)

	rec = doJSON(t, router, "GET", "/api/v1/projects?archived=true", nil)
	list = decode[[]models.Project](t, rec)
	assert.Len(t, list, 1)

	rec = doJSON(t, router, "DELETE", "/api/v1/projects/"+p.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCreateProject_Validation(t *testing.T) {
	srv, _ := newTestServer(t)
	router := srv.Router()

	rec := doJSON(t, router, "POST", "/api/v1/projects", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGeofenceEvent(t *testing.T) {
	srv, _ := newTestServer(t)

	// Without an event channel the endpoint reports unavailable
	rec := doJSON(t, srv.Router(), "POST", "/api/v1/geofence/events",
		geofence.Event{Kind: geofence.EventEntered, WorkplaceID: "office"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// With one, events are queued
	events := make(chan geofence.Event, 1)
	srv.events = events
	rec = doJSON(t, srv.Router(), "POST", "/api/v1/geofence/events",
		geofence.Event{Kind: geofence.EventEntered, WorkplaceID: "office"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	ev := <-events
	assert.Equal(t, geofence.EventEntered, ev.Kind)
	assert.False(t, ev.At.IsZero(), "missing timestamps are filled in")

	// Unknown kinds are rejected
	rec = doJSON(t, srv.Router(), "POST", "/api/v1/geofence/events",
		map[string]string{"kind": "hovering"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// A full event queue must not block the handler; the source gets a 503
// and retries later.
func TestGeofenceEvent_QueueFull(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.events = make(chan geofence.Event, 1)
	srv.events <- geofence.Event{Kind: geofence.EventEntered, WorkplaceID: "office"}

	rec := doJSON(t, srv.Router(), "POST", "/api/v1/geofence/events",
		geofence.Event{Kind: geofence.EventExited, WorkplaceID: "office"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
