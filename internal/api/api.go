// Package api exposes the registry over local HTTP for out-of-process
// surfaces: home-screen widgets, phone shortcuts, and geofence automations
// all call in here rather than sharing memory with the CLI.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jhenke/punch/internal/accounting"
	"github.com/jhenke/punch/internal/geofence"
	"github.com/jhenke/punch/internal/models"
	"github.com/jhenke/punch/internal/presenter"
	"github.com/jhenke/punch/internal/registry"
	"github.com/jhenke/punch/internal/store"
)

// Server provides the REST API handlers.
type Server struct {
	store     store.Store
	reg       *registry.Registry
	snapshots *presenter.MemorySink
	events    chan<- geofence.Event
}

// NewServer creates a new API server. The events channel feeds the geofence
// handler loop; it may be nil when geofencing is disabled.
func NewServer(s store.Store, reg *registry.Registry, snapshots *presenter.MemorySink, events chan<- geofence.Event) *Server {
	return &Server{
		store:     s,
		reg:       reg,
		snapshots: snapshots,
		events:    events,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/status", s.status)

	mux.HandleFunc("POST /api/v1/clock-in", s.clockIn)
	mux.HandleFunc("POST /api/v1/clock-out", s.clockOut)
	mux.HandleFunc("POST /api/v1/breaks/start", s.startBreak)
	mux.HandleFunc("POST /api/v1/breaks/end", s.endBreak)

	mux.HandleFunc("GET /api/v1/sessions", s.listSessions)
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.getSession)
	mux.HandleFunc("PUT /api/v1/sessions/{id}", s.editSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.deleteSession)
	mux.HandleFunc("POST /api/v1/sessions/{id}/task", s.setTask)

	mux.HandleFunc("GET /api/v1/projects", s.listProjects)
	mux.HandleFunc("POST /api/v1/projects", s.createProject)
	mux.HandleFunc("PUT /api/v1/projects/{id}", s.updateProject)
	mux.HandleFunc("DELETE /api/v1/projects/{id}", s.deleteProject)

	mux.HandleFunc("POST /api/v1/geofence/events", s.geofenceEvent)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// sessionView is the wire representation of a session, enriched with the
// accounting figures widgets render directly.
type sessionView struct {
	ID              string                 `json:"id"`
	State           models.SessionState    `json:"state"`
	ClockInTime     *time.Time             `json:"clock_in_time,omitempty"`
	ClockOutTime    *time.Time             `json:"clock_out_time,omitempty"`
	OnBreak         bool                   `json:"on_break"`
	Breaks          []models.BreakInterval `json:"breaks"`
	ProjectTasks    map[string]string      `json:"project_tasks,omitempty"`
	BreakSeconds    float64                `json:"break_seconds"`
	WorkedSeconds   *float64               `json:"worked_seconds,omitempty"`
	OvertimeSeconds *float64               `json:"overtime_seconds,omitempty"`
}

func (s *Server) view(ws *models.WorkSession) sessionView {
	v := sessionView{
		ID:           ws.ID,
		State:        ws.State(),
		ClockInTime:  ws.ClockInTime,
		ClockOutTime: ws.ClockOutTime,
		OnBreak:      ws.OnBreak,
		Breaks:       ws.Breaks,
		ProjectTasks: ws.ProjectTasks,
		BreakSeconds: accounting.BreakTime(ws).Seconds(),
	}
	if v.Breaks == nil {
		v.Breaks = []models.BreakInterval{}
	}
	standard := s.reg.Config().StandardWorkingDuration
	if worked := accounting.WorkedTime(ws); worked != nil {
		secs := worked.Seconds()
		v.WorkedSeconds = &secs
	}
	if ot := accounting.Overtime(ws, standard); ot != nil {
		secs := ot.Seconds()
		v.OvertimeSeconds = &secs
	}
	return v
}

// toggleResponse reports whether a transition actually happened. Stale
// references answer changed=false with 200, never an error status: races
// between surfaces are expected and must stay silent.
type toggleResponse struct {
	Changed bool         `json:"changed"`
	Session *sessionView `json:"session,omitempty"`
}

// --- Status ---

type statusResponse struct {
	Active   bool                    `json:"active"`
	Session  *sessionView            `json:"session,omitempty"`
	Snapshot *models.SessionSnapshot `json:"snapshot,omitempty"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	active, err := s.reg.ActiveSession(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := statusResponse{Active: active != nil}
	if active != nil {
		v := s.view(active)
		resp.Session = &v
	}
	if s.snapshots != nil {
		resp.Snapshot = s.snapshots.Latest()
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Transitions ---

func (s *Server) clockIn(w http.ResponseWriter, r *http.Request) {
	ws, err := s.reg.ClockIn(r.Context(), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	v := s.view(ws)
	writeJSON(w, http.StatusOK, toggleResponse{Changed: true, Session: &v})
}

// resolveSessionID reads an optional session_id from the request body,
// falling back to the active session. Widgets that cache a session id keep
// sending it; bare automations send an empty body.
func (s *Server) resolveSessionID(r *http.Request) (string, error) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", err
		}
	}
	if req.SessionID != "" {
		return req.SessionID, nil
	}
	active, err := s.reg.ActiveSession(r.Context())
	if err != nil {
		return "", err
	}
	if active == nil {
		return "", nil
	}
	return active.ID, nil
}

func (s *Server) transition(w http.ResponseWriter, r *http.Request,
	op func(id string) (*models.WorkSession, error)) {

	id, err := s.resolveSessionID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if id == "" {
		writeJSON(w, http.StatusOK, toggleResponse{Changed: false})
		return
	}

	ws, err := op(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if ws == nil {
		writeJSON(w, http.StatusOK, toggleResponse{Changed: false})
		return
	}
	v := s.view(ws)
	writeJSON(w, http.StatusOK, toggleResponse{Changed: true, Session: &v})
}

func (s *Server) clockOut(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(id string) (*models.WorkSession, error) {
		return s.reg.ClockOut(r.Context(), id, time.Now())
	})
}

func (s *Server) startBreak(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(id string) (*models.WorkSession, error) {
		return s.reg.StartBreak(r.Context(), id, time.Now())
	})
}

func (s *Server) endBreak(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, func(id string) (*models.WorkSession, error) {
		return s.reg.EndBreak(r.Context(), id, time.Now())
	})
}

// --- Sessions ---

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	var filter store.SessionFilter
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from: "+err.Error())
			return
		}
		filter.From = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to: "+err.Error())
			return
		}
		filter.To = &t
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}

	sessions, err := s.store.ListSessions(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]sessionView, 0, len(sessions))
	for _, ws := range sessions {
		views = append(views, s.view(ws))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ws, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.view(ws))
}

// editRequest is the corrective-edit body. RFC3339 timestamps; omitted
// fields stay unchanged.
type editRequest struct {
	ClockIn     *time.Time `json:"clock_in,omitempty"`
	ClockOut    *time.Time `json:"clock_out,omitempty"`
	ClearOut    bool       `json:"clear_out,omitempty"`
	BreakIndex  *int       `json:"break_index,omitempty"`
	BreakStart  *time.Time `json:"break_start,omitempty"`
	BreakEnd    *time.Time `json:"break_end,omitempty"`
	RemoveBreak bool       `json:"remove_break,omitempty"`
}

func (s *Server) editSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req editRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	edit := registry.Edit{
		ClockIn:     req.ClockIn,
		ClockOut:    req.ClockOut,
		ClearOut:    req.ClearOut,
		BreakIndex:  -1,
		BreakStart:  req.BreakStart,
		BreakEnd:    req.BreakEnd,
		RemoveBreak: req.RemoveBreak,
	}
	if req.BreakIndex != nil {
		edit.BreakIndex = *req.BreakIndex
	}

	ws, err := s.reg.ApplyEdit(r.Context(), id, edit)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "not found"):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, models.ErrInvariantViolation):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, s.view(ws))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.reg.DeleteSession(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		ProjectID string `json:"project_id"`
		Note      string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.ProjectID == "" {
		writeError(w, http.StatusBadRequest, "project_id is required")
		return
	}

	ws, err := s.reg.SetTask(r.Context(), id, req.ProjectID, req.Note)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.view(ws))
}

// --- Projects ---

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("archived") == "true"
	projects, err := s.store.ListProjects(r.Context(), includeArchived)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	p := &models.Project{Name: req.Name, IsActive: true}
	if err := s.store.CreateProject(r.Context(), p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := s.store.GetProject(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req struct {
		Name     *string `json:"name,omitempty"`
		IsActive *bool   `json:"is_active,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Name != nil && *req.Name != "" {
		existing.Name = *req.Name
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}

	if err := s.store.UpdateProject(r.Context(), existing); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteProject(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Geofence ---

func (s *Server) geofenceEvent(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusServiceUnavailable, "geofencing is not enabled")
		return
	}

	var ev geofence.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	switch ev.Kind {
	case geofence.EventEntered, geofence.EventExited:
	default:
		writeError(w, http.StatusBadRequest, "kind must be 'entered' or 'exited'")
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	// Never block the handler on the consumer: if the queue is full (or the
	// processing loop is gone during shutdown), tell the source to retry.
	select {
	case s.events <- ev:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	default:
		writeError(w, http.StatusServiceUnavailable, "geofence event queue is full")
	}
}
